package repository

import (
	"context"
	"database/sql"

	"github.com/atinyakov/crowdfund/internal/models"
)

// Account is a stored profile together with its credential data.
type Account struct {
	models.Profile
	// HashedPassword is the bcrypt hash of the password.
	HashedPassword string
	// Active accounts may obtain tokens.
	Active bool
}

// PostgresProfileRepository implements profile persistence using a PostgreSQL database.
type PostgresProfileRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresProfileRepository(db *sql.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{DB: db}
}

const profileColumns = `id, login, name, surname, patronymic, bank_number, phone_number, is_admin, is_author, is_investor`

func scanProfile(row scanner, p *models.Profile, extra ...any) error {
	dest := []any{
		&p.ID, &p.Login, &p.Name, &p.Surname, &p.Patronymic, &p.BankNumber, &p.PhoneNumber,
		&p.IsAdmin, &p.IsAuthor, &p.IsInvestor,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create inserts a new profile with an already hashed password.
// Returns ErrConflict if the login is taken.
func (s *PostgresProfileRepository) Create(ctx context.Context, in models.ProfileCreate, hashedPassword string) (models.Profile, error) {
	var p models.Profile
	err := scanProfile(s.DB.QueryRowContext(ctx, `
		INSERT INTO profile (login, hashed_password, name, surname, patronymic, bank_number, phone_number, is_admin, is_author, is_investor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+profileColumns,
		in.Login, hashedPassword, in.Name, in.Surname, in.Patronymic, in.BankNumber, in.PhoneNumber,
		in.IsAdmin, in.IsAuthor, in.IsInvestor,
	), &p)
	if err != nil {
		return models.Profile{}, wrap("create profile", err)
	}
	return p, nil
}

// GetByLogin fetches the account with the given login, including its password hash.
//
//	ctx:   context for cancellation and deadlines
//	login: unique login of the profile
//
// Returns ErrNotFound if no such login exists.
func (s *PostgresProfileRepository) GetByLogin(ctx context.Context, login string) (Account, error) {
	var a Account
	err := scanProfile(s.DB.QueryRowContext(ctx, `
		SELECT `+profileColumns+`, hashed_password, is_active FROM profile WHERE login = $1
	`, login), &a.Profile, &a.HashedPassword, &a.Active)
	if err != nil {
		return Account{}, wrap("get profile by login", err)
	}
	return a, nil
}

// GetByID fetches an account by its identifier.
func (s *PostgresProfileRepository) GetByID(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := scanProfile(s.DB.QueryRowContext(ctx, `
		SELECT `+profileColumns+`, hashed_password, is_active FROM profile WHERE id = $1
	`, id), &a.Profile, &a.HashedPassword, &a.Active)
	if err != nil {
		return Account{}, wrap("get profile", err)
	}
	return a, nil
}

// List returns every profile ordered by id.
func (s *PostgresProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+profileColumns+` FROM profile ORDER BY id`)
	if err != nil {
		return nil, wrap("list profiles", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, wrap("scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list profiles", err)
	}
	return profiles, nil
}

// Update overwrites the self-editable fields of profile id and returns the result.
func (s *PostgresProfileRepository) Update(ctx context.Context, id int64, f models.ProfileFields) (models.Profile, error) {
	var p models.Profile
	err := scanProfile(s.DB.QueryRowContext(ctx, `
		UPDATE profile SET name = $1, surname = $2, patronymic = $3, bank_number = $4, phone_number = $5
		WHERE id = $6
		RETURNING `+profileColumns,
		f.Name, f.Surname, f.Patronymic, f.BankNumber, f.PhoneNumber, id,
	), &p)
	if err != nil {
		return models.Profile{}, wrap("update profile", err)
	}
	return p, nil
}
