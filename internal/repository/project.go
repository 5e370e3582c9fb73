package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/atinyakov/crowdfund/internal/models"
)

// PostgresProjectRepository implements project persistence against a PostgreSQL database.
type PostgresProjectRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresProjectRepository creates a new PostgresProjectRepository using the provided *sql.DB.
func NewPostgresProjectRepository(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{DB: db}
}

const projectColumns = `id, author_id, title, description, goal_amount, project_type, start_date, end_date, status, moderator_comment`

func scanProject(row scanner, p *models.Project) error {
	return row.Scan(
		&p.ID, &p.AuthorID, &p.Title, &p.Description, &p.GoalAmount, &p.ProjectType,
		&p.StartDate, &p.EndDate, &p.Status, &p.ModeratorComment,
	)
}

// List returns every project ordered by id.
func (s *PostgresProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, wrap("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := scanProject(rows, &p); err != nil {
			return nil, wrap("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list projects", err)
	}
	return projects, nil
}

// Get fetches one project.
//
//	ctx: context for cancellation and deadlines
//	id:  project identifier
//
// Returns ErrNotFound if the project does not exist.
func (s *PostgresProjectRepository) Get(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := scanProject(s.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id), &p)
	if err != nil {
		return models.Project{}, wrap("get project", err)
	}
	return p, nil
}

// Create inserts a draft project owned by authorID.
func (s *PostgresProjectRepository) Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error) {
	var p models.Project
	err := scanProject(s.DB.QueryRowContext(ctx, `
		INSERT INTO projects (author_id, title, description, goal_amount, project_type, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+projectColumns,
		authorID, in.Title, in.Description, in.GoalAmount, in.ProjectType, in.StartDate, in.EndDate, models.StatusDraft,
	), &p)
	if err != nil {
		return models.Project{}, wrap("create project", err)
	}
	return p, nil
}

// Update overwrites the editable fields of project id while it is still in
// status. Returns ErrConflict when the project has left that status.
func (s *PostgresProjectRepository) Update(ctx context.Context, id int64, status models.Status, in models.ProjectInput) (models.Project, error) {
	var p models.Project
	err := scanProject(s.DB.QueryRowContext(ctx, `
		UPDATE projects
		SET title = $1, description = $2, goal_amount = $3, project_type = $4, start_date = $5, end_date = $6
		WHERE id = $7 AND status = $8
		RETURNING `+projectColumns,
		in.Title, in.Description, in.GoalAmount, in.ProjectType, in.StartDate, in.EndDate, id, status,
	), &p)
	if err != nil {
		return models.Project{}, conflictIfMissing("update project", err)
	}
	return p, nil
}

// SetStatus moves project id from one status to another. A nil comment keeps
// the moderator comment, an empty one clears it and any other replaces it.
// The update only happens if the project is still in from; otherwise
// ErrConflict is returned.
func (s *PostgresProjectRepository) SetStatus(ctx context.Context, id int64, from, to models.Status, comment *string) (models.Project, error) {
	var p models.Project
	err := scanProject(s.DB.QueryRowContext(ctx, `
		UPDATE projects
		SET status = $1,
		    moderator_comment = CASE WHEN $2::text IS NULL THEN moderator_comment ELSE NULLIF($2::text, '') END
		WHERE id = $3 AND status = $4
		RETURNING `+projectColumns,
		to, comment, id, from,
	), &p)
	if err != nil {
		return models.Project{}, conflictIfMissing("set project status", err)
	}
	return p, nil
}

// Delete removes project id if it is still in status, cascading to its
// rewards and contributions.
func (s *PostgresProjectRepository) Delete(ctx context.Context, id int64, status models.Status) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return wrap("delete project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete project", err)
	}
	if n == 0 {
		return wrap("delete project", ErrConflict)
	}
	return nil
}

// conflictIfMissing reports a guarded write that matched no row as a conflict.
func conflictIfMissing(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return wrap(op, ErrConflict)
	}
	return wrap(op, err)
}
