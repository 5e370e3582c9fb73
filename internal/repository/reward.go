package repository

import (
	"context"
	"database/sql"

	"github.com/atinyakov/crowdfund/internal/models"
)

// PostgresRewardRepository implements reward persistence against a PostgreSQL database.
type PostgresRewardRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRewardRepository creates a new PostgresRewardRepository using the provided *sql.DB.
func NewPostgresRewardRepository(db *sql.DB) *PostgresRewardRepository {
	return &PostgresRewardRepository{DB: db}
}

const rewardColumns = `id, project_id, title, description, price, quantity, active`

func scanReward(row scanner, r *models.Reward) error {
	return row.Scan(&r.ID, &r.ProjectID, &r.Title, &r.Description, &r.Price, &r.Quantity, &r.Active)
}

// ListByProject returns the rewards of projectID ordered by id.
func (s *PostgresRewardRepository) ListByProject(ctx context.Context, projectID int64) ([]models.Reward, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, wrap("list rewards", err)
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		var r models.Reward
		if err := scanReward(rows, &r); err != nil {
			return nil, wrap("scan reward", err)
		}
		rewards = append(rewards, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list rewards", err)
	}
	return rewards, nil
}

// Get fetches reward id of projectID. A reward of another project is reported
// as ErrNotFound.
func (s *PostgresRewardRepository) Get(ctx context.Context, projectID, id int64) (models.Reward, error) {
	var r models.Reward
	err := scanReward(s.DB.QueryRowContext(ctx, `
		SELECT `+rewardColumns+` FROM rewards WHERE id = $1 AND project_id = $2
	`, id, projectID), &r)
	if err != nil {
		return models.Reward{}, wrap("get reward", err)
	}
	return r, nil
}

// Create inserts an active reward for projectID.
func (s *PostgresRewardRepository) Create(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error) {
	var r models.Reward
	err := scanReward(s.DB.QueryRowContext(ctx, `
		INSERT INTO rewards (project_id, title, description, price, quantity, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING `+rewardColumns,
		projectID, in.Title, in.Description, in.Price, in.Quantity,
	), &r)
	if err != nil {
		return models.Reward{}, wrap("create reward", err)
	}
	return r, nil
}

// Update overwrites the editable fields of reward id of projectID.
func (s *PostgresRewardRepository) Update(ctx context.Context, projectID, id int64, in models.RewardInput) (models.Reward, error) {
	var r models.Reward
	err := scanReward(s.DB.QueryRowContext(ctx, `
		UPDATE rewards SET title = $1, description = $2, price = $3, quantity = $4
		WHERE id = $5 AND project_id = $6
		RETURNING `+rewardColumns,
		in.Title, in.Description, in.Price, in.Quantity, id, projectID,
	), &r)
	if err != nil {
		return models.Reward{}, wrap("update reward", err)
	}
	return r, nil
}

// Delete removes reward id of projectID. Returns ErrNotFound if it does not exist.
func (s *PostgresRewardRepository) Delete(ctx context.Context, projectID, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return wrap("delete reward", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return wrap("delete reward", err)
	} else if n == 0 {
		return wrap("delete reward", ErrNotFound)
	}
	return nil
}
