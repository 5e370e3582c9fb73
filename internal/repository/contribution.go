package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/crowdfund/internal/models"
)

// ContributionStatusNew is the status of a freshly made contribution.
const ContributionStatusNew = "new"

// PostgresContributionRepository implements contribution persistence and the
// platform statistics against a PostgreSQL database.
type PostgresContributionRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresContributionRepository creates a new PostgresContributionRepository using the provided *sql.DB.
func NewPostgresContributionRepository(db *sql.DB) *PostgresContributionRepository {
	return &PostgresContributionRepository{DB: db}
}

const contributionColumns = `c.id, c.project_id, c.reward_id, c.profile_id, c.status, c.created_at`

func scanContribution(row scanner, c *models.Contribution, extra ...any) error {
	dest := []any{&c.ID, &c.ProjectID, &c.RewardID, &c.ProfileID, &c.Status, &c.CreatedAt}
	return row.Scan(append(dest, extra...)...)
}

// Create claims one unit of reward rewardID of projectID for profileID within a
// transaction: the reward quantity is decremented and the contribution row
// inserted together.
//
//	ctx:       context for cancellation and deadlines
//	projectID: project the reward belongs to
//	rewardID:  reward being claimed
//	profileID: contributing profile
//
// Returns ErrSoldOut if the reward is inactive or has no units left, and
// ErrNotFound if the reward does not belong to the project.
func (s *PostgresContributionRepository) Create(ctx context.Context, projectID, rewardID, profileID int64) (models.Contribution, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Contribution{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var quantity int
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT quantity, active FROM rewards WHERE id = $1 AND project_id = $2 FOR UPDATE
	`, rewardID, projectID).Scan(&quantity, &active)
	if err != nil {
		return models.Contribution{}, wrap("lock reward", err)
	}
	if !active || quantity <= 0 {
		return models.Contribution{}, wrap("lock reward", ErrSoldOut)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rewards SET quantity = quantity - 1 WHERE id = $1`, rewardID); err != nil {
		return models.Contribution{}, wrap("decrement reward", err)
	}

	var c models.Contribution
	err = tx.QueryRowContext(ctx, `
		INSERT INTO contributions (project_id, reward_id, profile_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, project_id, reward_id, profile_id, status, created_at
	`, projectID, rewardID, profileID, ContributionStatusNew).
		Scan(&c.ID, &c.ProjectID, &c.RewardID, &c.ProfileID, &c.Status, &c.CreatedAt)
	if err != nil {
		return models.Contribution{}, wrap("insert contribution", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Contribution{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// ListByReward returns the contributions made to rewardID ordered by id.
func (s *PostgresContributionRepository) ListByReward(ctx context.Context, rewardID int64) ([]models.Contribution, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+contributionColumns+` FROM contributions c WHERE c.reward_id = $1 ORDER BY c.id
	`, rewardID)
	if err != nil {
		return nil, wrap("list contributions", err)
	}
	defer rows.Close()

	list := []models.Contribution{}
	for rows.Next() {
		var c models.Contribution
		if err := scanContribution(rows, &c); err != nil {
			return nil, wrap("scan contribution", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list contributions", err)
	}
	return list, nil
}

// ListDetailedByProfile returns the contributions of profileID joined with
// their project and reward, newest first.
func (s *PostgresContributionRepository) ListDetailedByProfile(ctx context.Context, profileID int64) ([]models.DetailedContribution, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+contributionColumns+`,
			p.id, p.author_id, p.title, p.description, p.goal_amount, p.project_type,
			p.start_date, p.end_date, p.status, p.moderator_comment,
			r.id, r.project_id, r.title, r.description, r.price, r.quantity, r.active
		FROM contributions c
		JOIN projects p ON p.id = c.project_id
		JOIN rewards r ON r.id = c.reward_id
		WHERE c.profile_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, profileID)
	if err != nil {
		return nil, wrap("list profile contributions", err)
	}
	defer rows.Close()

	list := []models.DetailedContribution{}
	for rows.Next() {
		var d models.DetailedContribution
		p, r := &d.Project, &d.Reward
		err := scanContribution(rows, &d.Contribution,
			&p.ID, &p.AuthorID, &p.Title, &p.Description, &p.GoalAmount, &p.ProjectType,
			&p.StartDate, &p.EndDate, &p.Status, &p.ModeratorComment,
			&r.ID, &r.ProjectID, &r.Title, &r.Description, &r.Price, &r.Quantity, &r.Active,
		)
		if err != nil {
			return nil, wrap("scan contribution", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list profile contributions", err)
	}
	return list, nil
}

// Stats computes the platform-wide aggregate: the number of contributions,
// the sum of the prices of their rewards, and the number of projects whose
// raised sum reached the goal.
func (s *PostgresContributionRepository) Stats(ctx context.Context) (models.GlobalStats, error) {
	var st models.GlobalStats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contributions),
			(SELECT COALESCE(SUM(r.price), 0) FROM contributions c JOIN rewards r ON r.id = c.reward_id),
			(SELECT COUNT(*) FROM (
				SELECT p.id
				FROM projects p
				LEFT JOIN contributions c ON c.project_id = p.id
				LEFT JOIN rewards r ON r.id = c.reward_id
				GROUP BY p.id, p.goal_amount
				HAVING COALESCE(SUM(r.price), 0) >= p.goal_amount
			) cool)
	`).Scan(&st.TotalCount, &st.TotalAmount, &st.CoolProjects)
	if err != nil {
		return models.GlobalStats{}, wrap("stats", err)
	}
	return st, nil
}

