package service

import (
	"context"
	"errors"

	"github.com/atinyakov/crowdfund/internal/metrics"
	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/repository"
)

// ContributionRepository defines the persistence operations needed by the
// ContributionService.
type ContributionRepository interface {
	// Create claims one unit of a reward for a profile.
	Create(ctx context.Context, projectID, rewardID, profileID int64) (models.Contribution, error)
	// ListByReward returns the contributions made to a reward.
	ListByReward(ctx context.Context, rewardID int64) ([]models.Contribution, error)
	// ListDetailedByProfile returns a profile's contributions with snapshots.
	ListDetailedByProfile(ctx context.Context, profileID int64) ([]models.DetailedContribution, error)
	// Stats computes the platform-wide aggregate.
	Stats(ctx context.Context) (models.GlobalStats, error)
}

// ContributionService records contributions and reports on them.
type ContributionService struct {
	repo     ContributionRepository
	rewards  RewardRepository
	projects *ProjectService
}

// NewContributionService constructs a ContributionService.
func NewContributionService(repo ContributionRepository, rewards RewardRepository, projects *ProjectService) *ContributionService {
	return &ContributionService{repo: repo, rewards: rewards, projects: projects}
}

// Contribute claims reward rewardID of projectID for profileID. Only accepted
// projects collect contributions.
func (s *ContributionService) Contribute(ctx context.Context, profileID, projectID, rewardID int64) (models.Contribution, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return models.Contribution{}, err
	}
	if p.Status != models.StatusAccepted {
		return models.Contribution{}, because(ErrForbidden, "project is not accepting contributions")
	}
	r, err := s.rewards.Get(ctx, projectID, rewardID)
	if err != nil {
		return models.Contribution{}, missing("reward", err)
	}

	c, err := s.repo.Create(ctx, projectID, rewardID, profileID)
	switch {
	case errors.Is(err, repository.ErrSoldOut):
		return models.Contribution{}, because(ErrConflict, "reward is not available")
	case err != nil:
		return models.Contribution{}, missing("reward", err)
	}
	metrics.ContributionsTotal.Inc()
	metrics.ContributedAmountTotal.Add(r.Price)
	return c, nil
}

// ByReward lists the contributions made to reward rewardID of projectID.
func (s *ContributionService) ByReward(ctx context.Context, projectID, rewardID int64) ([]models.Contribution, error) {
	if _, err := s.rewards.Get(ctx, projectID, rewardID); err != nil {
		return nil, missing("reward", err)
	}
	return s.repo.ListByReward(ctx, rewardID)
}

// Mine returns the contribution history of profileID.
func (s *ContributionService) Mine(ctx context.Context, profileID int64) ([]models.DetailedContribution, error) {
	return s.repo.ListDetailedByProfile(ctx, profileID)
}

// Stats returns the platform-wide aggregate.
func (s *ContributionService) Stats(ctx context.Context) (models.GlobalStats, error) {
	return s.repo.Stats(ctx)
}
