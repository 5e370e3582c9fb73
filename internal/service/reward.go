package service

import (
	"context"

	"github.com/atinyakov/crowdfund/internal/models"
)

// RewardRepository defines the persistence operations needed by the RewardService.
type RewardRepository interface {
	// ListByProject returns the rewards of a project.
	ListByProject(ctx context.Context, projectID int64) ([]models.Reward, error)
	// Get fetches a reward of a project.
	Get(ctx context.Context, projectID, id int64) (models.Reward, error)
	// Create stores an active reward.
	Create(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error)
	// Update overwrites the editable fields of a reward.
	Update(ctx context.Context, projectID, id int64, in models.RewardInput) (models.Reward, error)
	// Delete removes a reward.
	Delete(ctx context.Context, projectID, id int64) error
}

// RewardService manages the rewards of a project. Only the project author
// may change them.
type RewardService struct {
	rewards  RewardRepository
	projects *ProjectService
}

// NewRewardService constructs a RewardService.
func NewRewardService(rewards RewardRepository, projects *ProjectService) *RewardService {
	return &RewardService{rewards: rewards, projects: projects}
}

// List returns the rewards of projectID.
func (s *RewardService) List(ctx context.Context, projectID int64) ([]models.Reward, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.rewards.ListByProject(ctx, projectID)
}

// Create adds a reward to a project owned by actor.
func (s *RewardService) Create(ctx context.Context, actor, projectID int64, in models.RewardInput) (models.Reward, error) {
	if err := in.Validate(); err != nil {
		return models.Reward{}, invalid(err)
	}
	if _, err := s.projects.owned(ctx, actor, projectID); err != nil {
		return models.Reward{}, err
	}
	return s.rewards.Create(ctx, projectID, in)
}

// Update replaces the editable fields of reward id.
func (s *RewardService) Update(ctx context.Context, actor, projectID, id int64, in models.RewardInput) (models.Reward, error) {
	if err := in.Validate(); err != nil {
		return models.Reward{}, invalid(err)
	}
	if _, err := s.projects.owned(ctx, actor, projectID); err != nil {
		return models.Reward{}, err
	}
	r, err := s.rewards.Update(ctx, projectID, id, in)
	if err != nil {
		return models.Reward{}, missing("reward", err)
	}
	return r, nil
}

// Delete removes reward id.
func (s *RewardService) Delete(ctx context.Context, actor, projectID, id int64) error {
	if _, err := s.projects.owned(ctx, actor, projectID); err != nil {
		return err
	}
	return missing("reward", s.rewards.Delete(ctx, projectID, id))
}
