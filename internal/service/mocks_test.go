package service

import (
	"context"

	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/repository"
)

type mockProfileRepo struct {
	CreateFunc     func(ctx context.Context, in models.ProfileCreate, hash string) (models.Profile, error)
	GetByLoginFunc func(ctx context.Context, login string) (repository.Account, error)
	GetByIDFunc    func(ctx context.Context, id int64) (repository.Account, error)
	ListFunc       func(ctx context.Context) ([]models.Profile, error)
	UpdateFunc     func(ctx context.Context, id int64, f models.ProfileFields) (models.Profile, error)
}

func (m *mockProfileRepo) Create(ctx context.Context, in models.ProfileCreate, hash string) (models.Profile, error) {
	return m.CreateFunc(ctx, in, hash)
}
func (m *mockProfileRepo) GetByLogin(ctx context.Context, login string) (repository.Account, error) {
	return m.GetByLoginFunc(ctx, login)
}
func (m *mockProfileRepo) GetByID(ctx context.Context, id int64) (repository.Account, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *mockProfileRepo) List(ctx context.Context) ([]models.Profile, error) {
	return m.ListFunc(ctx)
}
func (m *mockProfileRepo) Update(ctx context.Context, id int64, f models.ProfileFields) (models.Profile, error) {
	return m.UpdateFunc(ctx, id, f)
}

type issuerFunc func(p models.Profile) (models.AuthTokens, error)

func (f issuerFunc) Pair(p models.Profile) (models.AuthTokens, error) { return f(p) }

type mockProjectRepo struct {
	ListFunc      func(ctx context.Context) ([]models.Project, error)
	GetFunc       func(ctx context.Context, id int64) (models.Project, error)
	CreateFunc    func(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error)
	UpdateFunc    func(ctx context.Context, id int64, status models.Status, in models.ProjectInput) (models.Project, error)
	SetStatusFunc func(ctx context.Context, id int64, from, to models.Status, comment *string) (models.Project, error)
	DeleteFunc    func(ctx context.Context, id int64, status models.Status) error
}

func (m *mockProjectRepo) List(ctx context.Context) ([]models.Project, error) {
	return m.ListFunc(ctx)
}
func (m *mockProjectRepo) Get(ctx context.Context, id int64) (models.Project, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockProjectRepo) Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error) {
	return m.CreateFunc(ctx, authorID, in)
}
func (m *mockProjectRepo) Update(ctx context.Context, id int64, status models.Status, in models.ProjectInput) (models.Project, error) {
	return m.UpdateFunc(ctx, id, status, in)
}
func (m *mockProjectRepo) SetStatus(ctx context.Context, id int64, from, to models.Status, comment *string) (models.Project, error) {
	return m.SetStatusFunc(ctx, id, from, to, comment)
}
func (m *mockProjectRepo) Delete(ctx context.Context, id int64, status models.Status) error {
	return m.DeleteFunc(ctx, id, status)
}

// projectIn returns a repository that serves p from Get.
func projectIn(p models.Project) *mockProjectRepo {
	return &mockProjectRepo{
		GetFunc: func(ctx context.Context, id int64) (models.Project, error) {
			if id != p.ID {
				return models.Project{}, repository.ErrNotFound
			}
			return p, nil
		},
	}
}

type mockRewardRepo struct {
	ListByProjectFunc func(ctx context.Context, projectID int64) ([]models.Reward, error)
	GetFunc           func(ctx context.Context, projectID, id int64) (models.Reward, error)
	CreateFunc        func(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error)
	UpdateFunc        func(ctx context.Context, projectID, id int64, in models.RewardInput) (models.Reward, error)
	DeleteFunc        func(ctx context.Context, projectID, id int64) error
}

func (m *mockRewardRepo) ListByProject(ctx context.Context, projectID int64) ([]models.Reward, error) {
	return m.ListByProjectFunc(ctx, projectID)
}
func (m *mockRewardRepo) Get(ctx context.Context, projectID, id int64) (models.Reward, error) {
	return m.GetFunc(ctx, projectID, id)
}
func (m *mockRewardRepo) Create(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error) {
	return m.CreateFunc(ctx, projectID, in)
}
func (m *mockRewardRepo) Update(ctx context.Context, projectID, id int64, in models.RewardInput) (models.Reward, error) {
	return m.UpdateFunc(ctx, projectID, id, in)
}
func (m *mockRewardRepo) Delete(ctx context.Context, projectID, id int64) error {
	return m.DeleteFunc(ctx, projectID, id)
}

type mockContributionRepo struct {
	CreateFunc                func(ctx context.Context, projectID, rewardID, profileID int64) (models.Contribution, error)
	ListByRewardFunc          func(ctx context.Context, rewardID int64) ([]models.Contribution, error)
	ListDetailedByProfileFunc func(ctx context.Context, profileID int64) ([]models.DetailedContribution, error)
	StatsFunc                 func(ctx context.Context) (models.GlobalStats, error)
}

func (m *mockContributionRepo) Create(ctx context.Context, projectID, rewardID, profileID int64) (models.Contribution, error) {
	return m.CreateFunc(ctx, projectID, rewardID, profileID)
}
func (m *mockContributionRepo) ListByReward(ctx context.Context, rewardID int64) ([]models.Contribution, error) {
	return m.ListByRewardFunc(ctx, rewardID)
}
func (m *mockContributionRepo) ListDetailedByProfile(ctx context.Context, profileID int64) ([]models.DetailedContribution, error) {
	return m.ListDetailedByProfileFunc(ctx, profileID)
}
func (m *mockContributionRepo) Stats(ctx context.Context) (models.GlobalStats, error) {
	return m.StatsFunc(ctx)
}

func sampleInput() models.ProjectInput {
	return models.ProjectInput{
		Title:       "Board game",
		GoalAmount:  500,
		ProjectType: "games",
		StartDate:   models.MustDate("2024-01-01"),
		EndDate:     models.MustDate("2024-06-01"),
	}
}
