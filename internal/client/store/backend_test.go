package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/crowdfund/internal/client/api"
	"github.com/atinyakov/crowdfund/internal/models"
)

// memBackend is an in-memory rendition of the REST contract for one caller.
// Hooks let a test fail or block single calls.
type memBackend struct {
	mu            sync.Mutex
	profileID     int64
	nextID        int64
	projects      map[int64]models.Project
	rewards       map[int64]models.Reward
	contributions []models.Contribution
	calls         map[string]int

	projectsHook   func() error
	rewardsHook    func(projectID int64) error
	transitionHook func(id int64, a models.Action) error
	updateHook     func(id int64) error
}

func newMemBackend() *memBackend {
	return &memBackend{
		profileID: 42,
		projects:  make(map[int64]models.Project),
		rewards:   make(map[int64]models.Reward),
		calls:     make(map[string]int),
	}
}

func apiErr(kind api.Kind, status int, reason string) *api.Error {
	return &api.Error{Kind: kind, Status: status, Message: kind.String(), Reason: reason}
}

func (b *memBackend) count(name string) {
	b.mu.Lock()
	b.calls[name]++
	b.mu.Unlock()
}

func (b *memBackend) callCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *memBackend) seed(p models.Project) models.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p.ID = b.nextID
	if p.AuthorID == 0 {
		p.AuthorID = b.profileID
	}
	b.projects[p.ID] = p
	return p
}

func (b *memBackend) seedReward(r models.Reward) models.Reward {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	r.ID = b.nextID
	r.Active = true
	b.rewards[r.ID] = r
	return r
}

func (b *memBackend) Projects(ctx context.Context) ([]models.Project, error) {
	b.count("Projects")
	if b.projectsHook != nil {
		if err := b.projectsHook(); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Project, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) Project(ctx context.Context, id int64) (models.Project, error) {
	b.count("Project")
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return models.Project{}, apiErr(api.KindNotFound, 404, "Project not found")
	}
	return p, nil
}

func (b *memBackend) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	b.count("CreateProject")
	return b.seed(models.Project{ProjectInput: in, Status: models.StatusDraft}), nil
}

func (b *memBackend) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	b.count("UpdateProject")
	if b.updateHook != nil {
		if err := b.updateHook(id); err != nil {
			return models.Project{}, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return models.Project{}, apiErr(api.KindNotFound, 404, "Project not found")
	}
	if p.Status != models.StatusDraft {
		return models.Project{}, apiErr(api.KindForbidden, 403, "Only draft projects can be edited")
	}
	p.ProjectInput = in
	b.projects[id] = p
	return p, nil
}

func (b *memBackend) DeleteProject(ctx context.Context, id int64) error {
	b.count("DeleteProject")
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return apiErr(api.KindNotFound, 404, "Project not found")
	}
	if _, err := p.Status.Apply(models.ActionDelete); err != nil {
		return apiErr(api.KindForbidden, 403, "Only draft projects can be deleted")
	}
	delete(b.projects, id)
	return nil
}

func (b *memBackend) Transition(ctx context.Context, id int64, a models.Action, message string) (models.Project, error) {
	b.count("Transition")
	if b.transitionHook != nil {
		if err := b.transitionHook(id, a); err != nil {
			return models.Project{}, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return models.Project{}, apiErr(api.KindNotFound, 404, "Project not found")
	}
	next, err := p.Status.Apply(a)
	if err != nil {
		return models.Project{}, apiErr(api.KindForbidden, 403, err.Error())
	}
	if a.RequiresComment() && message == "" {
		return models.Project{}, apiErr(api.KindValidation, 422, "message is required")
	}
	p.Status = next
	if a.IsModeration() {
		msg := message
		p.ModeratorComment = &msg
	}
	b.projects[id] = p
	return p, nil
}

func (b *memBackend) Rewards(ctx context.Context, projectID int64) ([]models.Reward, error) {
	b.count("Rewards")
	if b.rewardsHook != nil {
		if err := b.rewardsHook(projectID); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Reward
	for _, r := range b.rewards {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) CreateReward(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error) {
	b.count("CreateReward")
	return b.seedReward(models.Reward{ProjectID: projectID, RewardInput: in}), nil
}

func (b *memBackend) UpdateReward(ctx context.Context, projectID, rewardID int64, in models.RewardInput) (models.Reward, error) {
	b.count("UpdateReward")
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rewards[rewardID]
	if !ok || r.ProjectID != projectID {
		return models.Reward{}, apiErr(api.KindNotFound, 404, "Reward not found")
	}
	r.RewardInput = in
	b.rewards[rewardID] = r
	return r, nil
}

func (b *memBackend) DeleteReward(ctx context.Context, projectID, rewardID int64) error {
	b.count("DeleteReward")
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rewards[rewardID]
	if !ok || r.ProjectID != projectID {
		return apiErr(api.KindNotFound, 404, "Reward not found")
	}
	delete(b.rewards, rewardID)
	return nil
}

func (b *memBackend) Contribute(ctx context.Context, projectID, rewardID int64) (models.Contribution, error) {
	b.count("Contribute")
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[projectID]
	if !ok {
		return models.Contribution{}, apiErr(api.KindNotFound, 404, "Project not found")
	}
	if p.Status != models.StatusAccepted {
		return models.Contribution{}, apiErr(api.KindForbidden, 403, "Project is not accepted")
	}
	r, ok := b.rewards[rewardID]
	if !ok || r.ProjectID != projectID {
		return models.Contribution{}, apiErr(api.KindNotFound, 404, "Reward not found")
	}
	if r.Quantity <= 0 {
		return models.Contribution{}, apiErr(api.KindConflict, 409, "Reward is sold out")
	}
	r.Quantity--
	b.rewards[rewardID] = r

	b.nextID++
	c := models.Contribution{
		ID:        b.nextID,
		ProjectID: projectID,
		RewardID:  rewardID,
		ProfileID: b.profileID,
		Status:    "new",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	b.contributions = append(b.contributions, c)
	return c, nil
}

func (b *memBackend) MyContributions(ctx context.Context) ([]models.DetailedContribution, error) {
	b.count("MyContributions")
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.DetailedContribution
	for _, c := range b.contributions {
		if c.ProfileID != b.profileID {
			continue
		}
		out = append(out, models.DetailedContribution{
			Contribution: c,
			Project:      models.ProjectSnapshot(b.projects[c.ProjectID]),
			Reward:       models.RewardSnapshot(b.rewards[c.RewardID]),
		})
	}
	return out, nil
}

func (b *memBackend) Stats(ctx context.Context) (models.GlobalStats, error) {
	b.count("Stats")
	b.mu.Lock()
	defer b.mu.Unlock()
	var st models.GlobalStats
	raised := make(map[int64]float64)
	for _, c := range b.contributions {
		price := b.rewards[c.RewardID].Price
		st.TotalCount++
		st.TotalAmount += price
		raised[c.ProjectID] += price
	}
	for id, sum := range raised {
		if sum >= b.projects[id].GoalAmount {
			st.CoolProjects++
		}
	}
	return st, nil
}
