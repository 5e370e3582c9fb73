package store

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/crowdfund/internal/client/api"
	"github.com/atinyakov/crowdfund/internal/models"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func sampleInput() models.ProjectInput {
	return models.ProjectInput{
		Title:       "T",
		GoalAmount:  1000,
		ProjectType: "games",
		StartDate:   models.MustDate("2024-01-01"),
		EndDate:     models.MustDate("2024-06-01"),
	}
}

func newStore(t *testing.T) (*Projects, *memBackend) {
	t.Helper()
	b := newMemBackend()
	return NewProjects(b, nil), b
}

func TestProjects_CreateSubmitAccept(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, created.Status)
	require.Len(t, s.List(), 1)
	assert.Equal(t, created.ID, s.List()[0].ID)

	submitted, err := s.Submit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnModeration, submitted.Status)
	assert.Equal(t, models.StatusOnModeration, s.List()[0].Status)

	accepted, err := s.Accept(ctx, created.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)
	assert.Equal(t, "ok", accepted.Comment())
	assert.Equal(t, models.StatusAccepted, s.List()[0].Status)
	assert.Equal(t, "ok", s.List()[0].Comment())
}

func TestProjects_ReturnToDraftAndResubmit(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusOnModeration})
	require.NoError(t, s.LoadDetail(ctx, p.ID))

	back, err := s.ReturnToDraft(ctx, p.ID, "add photos")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, back.Status)
	require.NotNil(t, s.Active())
	assert.Equal(t, models.StatusDraft, s.Active().Status)
	assert.Equal(t, "add photos", s.Active().Comment())

	again, err := s.Submit(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnModeration, again.Status)
	assert.Equal(t, models.StatusOnModeration, s.Active().Status)
}

func TestProjects_ReturnToDraftRequiresComment(t *testing.T) {
	for _, msg := range []string{"", "   ", "\n\t"} {
		s, b := newStore(t)
		p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusOnModeration})

		_, err := s.ReturnToDraft(context.Background(), p.ID, msg)
		assert.ErrorIs(t, err, ErrCommentRequired)
		assert.Zero(t, b.callCount("Transition"))
		assert.NotEmpty(t, s.Err())
	}
}

func TestProjects_SubmitOnlyFromDraft(t *testing.T) {
	for _, from := range []models.Status{models.StatusOnModeration, models.StatusAccepted, models.StatusRejected} {
		t.Run(string(from), func(t *testing.T) {
			s, b := newStore(t)
			ctx := context.Background()
			p := b.seed(models.Project{ProjectInput: sampleInput(), Status: from})
			require.NoError(t, s.LoadDetail(ctx, p.ID))
			require.NoError(t, s.Fetch(ctx))

			_, err := s.Submit(ctx, p.ID)
			require.Error(t, err)
			assert.True(t, api.IsForbidden(err))
			assert.Equal(t, from, s.Active().Status)
			assert.Equal(t, from, s.List()[0].Status)
		})
	}
}

func TestProjects_ModerationOnlyFromOnModeration(t *testing.T) {
	type op func(s *Projects, id int64) (models.Project, error)
	ops := map[string]op{
		"accept": func(s *Projects, id int64) (models.Project, error) {
			return s.Accept(context.Background(), id, "ok")
		},
		"reject": func(s *Projects, id int64) (models.Project, error) {
			return s.Reject(context.Background(), id, "no")
		},
		"to_draft": func(s *Projects, id int64) (models.Project, error) {
			return s.ReturnToDraft(context.Background(), id, "fix it")
		},
	}
	for name, do := range ops {
		for _, from := range []models.Status{models.StatusDraft, models.StatusAccepted, models.StatusRejected} {
			t.Run(name+" from "+string(from), func(t *testing.T) {
				s, b := newStore(t)
				p := b.seed(models.Project{ProjectInput: sampleInput(), Status: from})
				require.NoError(t, s.Fetch(context.Background()))

				_, err := do(s, p.ID)
				require.Error(t, err)
				assert.Equal(t, from, s.List()[0].Status)
				assert.Nil(t, s.List()[0].ModeratorComment)
			})
		}
	}
}

func TestProjects_StatusAlwaysValid(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})

	steps := []func() error{
		func() error { _, err := s.Submit(ctx, p.ID); return err },
		func() error { _, err := s.ReturnToDraft(ctx, p.ID, "more"); return err },
		func() error { _, err := s.Accept(ctx, p.ID, "x"); return err },
		func() error { _, err := s.Submit(ctx, p.ID); return err },
		func() error { _, err := s.Reject(ctx, p.ID, "no"); return err },
		func() error { _, err := s.Submit(ctx, p.ID); return err },
	}
	require.NoError(t, s.LoadDetail(ctx, p.ID))
	for _, step := range steps {
		_ = step()
		require.NoError(t, s.Fetch(ctx))
		for _, got := range s.List() {
			assert.True(t, got.Status.Valid(), "status %q", got.Status)
		}
		assert.True(t, s.Active().Status.Valid())
	}
	assert.Equal(t, models.StatusRejected, s.Active().Status)
}

func TestProjects_UpdateRefreshesActive(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.LoadDetail(ctx, p.ID))

	in := sampleInput()
	in.Title = "Renamed"
	in.GoalAmount = 5000
	updated, err := s.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, p.ID, active.ID)
	assert.Equal(t, "Renamed", active.Title)
	assert.Equal(t, 5000.0, active.GoalAmount)
	assert.Equal(t, "Renamed", s.List()[0].Title)
}

func TestProjects_FailedMutationLeavesStateUntouched(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.LoadDetail(ctx, p.ID))
	before, beforeActive := s.List(), s.Active()

	b.updateHook = func(int64) error {
		return &api.Error{Kind: api.KindTransport, Message: "backend is unreachable", Detail: "dial tcp: refused"}
	}
	in := sampleInput()
	in.Title = "Never"
	_, err := s.Update(ctx, p.ID, in)
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
	assert.Equal(t, before, s.List())
	assert.Equal(t, beforeActive, s.Active())
	assert.Contains(t, s.Err(), "backend is unreachable")
	assert.NotContains(t, s.Err(), "dial tcp")

	b.transitionHook = func(int64, models.Action) error {
		return &api.Error{Kind: api.KindServer, Status: 500, Message: "backend error"}
	}
	_, err = s.Submit(ctx, p.ID)
	require.Error(t, err)
	assert.Equal(t, models.StatusDraft, s.Active().Status)
	assert.Equal(t, models.StatusDraft, s.List()[0].Status)
}

func TestProjects_CreateValidatesBeforeCall(t *testing.T) {
	s, b := newStore(t)
	in := sampleInput()
	in.EndDate = in.StartDate

	_, err := s.Create(context.Background(), in)
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "end_date")
	assert.Zero(t, b.callCount("CreateProject"))
}

func TestProjects_Delete(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	keep := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	gone := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	b.seedReward(models.Reward{ProjectID: gone.ID, RewardInput: models.RewardInput{Title: "Mug", Price: 5, Quantity: 1}})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.LoadDetail(ctx, gone.ID))
	require.Len(t, s.Rewards(), 1)

	require.NoError(t, s.Delete(ctx, gone.ID))
	require.Len(t, s.List(), 1)
	assert.Equal(t, keep.ID, s.List()[0].ID)
	assert.Nil(t, s.Active())
	assert.Empty(t, s.Rewards())
	assert.Zero(t, s.RewardsProjectID())

	require.NoError(t, s.Fetch(ctx))
	for _, p := range s.List() {
		assert.NotEqual(t, gone.ID, p.ID)
	}
}

func TestProjects_DeleteOnlyDraft(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusOnModeration})
	require.NoError(t, s.Fetch(ctx))

	err := s.Delete(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, api.IsForbidden(err))
	assert.Len(t, s.List(), 1)
}

func TestProjects_ListFailureKeepsPreviousView(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	require.NoError(t, s.Fetch(ctx))

	b.projectsHook = func() error { return &api.Error{Kind: api.KindTransport, Message: "backend is unreachable"} }
	require.Error(t, s.Fetch(ctx))
	assert.Len(t, s.List(), 1)
	assert.Contains(t, s.Err(), "failed to load projects")

	b.projectsHook = nil
	require.NoError(t, s.Fetch(ctx))
	assert.Empty(t, s.Err())
}

func TestProjects_LoadDetailIsAtomic(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	first := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	second := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	b.seedReward(models.Reward{ProjectID: first.ID, RewardInput: models.RewardInput{Title: "A", Price: 1, Quantity: 1}})
	require.NoError(t, s.LoadDetail(ctx, first.ID))

	b.rewardsHook = func(id int64) error {
		if id == second.ID {
			return &api.Error{Kind: api.KindServer, Status: 500, Message: "backend error"}
		}
		return nil
	}
	require.Error(t, s.LoadDetail(ctx, second.ID))
	assert.Equal(t, first.ID, s.Active().ID)
	assert.Equal(t, first.ID, s.RewardsProjectID())
	require.Len(t, s.Rewards(), 1)
	assert.Equal(t, "A", s.Rewards()[0].Title)
}

func TestProjects_RewardManagementTouchesOnlyRewards(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.LoadDetail(ctx, p.ID))
	listBefore := s.List()

	r, err := s.AddReward(ctx, p.ID, models.RewardInput{Title: "Mug", Price: 10, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, s.Rewards(), 1)

	updated, err := s.UpdateReward(ctx, p.ID, r.ID, models.RewardInput{Title: "Big mug", Price: 15, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	require.Len(t, s.Rewards(), 1)
	assert.Equal(t, "Big mug", s.Rewards()[0].Title)

	require.NoError(t, s.RemoveReward(ctx, p.ID, r.ID))
	assert.Empty(t, s.Rewards())
	assert.Equal(t, listBefore, s.List())

	_, err = s.AddReward(ctx, p.ID, models.RewardInput{Title: "", Price: 0})
	require.Error(t, err)
	assert.Equal(t, 1, b.callCount("CreateReward"))
}

func TestProjects_ContributeRefreshesRewards(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusAccepted})
	r := b.seedReward(models.Reward{ProjectID: p.ID, RewardInput: models.RewardInput{Title: "Ticket", Price: 25, Quantity: 2}})
	require.NoError(t, s.LoadDetail(ctx, p.ID))

	c, err := s.Contribute(ctx, p.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, c.RewardID)
	require.Len(t, s.Rewards(), 1)
	assert.Equal(t, 1, s.Rewards()[0].Quantity)
	assert.False(t, s.RewardsStale())

	contribs := NewContributions(b, nil)
	require.NoError(t, contribs.Fetch(ctx))
	require.Len(t, contribs.List(), 1)
	got := contribs.List()[0]
	assert.Equal(t, p.ID, got.ProjectID)
	assert.Equal(t, r.ID, got.RewardID)
	assert.Equal(t, int64(42), got.ProfileID)
	assert.Equal(t, 25.0, contribs.TotalSpent())
}

func TestProjects_ContributeWithFailedRefresh(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusAccepted})
	r := b.seedReward(models.Reward{ProjectID: p.ID, RewardInput: models.RewardInput{Title: "Ticket", Price: 25, Quantity: 2}})
	require.NoError(t, s.LoadDetail(ctx, p.ID))

	b.rewardsHook = func(int64) error {
		return &api.Error{Kind: api.KindTransport, Message: "backend is unreachable"}
	}
	c, err := s.Contribute(ctx, p.ID, r.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRewardsStale)
	assert.True(t, api.IsTransport(err))
	assert.Equal(t, r.ID, c.RewardID)
	assert.True(t, s.RewardsStale())
	assert.Equal(t, 2, s.Rewards()[0].Quantity)

	b.rewardsHook = nil
	require.NoError(t, s.FetchRewards(ctx, p.ID))
	assert.False(t, s.RewardsStale())
	assert.Equal(t, 1, s.Rewards()[0].Quantity)
}

func TestProjects_ContributeFailure(t *testing.T) {
	s, b := newStore(t)
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	r := b.seedReward(models.Reward{ProjectID: p.ID, RewardInput: models.RewardInput{Title: "Ticket", Price: 25, Quantity: 2}})

	_, err := s.Contribute(context.Background(), p.ID, r.ID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRewardsStale))
	assert.Zero(t, b.callCount("Rewards"))
}

func TestProjects_FetchRewardsDropsForeignFocus(t *testing.T) {
	s, b := newStore(t)
	ctx := context.Background()
	a := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	other := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	require.NoError(t, s.LoadDetail(ctx, a.ID))

	require.NoError(t, s.FetchRewards(ctx, other.ID))
	assert.Nil(t, s.Active())
	assert.Equal(t, other.ID, s.RewardsProjectID())
}

// blockingBackend holds chosen calls until released so a test can reorder responses.
type blockingBackend struct {
	*memBackend
	gates map[string]chan struct{}
}

func (b *blockingBackend) wait(name string) {
	if g, ok := b.gates[name]; ok {
		<-g
	}
}

func (b *blockingBackend) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	p, err := b.memBackend.UpdateProject(ctx, id, in)
	b.wait(in.Title)
	return p, err
}

func (b *blockingBackend) Projects(ctx context.Context) ([]models.Project, error) {
	list, err := b.memBackend.Projects(ctx)
	b.wait("list")
	return list, err
}

func TestProjects_StaleUpdateResponseDiscarded(t *testing.T) {
	mem := newMemBackend()
	p := mem.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	b := &blockingBackend{memBackend: mem, gates: map[string]chan struct{}{"first": make(chan struct{})}}
	s := NewProjects(b, nil)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.LoadDetail(ctx, p.ID))

	in1, in2 := sampleInput(), sampleInput()
	in1.Title, in2.Title = "first", "second"

	done := make(chan error)
	go func() {
		_, err := s.Update(ctx, p.ID, in1)
		done <- err
	}()
	// wait until the first update holds its ticket
	require.Eventually(t, s.Loading, timeout, tick)

	_, err := s.Update(ctx, p.ID, in2)
	require.NoError(t, err)
	assert.Equal(t, "second", s.Active().Title)

	close(b.gates["first"])
	require.NoError(t, <-done)
	assert.Equal(t, "second", s.Active().Title)
	assert.Equal(t, "second", s.List()[0].Title)
}

func TestProjects_StaleDetailDoesNotRevertNewerUpdate(t *testing.T) {
	b := newMemBackend()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	s := NewProjects(b, nil)
	ctx := context.Background()

	fetched, release := make(chan struct{}), make(chan struct{})
	b.rewardsHook = func(int64) error {
		close(fetched)
		<-release
		return nil
	}

	done := make(chan error)
	go func() { done <- s.LoadDetail(ctx, p.ID) }()
	<-fetched

	in := sampleInput()
	in.Title = "new"
	_, err := s.Update(ctx, p.ID, in)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	require.NotNil(t, s.Active())
	assert.Equal(t, p.ID, s.Active().ID)
	assert.Equal(t, "new", s.Active().Title)
	assert.Equal(t, p.ID, s.RewardsProjectID())

	b.rewardsHook = nil
	require.NoError(t, s.Fetch(ctx))
	assert.Equal(t, "new", s.List()[0].Title)
}

func TestProjects_StaleDetailDoesNotRevertNewerTransition(t *testing.T) {
	b := newMemBackend()
	p := b.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	s := NewProjects(b, nil)
	ctx := context.Background()

	fetched, release := make(chan struct{}), make(chan struct{})
	b.rewardsHook = func(int64) error {
		close(fetched)
		<-release
		return nil
	}

	done := make(chan error)
	go func() { done <- s.LoadDetail(ctx, p.ID) }()
	<-fetched

	_, err := s.Submit(ctx, p.ID)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	require.NotNil(t, s.Active())
	assert.Equal(t, models.StatusOnModeration, s.Active().Status)
}

func TestProjects_StaleListDoesNotResurrectOrRevert(t *testing.T) {
	mem := newMemBackend()
	doomed := mem.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	edited := mem.seed(models.Project{ProjectInput: sampleInput(), Status: models.StatusDraft})
	b := &blockingBackend{memBackend: mem, gates: map[string]chan struct{}{}}
	s := NewProjects(b, nil)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	b.gates["list"] = make(chan struct{})
	done := make(chan error)
	go func() { done <- s.Fetch(ctx) }()
	require.Eventually(t, func() bool { return mem.callCount("Projects") == 2 }, timeout, tick)

	in := sampleInput()
	in.Title = "edited"
	_, err := s.Update(ctx, edited.ID, in)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, doomed.ID))

	close(b.gates["list"])
	require.NoError(t, <-done)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, edited.ID, list[0].ID)
	assert.Equal(t, "edited", list[0].Title)
}

func TestProjects_LoadingFlag(t *testing.T) {
	mem := newMemBackend()
	b := &blockingBackend{memBackend: mem, gates: map[string]chan struct{}{"list": make(chan struct{})}}
	s := NewProjects(b, nil)

	assert.False(t, s.Loading())
	done := make(chan error)
	go func() { done <- s.Fetch(context.Background()) }()
	require.Eventually(t, s.Loading, timeout, tick)
	close(b.gates["list"])
	require.NoError(t, <-done)
	assert.False(t, s.Loading())
}
