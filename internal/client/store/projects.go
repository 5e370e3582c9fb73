// Package store holds the client-side views of projects, rewards,
// contributions and platform statistics. Every view changes only when the
// backend confirms an operation.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/models"
)

var (
	// ErrCommentRequired is returned by ReturnToDraft when the moderator comment is blank.
	ErrCommentRequired = errors.New("moderator comment is required")
	// ErrRewardsStale is wrapped into the error of a contribution whose rewards refresh failed.
	ErrRewardsStale = errors.New("rewards may be out of date")
)

// ProjectBackend is the part of the REST contract the project store drives.
type ProjectBackend interface {
	Projects(ctx context.Context) ([]models.Project, error)
	Project(ctx context.Context, id int64) (models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	Transition(ctx context.Context, id int64, a models.Action, message string) (models.Project, error)
	Rewards(ctx context.Context, projectID int64) ([]models.Reward, error)
	CreateReward(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error)
	UpdateReward(ctx context.Context, projectID, rewardID int64, in models.RewardInput) (models.Reward, error)
	DeleteReward(ctx context.Context, projectID, rewardID int64) error
	Contribute(ctx context.Context, projectID, rewardID int64) (models.Contribution, error)
}

// Projects owns three views: the project list, the focused (active) project
// and the rewards of the project in focus.
//
// Each call takes a ticket from one monotonic counter when it is issued. A
// response is applied only if no newer ticket has already been applied to the
// same project (or to the list, or to the same project's rewards); older
// responses are dropped. The newest confirmed copy of each project is kept so
// a dropped response can be answered with it even when no view holds the
// project. Confirmed deletions are remembered so an older list response cannot
// bring a deleted project back.
type Projects struct {
	backend ProjectBackend
	logger  *zap.Logger

	mu             sync.Mutex
	list           []models.Project
	active         *models.Project
	rewards        []models.Reward
	rewardsProject int64
	rewardsStale   bool

	tick           uint64
	listApplied    uint64
	focusIssued    uint64
	applied        map[int64]uint64
	confirmed      map[int64]models.Project
	rewardsApplied map[int64]uint64
	removed        map[int64]uint64

	inflight int
	errMsg   string
}

// NewProjects creates an empty store.
func NewProjects(backend ProjectBackend, logger *zap.Logger) *Projects {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projects{
		backend:        backend,
		logger:         logger,
		applied:        make(map[int64]uint64),
		confirmed:      make(map[int64]models.Project),
		rewardsApplied: make(map[int64]uint64),
		removed:        make(map[int64]uint64),
	}
}

// List returns a copy of the project list.
func (s *Projects) List() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.list)
}

// Active returns a copy of the focused project, or nil.
func (s *Projects) Active() *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	p := *s.active
	return &p
}

// Rewards returns a copy of the rewards in focus.
func (s *Projects) Rewards() []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rewards)
}

// RewardsProjectID returns the project the rewards view belongs to, or 0.
func (s *Projects) RewardsProjectID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewardsProject
}

// RewardsStale reports whether a contribution succeeded but the following
// rewards refresh did not. It is cleared by the next successful rewards load.
func (s *Projects) RewardsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewardsStale
}

// Loading reports whether a backend call is in flight.
func (s *Projects) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the last failure, or an empty string.
func (s *Projects) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Fetch replaces the project list with the backend's.
func (s *Projects) Fetch(ctx context.Context) error {
	ticket := s.begin()
	projects, err := s.backend.Projects(ctx)
	s.end()
	if err != nil {
		return s.fail("failed to load projects", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.listApplied {
		s.logger.Debug("discarding stale project list", zap.Uint64("ticket", ticket))
		return nil
	}
	s.listApplied = ticket

	next := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if deletedAt, ok := s.removed[p.ID]; ok && deletedAt > ticket {
			continue
		}
		if s.applied[p.ID] > ticket {
			if cur, ok := s.confirmed[p.ID]; ok {
				next = append(next, cur)
				continue
			}
		}
		s.applied[p.ID] = max(s.applied[p.ID], ticket)
		s.confirmed[p.ID] = p
		next = append(next, p)
	}
	s.list = next
	s.errMsg = ""
	return nil
}

// LoadDetail focuses one project: it fetches the project and its rewards and
// sets both views together. On any failure neither view changes.
func (s *Projects) LoadDetail(ctx context.Context, id int64) error {
	ticket := s.begin()
	s.mu.Lock()
	s.focusIssued = ticket
	s.mu.Unlock()

	p, err := s.backend.Project(ctx, id)
	if err != nil {
		s.end()
		return s.fail("failed to load project", err)
	}
	rewards, err := s.backend.Rewards(ctx, id)
	s.end()
	if err != nil {
		return s.fail("failed to load rewards", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.focusIssued {
		s.logger.Debug("discarding superseded detail load", zap.Int64("project_id", id))
		return nil
	}
	if deletedAt, ok := s.removed[id]; ok && deletedAt > ticket {
		return nil
	}
	if s.applied[id] > ticket {
		cur, ok := s.confirmed[id]
		if !ok {
			s.logger.Debug("discarding stale detail load", zap.Int64("project_id", id))
			return nil
		}
		p = cur
	} else {
		s.applied[id] = ticket
		s.replace(p)
	}
	s.active = &p
	if s.rewardsApplied[id] <= ticket || s.rewardsProject != id {
		s.rewards = rewards
		s.rewardsApplied[id] = max(s.rewardsApplied[id], ticket)
		s.rewardsStale = false
	}
	s.rewardsProject = id
	s.errMsg = ""
	return nil
}

// Create validates the input, creates a draft project and refreshes the list.
// If the refresh fails the created project is returned with the refresh error.
func (s *Projects) Create(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	if err := in.Validate(); err != nil {
		return models.Project{}, s.fail("invalid project", err)
	}

	s.begin()
	p, err := s.backend.CreateProject(ctx, in)
	s.end()
	if err != nil {
		return models.Project{}, s.fail("failed to create project", err)
	}
	s.logger.Info("project created", zap.Int64("project_id", p.ID))

	if err := s.Fetch(ctx); err != nil {
		return p, fmt.Errorf("project %d created: %w", p.ID, err)
	}
	return p, nil
}

// Update replaces the editable fields of a project.
func (s *Projects) Update(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	if err := in.Validate(); err != nil {
		return models.Project{}, s.fail("invalid project", err)
	}

	ticket := s.begin()
	p, err := s.backend.UpdateProject(ctx, id, in)
	s.end()
	if err != nil {
		return models.Project{}, s.fail("failed to update project", err)
	}
	s.applyProject(p, ticket)
	return p, nil
}

// Submit sends a draft to moderation.
func (s *Projects) Submit(ctx context.Context, id int64) (models.Project, error) {
	return s.transition(ctx, id, models.ActionSubmit, "")
}

// Accept approves a project on moderation. Moderators only.
func (s *Projects) Accept(ctx context.Context, id int64, message string) (models.Project, error) {
	return s.transition(ctx, id, models.ActionAccept, message)
}

// Reject declines a project on moderation. Moderators only.
func (s *Projects) Reject(ctx context.Context, id int64, message string) (models.Project, error) {
	return s.transition(ctx, id, models.ActionReject, message)
}

// ReturnToDraft sends a project on moderation back to its author. The
// comment is mandatory; a blank one fails with ErrCommentRequired before any call.
func (s *Projects) ReturnToDraft(ctx context.Context, id int64, message string) (models.Project, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Project{}, s.fail("cannot return project to draft", ErrCommentRequired)
	}
	return s.transition(ctx, id, models.ActionReturnToDraft, message)
}

func (s *Projects) transition(ctx context.Context, id int64, a models.Action, message string) (models.Project, error) {
	ticket := s.begin()
	p, err := s.backend.Transition(ctx, id, a, message)
	s.end()
	if err != nil {
		return models.Project{}, s.fail(fmt.Sprintf("failed to %s project", strings.ReplaceAll(string(a), "_", " ")), err)
	}
	s.logger.Info("project transitioned",
		zap.Int64("project_id", id),
		zap.String("action", string(a)),
		zap.String("status", string(p.Status)),
	)
	s.applyProject(p, ticket)
	return p, nil
}

// Delete removes a draft project. A focused project, and rewards in focus
// that belong to it, are cleared as well.
func (s *Projects) Delete(ctx context.Context, id int64) error {
	ticket := s.begin()
	err := s.backend.DeleteProject(ctx, id)
	s.end()
	if err != nil {
		return s.fail("failed to delete project", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[id] = ticket
	s.applied[id] = max(s.applied[id], ticket)
	delete(s.confirmed, id)
	s.list = slices.DeleteFunc(s.list, func(p models.Project) bool { return p.ID == id })
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	if s.rewardsProject == id {
		s.rewards = nil
		s.rewardsProject = 0
		s.rewardsStale = false
	}
	s.errMsg = ""
	return nil
}

// FetchRewards loads the rewards of a project into focus. If a different
// project was active it loses focus so the two views never disagree.
func (s *Projects) FetchRewards(ctx context.Context, projectID int64) error {
	ticket := s.begin()
	rewards, err := s.backend.Rewards(ctx, projectID)
	s.end()
	if err != nil {
		return s.fail("failed to load rewards", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.rewardsApplied[projectID] {
		s.logger.Debug("discarding stale rewards", zap.Int64("project_id", projectID))
		return nil
	}
	s.rewardsApplied[projectID] = ticket
	s.rewards = rewards
	s.rewardsProject = projectID
	s.rewardsStale = false
	if s.active != nil && s.active.ID != projectID {
		s.active = nil
	}
	s.errMsg = ""
	return nil
}

// AddReward creates a reward and appends it to the rewards in focus when they
// belong to the same project. The project list is never touched.
func (s *Projects) AddReward(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error) {
	if err := in.Validate(); err != nil {
		return models.Reward{}, s.fail("invalid reward", err)
	}

	ticket := s.begin()
	r, err := s.backend.CreateReward(ctx, projectID, in)
	s.end()
	if err != nil {
		return models.Reward{}, s.fail("failed to add reward", err)
	}
	s.upsertReward(projectID, r, ticket)
	return r, nil
}

// UpdateReward edits a reward and replaces it in the rewards in focus.
func (s *Projects) UpdateReward(ctx context.Context, projectID, rewardID int64, in models.RewardInput) (models.Reward, error) {
	if err := in.Validate(); err != nil {
		return models.Reward{}, s.fail("invalid reward", err)
	}

	ticket := s.begin()
	r, err := s.backend.UpdateReward(ctx, projectID, rewardID, in)
	s.end()
	if err != nil {
		return models.Reward{}, s.fail("failed to update reward", err)
	}
	s.upsertReward(projectID, r, ticket)
	return r, nil
}

// RemoveReward deletes a reward and drops it from the rewards in focus.
func (s *Projects) RemoveReward(ctx context.Context, projectID, rewardID int64) error {
	ticket := s.begin()
	err := s.backend.DeleteReward(ctx, projectID, rewardID)
	s.end()
	if err != nil {
		return s.fail("failed to remove reward", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewardsApplied[projectID] = max(s.rewardsApplied[projectID], ticket)
	if s.rewardsProject == projectID {
		s.rewards = slices.DeleteFunc(s.rewards, func(r models.Reward) bool { return r.ID == rewardID })
	}
	s.errMsg = ""
	return nil
}

// Contribute claims a reward and refreshes the rewards of that project, since
// its quantity may have changed. When the refresh fails the contribution is
// still returned, the error wraps ErrRewardsStale and RewardsStale reports true.
func (s *Projects) Contribute(ctx context.Context, projectID, rewardID int64) (models.Contribution, error) {
	s.begin()
	c, err := s.backend.Contribute(ctx, projectID, rewardID)
	s.end()
	if err != nil {
		return models.Contribution{}, s.fail("failed to contribute", err)
	}
	s.logger.Info("contribution made",
		zap.Int64("project_id", projectID),
		zap.Int64("reward_id", rewardID),
		zap.Int64("contribution_id", c.ID),
	)

	if err := s.FetchRewards(ctx, projectID); err != nil {
		s.mu.Lock()
		if s.rewardsProject == projectID {
			s.rewardsStale = true
		}
		s.mu.Unlock()
		return c, fmt.Errorf("%w: %w", ErrRewardsStale, err)
	}
	return c, nil
}

func (s *Projects) applyProject(p models.Project, ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.applied[p.ID] {
		s.logger.Debug("discarding stale project response",
			zap.Int64("project_id", p.ID),
			zap.Uint64("ticket", ticket),
		)
		return
	}
	s.applied[p.ID] = ticket
	s.replace(p)
	s.errMsg = ""
}

// replace records p as the newest confirmed copy and updates every view
// holding it. Callers hold s.mu.
func (s *Projects) replace(p models.Project) {
	s.confirmed[p.ID] = p
	for i := range s.list {
		if s.list[i].ID == p.ID {
			s.list[i] = p
		}
	}
	if s.active != nil && s.active.ID == p.ID {
		cp := p
		s.active = &cp
	}
}

func (s *Projects) upsertReward(projectID int64, r models.Reward, ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewardsApplied[projectID] = max(s.rewardsApplied[projectID], ticket)
	s.errMsg = ""
	if s.rewardsProject != projectID {
		return
	}
	for i := range s.rewards {
		if s.rewards[i].ID == r.ID {
			s.rewards[i] = r
			return
		}
	}
	s.rewards = append(s.rewards, r)
}

func (s *Projects) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.tick++
	return s.tick
}

func (s *Projects) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

func (s *Projects) fail(op string, err error) error {
	msg := describe(op, err)
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.logger.Warn(op, zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}
