package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/crowdfund/internal/metrics"
	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/repository"
)

// ProjectRepository defines the persistence operations needed by the ProjectService.
type ProjectRepository interface {
	// List returns every project.
	List(ctx context.Context) ([]models.Project, error)
	// Get fetches one project by id.
	Get(ctx context.Context, id int64) (models.Project, error)
	// Create stores a draft project owned by authorID.
	Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error)
	// Update overwrites the editable fields while the project is in status.
	Update(ctx context.Context, id int64, status models.Status, in models.ProjectInput) (models.Project, error)
	// SetStatus moves a project from one status to another. A nil comment
	// keeps the moderator comment, an empty one clears it.
	SetStatus(ctx context.Context, id int64, from, to models.Status, comment *string) (models.Project, error)
	// Delete removes a project that is still in status.
	Delete(ctx context.Context, id int64, status models.Status) error
}

// ProjectService implements the project moderation lifecycle. Every status
// change goes through the shared transition table in models.
type ProjectService struct {
	// repo is the underlying persistence repository.
	repo ProjectRepository
}

// NewProjectService constructs a ProjectService with the provided ProjectRepository.
func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	return s.repo.List(ctx)
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id int64) (models.Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Project{}, missing("project", err)
	}
	return p, nil
}

// Create stores a new draft owned by authorID.
func (s *ProjectService) Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error) {
	if err := in.Validate(); err != nil {
		return models.Project{}, invalid(err)
	}
	return s.repo.Create(ctx, authorID, in)
}

// Update replaces the editable fields of a draft owned by actor.
func (s *ProjectService) Update(ctx context.Context, actor, id int64, in models.ProjectInput) (models.Project, error) {
	if err := in.Validate(); err != nil {
		return models.Project{}, invalid(err)
	}
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return models.Project{}, err
	}
	if p.Status != models.StatusDraft {
		return models.Project{}, because(ErrForbidden, "project can no longer be edited")
	}
	updated, err := s.repo.Update(ctx, id, models.StatusDraft, in)
	if errors.Is(err, repository.ErrConflict) {
		return models.Project{}, because(ErrForbidden, "project can no longer be edited")
	}
	return updated, err
}

// Transition applies a lifecycle action to project id. Submitting is reserved
// for the owner; message becomes the moderator comment of moderation actions
// and is required to return a project to draft.
func (s *ProjectService) Transition(ctx context.Context, actor, id int64, action models.Action, message string) (models.Project, error) {
	if action == models.ActionDelete {
		return models.Project{}, because(ErrInvalidTransition, "use delete to remove a project")
	}
	message = strings.TrimSpace(message)
	if action.RequiresComment() && message == "" {
		return models.Project{}, invalid(errMessageRequired)
	}

	var p models.Project
	var err error
	if action == models.ActionSubmit {
		p, err = s.owned(ctx, actor, id)
	} else {
		p, err = s.Get(ctx, id)
	}
	if err != nil {
		return models.Project{}, err
	}

	next, err := p.Status.Apply(action)
	if err != nil {
		return models.Project{}, because(ErrInvalidTransition, "cannot %s a project in status %s", action, p.Status)
	}

	var comment *string
	if action.IsModeration() {
		comment = &message
	}
	updated, err := s.repo.SetStatus(ctx, id, p.Status, next, comment)
	if errors.Is(err, repository.ErrConflict) {
		return models.Project{}, because(ErrInvalidTransition, "project status changed concurrently")
	}
	if err != nil {
		return models.Project{}, err
	}
	metrics.ProjectTransitionsTotal.WithLabelValues(string(action)).Inc()
	return updated, nil
}

// Delete removes a draft owned by actor.
func (s *ProjectService) Delete(ctx context.Context, actor, id int64) error {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if !p.Status.Can(models.ActionDelete) {
		return because(ErrInvalidTransition, "only a draft can be deleted")
	}
	err = s.repo.Delete(ctx, id, p.Status)
	if errors.Is(err, repository.ErrConflict) {
		return because(ErrInvalidTransition, "only a draft can be deleted")
	}
	if err != nil {
		return err
	}
	metrics.ProjectTransitionsTotal.WithLabelValues(string(models.ActionDelete)).Inc()
	return nil
}

// owned fetches project id and checks that actor is its author.
func (s *ProjectService) owned(ctx context.Context, actor, id int64) (models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if p.AuthorID != actor {
		return models.Project{}, because(ErrForbidden, "project belongs to another author")
	}
	return p, nil
}
