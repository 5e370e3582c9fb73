package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
)

// ProjectService defines the project operations required by ProjectHandler.
type ProjectService interface {
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id int64) (models.Project, error)
	Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error)
	Update(ctx context.Context, actor, id int64, in models.ProjectInput) (models.Project, error)
	Transition(ctx context.Context, actor, id int64, action models.Action, message string) (models.Project, error)
	Delete(ctx context.Context, actor, id int64) error
}

// ProjectHandler serves project CRUD and lifecycle endpoints.
type ProjectHandler struct {
	ProjectService ProjectService
	Logger         *zap.Logger
}

// List handles GET /projects/.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.ProjectService.List(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []models.Project{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.ProjectService.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /projects/. The caller becomes the author of a new draft.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.ProjectService.Create(r.Context(), middleware.ProfileID(r.Context()), in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.ProjectInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.ProjectService.Update(r.Context(), middleware.ProfileID(r.Context()), id, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /projects/{id} and answers 204.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ProjectService.Delete(r.Context(), middleware.ProfileID(r.Context()), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transition returns a handler for POST /projects/{id}/<action>. Moderation
// actions read the moderator comment from the message query parameter.
func (h *ProjectHandler) Transition(action models.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var message string
		if action.IsModeration() {
			message = r.URL.Query().Get("message")
		}
		p, err := h.ProjectService.Transition(r.Context(), middleware.ProfileID(r.Context()), id, action, message)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
