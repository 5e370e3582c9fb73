package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
)

// RewardService defines the reward operations required by RewardHandler.
type RewardService interface {
	List(ctx context.Context, projectID int64) ([]models.Reward, error)
	Create(ctx context.Context, actor, projectID int64, in models.RewardInput) (models.Reward, error)
	Update(ctx context.Context, actor, projectID, id int64, in models.RewardInput) (models.Reward, error)
	Delete(ctx context.Context, actor, projectID, id int64) error
}

// RewardHandler serves the rewards of a project.
type RewardHandler struct {
	RewardService RewardService
	Logger        *zap.Logger
}

// List handles GET /projects/{id}/rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.RewardService.List(r.Context(), projectID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []models.Reward{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /projects/{id}/rewards.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.RewardInput
	if !decode(w, r, &in) {
		return
	}
	rw, err := h.RewardService.Create(r.Context(), middleware.ProfileID(r.Context()), projectID, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

// Update handles PATCH /projects/{id}/rewards/{reward_id}.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reward_id")
	if !ok {
		return
	}
	var in models.RewardInput
	if !decode(w, r, &in) {
		return
	}
	rw, err := h.RewardService.Update(r.Context(), middleware.ProfileID(r.Context()), projectID, id, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

// Delete handles DELETE /projects/{id}/rewards/{reward_id} and answers 204.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	id, ok := pathID(w, r, "reward_id")
	if !ok {
		return
	}
	if err := h.RewardService.Delete(r.Context(), middleware.ProfileID(r.Context()), projectID, id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
