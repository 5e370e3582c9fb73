package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
)

// ContributionService defines the operations required by ContributionHandler.
type ContributionService interface {
	Contribute(ctx context.Context, profileID, projectID, rewardID int64) (models.Contribution, error)
	ByReward(ctx context.Context, projectID, rewardID int64) ([]models.Contribution, error)
	Mine(ctx context.Context, profileID int64) ([]models.DetailedContribution, error)
	Stats(ctx context.Context) (models.GlobalStats, error)
}

// ContributionHandler serves contributions and the platform statistics.
type ContributionHandler struct {
	ContributionService ContributionService
	Logger              *zap.Logger
}

// Contribute handles POST /contrib/{project_id}/rewards/{reward_id}/contrib.
// An unavailable reward answers 409.
func (h *ContributionHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	projectID, rewardID, ok := rewardRef(w, r)
	if !ok {
		return
	}
	c, err := h.ContributionService.Contribute(r.Context(), middleware.ProfileID(r.Context()), projectID, rewardID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ByReward handles GET /contrib/{project_id}/rewards/{reward_id}/contrib.
func (h *ContributionHandler) ByReward(w http.ResponseWriter, r *http.Request) {
	projectID, rewardID, ok := rewardRef(w, r)
	if !ok {
		return
	}
	list, err := h.ContributionService.ByReward(r.Context(), projectID, rewardID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []models.Contribution{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Mine handles GET /contrib/my.
func (h *ContributionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.ContributionService.Mine(r.Context(), middleware.ProfileID(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []models.DetailedContribution{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Stats handles GET /contrib/stats/.
func (h *ContributionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.ContributionService.Stats(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func rewardRef(w http.ResponseWriter, r *http.Request) (projectID, rewardID int64, ok bool) {
	if projectID, ok = pathID(w, r, "project_id"); !ok {
		return
	}
	rewardID, ok = pathID(w, r, "reward_id")
	return
}
