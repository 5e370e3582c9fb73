// Package http provides the chi handlers and router of the crowdfunding
// REST API.
package http

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/metrics"
	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/service"
)

// AuthService defines the account operations required by AuthHandler.
type AuthService interface {
	// Register creates a profile from the registration payload.
	Register(ctx context.Context, in models.ProfileCreate) (models.Profile, error)
	// Login exchanges credentials for a token pair.
	Login(ctx context.Context, c models.Credentials) (models.AuthTokens, error)
	// Refresh issues a new pair for the profile of a valid refresh token.
	Refresh(ctx context.Context, profileID int64) (models.AuthTokens, error)
	// Me returns the caller's profile.
	Me(ctx context.Context, profileID int64) (models.Profile, error)
	// UpdateMe overwrites the caller's self-editable fields.
	UpdateMe(ctx context.Context, profileID int64, f models.ProfileFields) (models.Profile, error)
	// Profiles lists every profile.
	Profiles(ctx context.Context) ([]models.Profile, error)
}

// AuthHandler serves registration, login, token refresh and profile endpoints.
type AuthHandler struct {
	// AuthService performs the underlying account operations.
	AuthService AuthService
	// Logger receives unexpected failures.
	Logger *zap.Logger
}

// Register handles POST /auth/register/.
//
// It expects a ProfileCreate JSON body and answers 201 with the created
// profile, 422 on field errors and 409 if the login is taken.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileCreate
	if !decode(w, r, &req) {
		return
	}
	p, err := h.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Login handles POST /auth/login/. Unknown logins and wrong passwords both
// answer 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if !decode(w, r, &req) {
		return
	}
	tokens, err := h.AuthService.Login(r.Context(), req)
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrValidation):
		return "denied"
	}
	return "error"
}

// Refresh handles POST /auth/refresh/. It must be mounted behind BearerAuth
// configured with the refresh token validator.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.AuthService.Refresh(r.Context(), middleware.ProfileID(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// Me handles GET /profile/me/.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.AuthService.Me(r.Context(), middleware.ProfileID(r.Context()))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateMe handles PUT /profile/me/.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileFields
	if !decode(w, r, &req) {
		return
	}
	p, err := h.AuthService.UpdateMe(r.Context(), middleware.ProfileID(r.Context()), req)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Profiles handles GET /profile/.
func (h *AuthHandler) Profiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.AuthService.Profiles(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if list == nil {
		list = []models.Profile{}
	}
	writeJSON(w, http.StatusOK, list)
}
