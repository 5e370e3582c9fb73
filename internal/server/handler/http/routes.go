package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/auth"
	"github.com/atinyakov/crowdfund/internal/metrics"
	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
)

// TokenValidator checks access and refresh tokens.
type TokenValidator interface {
	ValidateAccess(token string) (*auth.Claims, error)
	ValidateRefresh(token string) (*auth.Claims, error)
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth          *AuthHandler
	Projects      *ProjectHandler
	Rewards       *RewardHandler
	Contributions *ContributionHandler
}

// NewRouter constructs the HTTP handler serving the crowdfunding API.
//
// Middleware chain (applied in order):
//  1. Recoverer turns panics into 500 answers
//  2. StripSlashes lets every path match with or without a trailing slash
//  3. AllowContentType("application/json") rejects non-JSON bodies
//  4. WithRequestLogging(logger) logs each request with its request id
//  5. PrometheusMiddleware records request counts and latencies
//
// Routes:
//
//	POST   /auth/register                         public
//	POST   /auth/login                            public, rate limited per client
//	POST   /auth/refresh                          refresh token
//	GET    /profile/me, PUT /profile/me           any profile
//	GET    /profile                               admin
//	GET    /projects, GET /projects/{id}          any profile
//	POST   /projects, PUT|DELETE /projects/{id}   author
//	POST   /projects/{id}/submit                  author
//	POST   /projects/{id}/accept|reject|to_draft  admin, ?message=
//	GET    /projects/{id}/rewards                 any profile
//	POST   /projects/{id}/rewards                 author
//	PATCH|DELETE /projects/{id}/rewards/{reward_id} author
//	POST   /contrib/{project_id}/rewards/{reward_id}/contrib investor
//	GET    /contrib/{project_id}/rewards/{reward_id}/contrib any profile
//	GET    /contrib/my                            investor
//	GET    /contrib/stats                         public
//	GET    /metrics                               public
func NewRouter(h Handlers, tokens TokenValidator, limiter *middleware.RateLimiter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.StripSlashes)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.PrometheusMiddleware)

	access := middleware.BearerAuth(tokens.ValidateAccess, logger)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.With(limiter.Handler).Post("/login", h.Auth.Login)
		r.With(middleware.BearerAuth(tokens.ValidateRefresh, logger)).Post("/refresh", h.Auth.Refresh)
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(access)
		r.With(middleware.RequireAdmin).Get("/", h.Auth.Profiles)
		r.Get("/me", h.Auth.Me)
		r.Put("/me", h.Auth.UpdateMe)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Use(access)
		r.Get("/", h.Projects.List)
		r.With(middleware.RequireAuthor).Post("/", h.Projects.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Projects.Get)
			r.Get("/rewards", h.Rewards.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuthor)
				r.Put("/", h.Projects.Update)
				r.Delete("/", h.Projects.Delete)
				r.Post("/submit", h.Projects.Transition(models.ActionSubmit))
				r.Post("/rewards", h.Rewards.Create)
				r.Patch("/rewards/{reward_id}", h.Rewards.Update)
				r.Delete("/rewards/{reward_id}", h.Rewards.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/accept", h.Projects.Transition(models.ActionAccept))
				r.Post("/reject", h.Projects.Transition(models.ActionReject))
				r.Post("/to_draft", h.Projects.Transition(models.ActionReturnToDraft))
			})
		})
	})

	r.Route("/contrib", func(r chi.Router) {
		r.Get("/stats", h.Contributions.Stats)

		r.Group(func(r chi.Router) {
			r.Use(access)
			r.Get("/{project_id}/rewards/{reward_id}/contrib", h.Contributions.ByReward)
			r.With(middleware.RequireInvestor).Post("/{project_id}/rewards/{reward_id}/contrib", h.Contributions.Contribute)
			r.With(middleware.RequireInvestor).Get("/my", h.Contributions.Mine)
		})
	})

	return r
}
