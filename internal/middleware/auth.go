// Package middleware provides HTTP middlewares for authentication, role
// checks, logging, metrics and rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/auth"
	"github.com/atinyakov/crowdfund/internal/models"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// WriteDetail writes a JSON error body of the form {"detail": detail}.
func WriteDetail(w http.ResponseWriter, status int, detail any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"detail": detail})
}

// Validator checks a bearer token and returns its claims.
type Validator func(token string) (*auth.Claims, error)

// BearerAuth is a middleware that requires a valid bearer token.
//
// The token is taken from the Authorization header and checked with validate.
// On success the claims are stored in the request context, so they can be
// used downstream through ClaimsFrom and ProfileID.
func BearerAuth(validate Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("bearer token rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
				if errors.Is(err, auth.ErrTokenExpired) {
					WriteDetail(w, http.StatusUnauthorized, "Token expired")
					return
				}
				WriteDetail(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom extracts the token claims from the request context. Returns nil
// outside of BearerAuth.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// ProfileID returns the authenticated profile id, or 0 if there is none.
func ProfileID(ctx context.Context) int64 {
	c := ClaimsFrom(ctx)
	if c == nil {
		return 0
	}
	id, err := c.ProfileID()
	if err != nil {
		return 0
	}
	return id
}

// RequireRole rejects requests whose token lacks the capability reported by
// has. It must run after BearerAuth.
func RequireRole(has func(models.Capabilities) bool, detail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := ClaimsFrom(r.Context())
			if c == nil {
				WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !has(c.Capabilities()) {
				WriteDetail(w, http.StatusForbidden, detail)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthor admits profiles with the author capability.
func RequireAuthor(next http.Handler) http.Handler {
	return RequireRole(func(c models.Capabilities) bool { return c.IsAuthor }, "author role required")(next)
}

// RequireAdmin admits profiles with the admin capability.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(func(c models.Capabilities) bool { return c.IsAdmin }, "admin role required")(next)
}

// RequireInvestor admits profiles with the investor capability.
func RequireInvestor(next http.Handler) http.Handler {
	return RequireRole(func(c models.Capabilities) bool { return c.IsInvestor }, "investor role required")(next)
}
