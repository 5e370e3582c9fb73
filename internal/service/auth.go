// Package service provides the business logic of the backend: accounts,
// the project lifecycle, rewards and contributions, delegating persistence to
// repository interfaces.
package service

import (
	"context"
	"errors"

	"github.com/atinyakov/crowdfund/internal/auth"
	"github.com/atinyakov/crowdfund/internal/models"
	"github.com/atinyakov/crowdfund/internal/repository"
)

// ProfileRepository defines the persistence operations
// required by the authentication service.
type ProfileRepository interface {
	// Create stores a new profile with an already hashed password.
	// Returns repository.ErrConflict if the login is taken.
	Create(ctx context.Context, in models.ProfileCreate, hashedPassword string) (models.Profile, error)
	// GetByLogin fetches the account with the given login.
	GetByLogin(ctx context.Context, login string) (repository.Account, error)
	// GetByID fetches the account with the given id.
	GetByID(ctx context.Context, id int64) (repository.Account, error)
	// List returns every profile.
	List(ctx context.Context) ([]models.Profile, error)
	// Update overwrites the self-editable fields of a profile.
	Update(ctx context.Context, id int64, f models.ProfileFields) (models.Profile, error)
}

// TokenIssuer creates token pairs for a profile.
type TokenIssuer interface {
	Pair(p models.Profile) (models.AuthTokens, error)
}

// AuthService implements registration, login, token refresh and profile
// operations by delegating to a ProfileRepository.
type AuthService struct {
	// repo performs the data-layer operations.
	repo   ProfileRepository
	tokens TokenIssuer
	hash   func(string) (string, error)
	check  func(hash, password string) bool
}

// NewAuthService constructs a new AuthService using the provided repository
// and token issuer. Passwords are hashed with bcrypt.
func NewAuthService(repo ProfileRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		hash:   auth.HashPassword,
		check:  auth.CheckPassword,
	}
}

// Register creates a profile. Returns ErrValidation for a malformed payload
// and ErrConflict if the login is already registered.
func (s *AuthService) Register(ctx context.Context, in models.ProfileCreate) (models.Profile, error) {
	if err := in.Validate(); err != nil {
		return models.Profile{}, invalid(err)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return models.Profile{}, err
	}
	p, err := s.repo.Create(ctx, in, hash)
	if errors.Is(err, repository.ErrConflict) {
		return models.Profile{}, because(ErrConflict, "login already registered")
	}
	return p, err
}

// Login exchanges credentials for a token pair. Unknown logins and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, c models.Credentials) (models.AuthTokens, error) {
	if err := c.Validate(); err != nil {
		return models.AuthTokens{}, invalid(err)
	}
	a, err := s.repo.GetByLogin(ctx, c.Login)
	if errors.Is(err, repository.ErrNotFound) {
		return models.AuthTokens{}, ErrUnauthorized
	}
	if err != nil {
		return models.AuthTokens{}, err
	}
	if !s.check(a.HashedPassword, c.Password) {
		return models.AuthTokens{}, ErrUnauthorized
	}
	return s.issue(a)
}

// Refresh issues a new pair for the profile a valid refresh token was issued to.
func (s *AuthService) Refresh(ctx context.Context, profileID int64) (models.AuthTokens, error) {
	a, err := s.repo.GetByID(ctx, profileID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.AuthTokens{}, ErrUnauthorized
	}
	if err != nil {
		return models.AuthTokens{}, err
	}
	return s.issue(a)
}

func (s *AuthService) issue(a repository.Account) (models.AuthTokens, error) {
	if !a.Active {
		return models.AuthTokens{}, because(ErrForbidden, "inactive user")
	}
	return s.tokens.Pair(a.Profile)
}

// Me returns the profile of the caller.
func (s *AuthService) Me(ctx context.Context, profileID int64) (models.Profile, error) {
	a, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return models.Profile{}, missing("profile", err)
	}
	return a.Profile, nil
}

// UpdateMe overwrites the caller's self-editable fields.
func (s *AuthService) UpdateMe(ctx context.Context, profileID int64, f models.ProfileFields) (models.Profile, error) {
	if err := f.Validate(); err != nil {
		return models.Profile{}, invalid(err)
	}
	p, err := s.repo.Update(ctx, profileID, f)
	if err != nil {
		return models.Profile{}, missing("profile", err)
	}
	return p, nil
}

// Profiles returns every registered profile.
func (s *AuthService) Profiles(ctx context.Context) ([]models.Profile, error) {
	return s.repo.List(ctx)
}
