// Package session owns the client's bearer credential and the profile bound
// to it. A Manager is either anonymous (no credential) or authenticated
// (credential present, profile loaded or pending).
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/client/api"
	"github.com/atinyakov/crowdfund/internal/models"
)

// ErrNotAuthenticated is returned by operations that need a credential when none is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// Backend is the subset of the REST contract the session drives.
type Backend interface {
	Register(ctx context.Context, p models.ProfileCreate) (models.Profile, error)
	Login(ctx context.Context, cred models.Credentials) (models.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.AuthTokens, error)
	Me(ctx context.Context) (models.Profile, error)
	UpdateMe(ctx context.Context, in models.ProfileUpdate) (models.Profile, error)
}

// Navigator is notified when the session ends so the caller can move to the login surface.
type Navigator interface {
	ToLogin()
}

const (
	msgInvalidCredentials = "invalid login or password"
	msgAuthFailed         = "authorization failed"
	msgLoginTaken         = "login is already taken"
	msgRegisterFailed     = "registration failed"
	msgProfileFailed      = "failed to load profile"
	msgUpdateFailed       = "failed to update profile"
	msgRefreshFailed      = "failed to refresh session"
)

// Manager holds the session state. It is safe for concurrent use; the lock is
// never held across a backend call.
type Manager struct {
	backend Backend
	tokens  TokenStore
	nav     Navigator
	logger  *zap.Logger

	mu       sync.Mutex
	token    string
	refresh  string
	profile  *models.Profile
	gen      uint64
	inflight int
	errMsg   string
}

// New creates an anonymous Manager. tokens and nav may be nil.
func New(backend Backend, tokens TokenStore, nav Navigator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		tokens:  tokens,
		nav:     nav,
		logger:  logger,
	}
}

// Resume restores a persisted credential. The profile is not fetched here.
func (m *Manager) Resume(ctx context.Context) error {
	if m.tokens == nil {
		return nil
	}
	t, err := m.tokens.Load()
	if err != nil {
		m.logger.Warn("failed to load persisted credential", zap.Error(err))
		return fmt.Errorf("resume session: %w", err)
	}
	if t.AccessToken == "" {
		return nil
	}

	m.mu.Lock()
	m.token = t.AccessToken
	m.refresh = t.RefreshToken
	m.profile = nil
	m.gen++
	m.mu.Unlock()
	m.logger.Debug("session resumed")
	return nil
}

// Login obtains a credential and then loads the profile for it. On failure
// the state is unchanged and Err reports a human-readable message.
func (m *Manager) Login(ctx context.Context, login, password string) error {
	cred := models.Credentials{Login: login, Password: password}
	if err := cred.Validate(); err != nil {
		m.setErr(msgInvalidCredentials)
		return err
	}

	done := m.begin()
	tok, err := m.backend.Login(ctx, cred)
	done()
	if err != nil {
		m.setErr(loginMessage(err))
		m.logger.Info("login failed", zap.String("login", login), zap.Error(err))
		return fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		m.setErr(msgAuthFailed)
		return errors.New("login: backend returned an empty access token")
	}

	m.mu.Lock()
	m.token = tok.AccessToken
	m.refresh = tok.RefreshToken
	m.profile = nil
	m.gen++
	m.errMsg = ""
	m.mu.Unlock()
	m.persist(Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken})

	return m.FetchProfile(ctx)
}

// Register creates a profile and logs in with the same login and password.
func (m *Manager) Register(ctx context.Context, p models.ProfileCreate) (models.Profile, error) {
	if err := p.Validate(); err != nil {
		m.setErr(msgRegisterFailed)
		return models.Profile{}, err
	}

	done := m.begin()
	created, err := m.backend.Register(ctx, p)
	done()
	if err != nil {
		if api.IsConflict(err) {
			m.setErr(msgLoginTaken)
		} else {
			m.setErr(msgRegisterFailed)
		}
		m.logger.Info("registration failed", zap.String("login", p.Login), zap.Error(err))
		return models.Profile{}, fmt.Errorf("register: %w", err)
	}

	if err := m.Login(ctx, p.Login, p.Password); err != nil {
		return created, err
	}
	return created, nil
}

// FetchProfile loads the profile for the current credential. Without a
// credential it does nothing. An authorization failure ends the session;
// any other failure is reported and the session is kept.
func (m *Manager) FetchProfile(ctx context.Context) error {
	m.mu.Lock()
	token, gen := m.token, m.gen
	m.mu.Unlock()
	if token == "" {
		return nil
	}

	done := m.begin()
	p, err := m.backend.Me(ctx)
	done()
	if err != nil {
		if api.IsUnauthorized(err) {
			m.logger.Info("credential rejected, ending session", zap.Error(err))
			if m.generation() == gen {
				m.Logout()
			}
			m.setErr(msgAuthFailed)
			return fmt.Errorf("fetch profile: %w", err)
		}
		m.setErr(msgProfileFailed)
		m.logger.Warn("failed to fetch profile", zap.Error(err))
		return fmt.Errorf("fetch profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		m.logger.Debug("discarding profile for a replaced credential", zap.Int64("profile_id", p.ID))
		return nil
	}
	m.profile = &p
	return nil
}

// Logout clears the credential, the profile and the persisted copy, then
// redirects to the login surface. It never fails.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.refresh = ""
	m.profile = nil
	m.gen++
	m.mu.Unlock()

	if m.tokens != nil {
		if err := m.tokens.Clear(); err != nil {
			m.logger.Warn("failed to clear persisted credential", zap.Error(err))
		}
	}
	if m.nav != nil {
		m.nav.ToLogin()
	}
}

// UpdateProfile replaces the base fields of the caller's profile.
func (m *Manager) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.Profile, error) {
	if !m.IsAuthenticated() {
		return models.Profile{}, ErrNotAuthenticated
	}
	if err := in.Validate(); err != nil {
		m.setErr(msgUpdateFailed)
		return models.Profile{}, err
	}
	gen := m.generation()

	done := m.begin()
	p, err := m.backend.UpdateMe(ctx, in)
	done()
	if err != nil {
		m.setErr(msgUpdateFailed)
		m.logger.Info("profile update failed", zap.Error(err))
		return models.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	m.mu.Lock()
	if m.gen == gen {
		m.profile = &p
	}
	m.mu.Unlock()
	return p, nil
}

// Refresh renews the credential with the refresh token. A rejected refresh
// token ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	refresh, gen := m.refresh, m.gen
	m.mu.Unlock()
	if refresh == "" {
		return ErrNotAuthenticated
	}

	done := m.begin()
	tok, err := m.backend.Refresh(ctx, refresh)
	done()
	if err != nil {
		m.setErr(msgRefreshFailed)
		if api.IsUnauthorized(err) && m.generation() == gen {
			m.logger.Info("refresh token rejected, ending session", zap.Error(err))
			m.Logout()
		}
		return fmt.Errorf("refresh: %w", err)
	}
	if tok.AccessToken == "" {
		m.setErr(msgRefreshFailed)
		return errors.New("refresh: backend returned an empty access token")
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return nil
	}
	m.token = tok.AccessToken
	if tok.RefreshToken != "" {
		m.refresh = tok.RefreshToken
	}
	saved := Tokens{AccessToken: m.token, RefreshToken: m.refresh}
	m.mu.Unlock()
	m.persist(saved)
	return nil
}

// Token returns the current bearer credential. It satisfies api.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAuthenticated reports whether a credential is held. The profile may still be loading.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// HasProfile reports whether the profile has been loaded.
func (m *Manager) HasProfile() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile != nil
}

// Profile returns a copy of the loaded profile, or nil.
func (m *Manager) Profile() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// IsAdmin is false until a profile with the admin flag is loaded.
func (m *Manager) IsAdmin() bool {
	return m.capability(func(c models.Capabilities) bool { return c.IsAdmin })
}

// IsAuthor is false until a profile with the author flag is loaded.
func (m *Manager) IsAuthor() bool {
	return m.capability(func(c models.Capabilities) bool { return c.IsAuthor })
}

// IsInvestor is false until a profile with the investor flag is loaded.
func (m *Manager) IsInvestor() bool {
	return m.capability(func(c models.Capabilities) bool { return c.IsInvestor })
}

// Loading reports whether a backend call is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// Err returns the message of the last failure, or an empty string.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Manager) capability(flag func(models.Capabilities) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && m.profile != nil && flag(m.profile.Capabilities)
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) begin() func() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}
}

func (m *Manager) setErr(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()
}

func (m *Manager) persist(t Tokens) {
	if m.tokens == nil {
		return
	}
	if err := m.tokens.Save(t); err != nil {
		m.logger.Warn("failed to persist credential", zap.Error(err))
	}
}

func loginMessage(err error) string {
	if api.IsUnauthorized(err) || api.IsValidation(err) {
		return msgInvalidCredentials
	}
	return msgAuthFailed
}
