// Package guard gates navigation between client surfaces on the session state.
package guard

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Route names a client surface.
type Route string

const (
	RouteLogin       Route = "login"
	RouteRegister    Route = "register"
	RouteMain        Route = "main"
	RouteProjects    Route = "projects"
	RouteProjectCard Route = "projectCard"
	RouteInvestments Route = "investitions"
)

// Access is the requirement a route places on the session.
type Access int

const (
	// Public routes are reachable in any state.
	Public Access = iota
	// GuestOnly routes redirect an authenticated session to RouteMain.
	GuestOnly
	// AuthRequired routes redirect an anonymous session to RouteLogin.
	AuthRequired
)

var routes = map[Route]Access{
	RouteLogin:       GuestOnly,
	RouteRegister:    GuestOnly,
	RouteMain:        AuthRequired,
	RouteProjects:    AuthRequired,
	RouteProjectCard: AuthRequired,
	RouteInvestments: AuthRequired,
}

// AccessOf returns the requirement of r. Unknown routes are public.
func AccessOf(r Route) Access {
	return routes[r]
}

// Session is what the guard needs from the session manager.
type Session interface {
	IsAuthenticated() bool
	HasProfile() bool
	FetchProfile(ctx context.Context) error
}

// Guard resolves a requested route into the one that should be shown.
type Guard struct {
	session Session
	logger  *zap.Logger
}

// New creates a Guard.
func New(session Session, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{session: session, logger: logger}
}

// Resolve returns the route to show for a request of to. When a credential
// is held without a profile, the profile is fetched first; a failed fetch is
// not an error here, the session decides whether it ends.
func (g *Guard) Resolve(ctx context.Context, to Route) Route {
	if g.session.IsAuthenticated() && !g.session.HasProfile() {
		if err := g.session.FetchProfile(ctx); err != nil {
			g.logger.Debug("profile fetch during navigation failed", zap.Error(err))
		}
	}

	authed := g.session.IsAuthenticated()
	switch AccessOf(to) {
	case AuthRequired:
		if !authed {
			return RouteLogin
		}
	case GuestOnly:
		if authed {
			return RouteMain
		}
	}
	return to
}

// Navigator tracks the current route. It receives the logout redirect from
// the session manager.
type Navigator struct {
	mu      sync.Mutex
	current Route
}

// NewNavigator starts at route start.
func NewNavigator(start Route) *Navigator {
	return &Navigator{current: start}
}

// Go moves to r.
func (n *Navigator) Go(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = r
}

// ToLogin moves to the login surface.
func (n *Navigator) ToLogin() {
	n.Go(RouteLogin)
}

// Current returns the route currently shown.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate resolves to through g and moves there, returning the route reached.
func (n *Navigator) Navigate(ctx context.Context, g *Guard, to Route) Route {
	r := g.Resolve(ctx, to)
	n.Go(r)
	return r
}
