package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/auth"
	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/models"
)

type fakeAuthService struct {
	register func(ctx context.Context, in models.ProfileCreate) (models.Profile, error)
	login    func(ctx context.Context, c models.Credentials) (models.AuthTokens, error)
	refresh  func(ctx context.Context, profileID int64) (models.AuthTokens, error)
	me       func(ctx context.Context, profileID int64) (models.Profile, error)
	updateMe func(ctx context.Context, profileID int64, f models.ProfileFields) (models.Profile, error)
	profiles func(ctx context.Context) ([]models.Profile, error)
}

func (f *fakeAuthService) Register(ctx context.Context, in models.ProfileCreate) (models.Profile, error) {
	return f.register(ctx, in)
}
func (f *fakeAuthService) Login(ctx context.Context, c models.Credentials) (models.AuthTokens, error) {
	return f.login(ctx, c)
}
func (f *fakeAuthService) Refresh(ctx context.Context, profileID int64) (models.AuthTokens, error) {
	return f.refresh(ctx, profileID)
}
func (f *fakeAuthService) Me(ctx context.Context, profileID int64) (models.Profile, error) {
	return f.me(ctx, profileID)
}
func (f *fakeAuthService) UpdateMe(ctx context.Context, profileID int64, pf models.ProfileFields) (models.Profile, error) {
	return f.updateMe(ctx, profileID, pf)
}
func (f *fakeAuthService) Profiles(ctx context.Context) ([]models.Profile, error) {
	return f.profiles(ctx)
}

type fakeProjectService struct {
	list       func(ctx context.Context) ([]models.Project, error)
	get        func(ctx context.Context, id int64) (models.Project, error)
	create     func(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error)
	update     func(ctx context.Context, actor, id int64, in models.ProjectInput) (models.Project, error)
	transition func(ctx context.Context, actor, id int64, a models.Action, message string) (models.Project, error)
	delete     func(ctx context.Context, actor, id int64) error
}

func (f *fakeProjectService) List(ctx context.Context) ([]models.Project, error) { return f.list(ctx) }
func (f *fakeProjectService) Get(ctx context.Context, id int64) (models.Project, error) {
	return f.get(ctx, id)
}
func (f *fakeProjectService) Create(ctx context.Context, authorID int64, in models.ProjectInput) (models.Project, error) {
	return f.create(ctx, authorID, in)
}
func (f *fakeProjectService) Update(ctx context.Context, actor, id int64, in models.ProjectInput) (models.Project, error) {
	return f.update(ctx, actor, id, in)
}
func (f *fakeProjectService) Transition(ctx context.Context, actor, id int64, a models.Action, message string) (models.Project, error) {
	return f.transition(ctx, actor, id, a, message)
}
func (f *fakeProjectService) Delete(ctx context.Context, actor, id int64) error {
	return f.delete(ctx, actor, id)
}

type fakeRewardService struct {
	list   func(ctx context.Context, projectID int64) ([]models.Reward, error)
	create func(ctx context.Context, actor, projectID int64, in models.RewardInput) (models.Reward, error)
	update func(ctx context.Context, actor, projectID, id int64, in models.RewardInput) (models.Reward, error)
	delete func(ctx context.Context, actor, projectID, id int64) error
}

func (f *fakeRewardService) List(ctx context.Context, projectID int64) ([]models.Reward, error) {
	return f.list(ctx, projectID)
}
func (f *fakeRewardService) Create(ctx context.Context, actor, projectID int64, in models.RewardInput) (models.Reward, error) {
	return f.create(ctx, actor, projectID, in)
}
func (f *fakeRewardService) Update(ctx context.Context, actor, projectID, id int64, in models.RewardInput) (models.Reward, error) {
	return f.update(ctx, actor, projectID, id, in)
}
func (f *fakeRewardService) Delete(ctx context.Context, actor, projectID, id int64) error {
	return f.delete(ctx, actor, projectID, id)
}

type fakeContributionService struct {
	contribute func(ctx context.Context, profileID, projectID, rewardID int64) (models.Contribution, error)
	byReward   func(ctx context.Context, projectID, rewardID int64) ([]models.Contribution, error)
	mine       func(ctx context.Context, profileID int64) ([]models.DetailedContribution, error)
	stats      func(ctx context.Context) (models.GlobalStats, error)
}

func (f *fakeContributionService) Contribute(ctx context.Context, profileID, projectID, rewardID int64) (models.Contribution, error) {
	return f.contribute(ctx, profileID, projectID, rewardID)
}
func (f *fakeContributionService) ByReward(ctx context.Context, projectID, rewardID int64) ([]models.Contribution, error) {
	return f.byReward(ctx, projectID, rewardID)
}
func (f *fakeContributionService) Mine(ctx context.Context, profileID int64) ([]models.DetailedContribution, error) {
	return f.mine(ctx, profileID)
}
func (f *fakeContributionService) Stats(ctx context.Context) (models.GlobalStats, error) {
	return f.stats(ctx)
}

// testAPI bundles a router over fake services with a token issuer.
type testAPI struct {
	auth     *fakeAuthService
	projects *fakeProjectService
	rewards  *fakeRewardService
	contribs *fakeContributionService
	jwt      *auth.JWTService
	handler  http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{
		auth:     &fakeAuthService{},
		projects: &fakeProjectService{},
		rewards:  &fakeRewardService{},
		contribs: &fakeContributionService{},
		jwt:      auth.NewJWTService("access", "refresh", time.Minute, time.Hour),
	}
	logger := zap.NewNop()
	a.handler = NewRouter(Handlers{
		Auth:          &AuthHandler{AuthService: a.auth, Logger: logger},
		Projects:      &ProjectHandler{ProjectService: a.projects, Logger: logger},
		Rewards:       &RewardHandler{RewardService: a.rewards, Logger: logger},
		Contributions: &ContributionHandler{ContributionService: a.contribs, Logger: logger},
	}, a.jwt, middleware.NewRateLimiter(100, 100, logger), logger)
	return a
}

var (
	author   = models.Profile{ID: 7, Login: "author", Capabilities: models.Capabilities{IsAuthor: true}}
	investor = models.Profile{ID: 8, Login: "investor", Capabilities: models.Capabilities{IsInvestor: true}}
	admin    = models.Profile{ID: 1, Login: "admin", Capabilities: models.Capabilities{IsAdmin: true}}
)

func (a *testAPI) token(t *testing.T, p models.Profile) string {
	t.Helper()
	pair, err := a.jwt.Pair(p)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	return pair.AccessToken
}

// do sends a request as p; a zero profile sends no credential.
func (a *testAPI) do(t *testing.T, p models.Profile, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if p.ID != 0 {
		req.Header.Set("Authorization", "Bearer "+a.token(t, p))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
