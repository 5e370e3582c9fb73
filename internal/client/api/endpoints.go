package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atinyakov/crowdfund/internal/models"
)

// Register creates a profile.
func (c *Client) Register(ctx context.Context, p models.ProfileCreate) (models.Profile, error) {
	var out models.Profile
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register/", body: p}, &out)
	return out, err
}

// Login exchanges credentials for an access/refresh token pair.
func (c *Client) Login(ctx context.Context, cred models.Credentials) (models.AuthTokens, error) {
	var out models.AuthTokens
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login/", body: cred}, &out)
	return out, err
}

// Refresh renews the token pair. The refresh token is sent as the bearer
// credential instead of the access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.AuthTokens, error) {
	var out models.AuthTokens
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/refresh/", bearer: refreshToken}, &out)
	return out, err
}

// Me returns the profile bound to the current credential.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	err := c.do(ctx, call{method: http.MethodGet, path: "/profile/me/"}, &out)
	return out, err
}

// UpdateMe replaces the base fields of the caller's profile.
func (c *Client) UpdateMe(ctx context.Context, in models.ProfileUpdate) (models.Profile, error) {
	var out models.Profile
	err := c.do(ctx, call{method: http.MethodPut, path: "/profile/me/", body: in}, &out)
	return out, err
}

// Profiles lists all profiles. Admin only.
func (c *Client) Profiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := c.do(ctx, call{method: http.MethodGet, path: "/profile/"}, &out)
	return out, err
}

// Projects lists all projects visible to the caller.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	err := c.do(ctx, call{method: http.MethodGet, path: "/projects/"}, &out)
	return out, err
}

// Project reads one project.
func (c *Client) Project(ctx context.Context, id int64) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, call{method: http.MethodGet, path: projectPath(id)}, &out)
	return out, err
}

// CreateProject creates a draft project.
func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, call{method: http.MethodPost, path: "/projects/", body: in}, &out)
	return out, err
}

// UpdateProject replaces the editable fields of a project.
func (c *Client) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, call{method: http.MethodPut, path: projectPath(id), body: in}, &out)
	return out, err
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: projectPath(id)}, nil)
}

// Transition performs a lifecycle action and returns the project as stored
// by the backend afterwards. Moderation actions carry message as a query
// parameter; submit ignores it.
func (c *Client) Transition(ctx context.Context, id int64, a models.Action, message string) (models.Project, error) {
	if a == models.ActionDelete {
		return models.Project{}, fmt.Errorf("transition %s: use DeleteProject", a)
	}
	cl := call{method: http.MethodPost, path: fmt.Sprintf("%s/%s", projectPath(id), a)}
	if a.IsModeration() {
		cl.query = url.Values{"message": {message}}
	}
	var out models.Project
	err := c.do(ctx, cl, &out)
	return out, err
}

// Rewards lists the rewards of a project.
func (c *Client) Rewards(ctx context.Context, projectID int64) ([]models.Reward, error) {
	var out []models.Reward
	err := c.do(ctx, call{method: http.MethodGet, path: rewardsPath(projectID)}, &out)
	return out, err
}

// CreateReward adds a reward to a project.
func (c *Client) CreateReward(ctx context.Context, projectID int64, in models.RewardInput) (models.Reward, error) {
	var out models.Reward
	err := c.do(ctx, call{method: http.MethodPost, path: rewardsPath(projectID), body: in}, &out)
	return out, err
}

// UpdateReward edits a reward.
func (c *Client) UpdateReward(ctx context.Context, projectID, rewardID int64, in models.RewardInput) (models.Reward, error) {
	var out models.Reward
	err := c.do(ctx, call{method: http.MethodPatch, path: rewardPath(projectID, rewardID), body: in}, &out)
	return out, err
}

// DeleteReward removes a reward.
func (c *Client) DeleteReward(ctx context.Context, projectID, rewardID int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: rewardPath(projectID, rewardID)}, nil)
}

// Contribute claims one unit of a reward for the caller.
func (c *Client) Contribute(ctx context.Context, projectID, rewardID int64) (models.Contribution, error) {
	var out models.Contribution
	err := c.do(ctx, call{method: http.MethodPost, path: contribPath(projectID, rewardID)}, &out)
	return out, err
}

// RewardContributions lists the contributions made against one reward.
func (c *Client) RewardContributions(ctx context.Context, projectID, rewardID int64) ([]models.Contribution, error) {
	var out []models.Contribution
	err := c.do(ctx, call{method: http.MethodGet, path: contribPath(projectID, rewardID)}, &out)
	return out, err
}

// MyContributions returns the caller's contribution history with project and
// reward snapshots.
func (c *Client) MyContributions(ctx context.Context) ([]models.DetailedContribution, error) {
	var out []models.DetailedContribution
	err := c.do(ctx, call{method: http.MethodGet, path: "/contrib/my"}, &out)
	return out, err
}

// Stats returns the platform aggregate.
func (c *Client) Stats(ctx context.Context) (models.GlobalStats, error) {
	var out models.GlobalStats
	err := c.do(ctx, call{method: http.MethodGet, path: "/contrib/stats/"}, &out)
	return out, err
}

func projectPath(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}

func rewardsPath(projectID int64) string {
	return fmt.Sprintf("/projects/%d/rewards", projectID)
}

func rewardPath(projectID, rewardID int64) string {
	return fmt.Sprintf("/projects/%d/rewards/%d", projectID, rewardID)
}

func contribPath(projectID, rewardID int64) string {
	return fmt.Sprintf("/contrib/%d/rewards/%d/contrib", projectID, rewardID)
}
