package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/crowdfund/internal/models"
)

const aliceToken = "tok-alice"

// fakeBackend answers the handful of endpoints the tests drive.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	alice := models.Profile{
		ID:           1,
		Login:        "alice",
		Capabilities: models.Capabilities{IsAdmin: true, IsAuthor: true},
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+aliceToken {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Invalid token"}`)
				return
			}
			next(w, r)
		}
	}
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var c models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if c.Login != "alice" || c.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"invalid credentials"}`)
			return
		}
		reply(w, models.AuthTokens{AccessToken: aliceToken, RefreshToken: "r", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /profile/me/", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, alice)
	}))
	mux.HandleFunc("POST /projects/5/to_draft", authed(func(w http.ResponseWriter, r *http.Request) {
		msg := r.URL.Query().Get("message")
		reply(w, models.Project{ID: 5, Status: models.StatusDraft, ModeratorComment: &msg})
	}))
	mux.HandleFunc("GET /contrib/stats/", func(w http.ResponseWriter, r *http.Request) {
		reply(w, models.GlobalStats{TotalCount: 3, TotalAmount: 75, CoolProjects: 1})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type cli struct {
	url       string
	tokenFile string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("CROWDFUND_TOKEN_KEY", "")
	return &cli{
		url:       fakeBackend(t).URL,
		tokenFile: filepath.Join(t.TempDir(), "token.json"),
	}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd(strings.NewReader(stdin), &out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--url", c.url, "--token-file", c.tokenFile}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_GuardRequiresLogin(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")

	out, err := c.run("", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Amount raised:     75.00")
}

func TestCLI_LoginPersistsSession(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("wrong\n", "login", "--login", "alice")
	require.Error(t, err)
	assert.Equal(t, "invalid login or password", err.Error())

	out, err := c.run("secret\n", "login", "--login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Login:    alice")
	assert.Contains(t, out, "admin, author")

	_, err = c.run("secret\n", "login", "--login", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already signed in as alice")

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = c.run("", "whoami")
	require.Error(t, err)
}

func TestCLI_ReturnToDraftPromptsForComment(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("secret\n", "login", "--login", "alice")
	require.NoError(t, err)

	out, err := c.run("\nadd photos\n", "project", "to-draft", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Project 5 is now draft")
	assert.Contains(t, out, "Comment: add photos")

	_, err = c.run("", "project", "to-draft", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid project id "abc"`)
}
