// Package cmd contains the commands of the crowdfund CLI.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/client/api"
	"github.com/atinyakov/crowdfund/internal/client/guard"
	"github.com/atinyakov/crowdfund/internal/client/prompt"
	"github.com/atinyakov/crowdfund/internal/client/session"
	"github.com/atinyakov/crowdfund/internal/client/store"
	"github.com/atinyakov/crowdfund/internal/config"
	"github.com/atinyakov/crowdfund/internal/logger"
)

const (
	routeAnnotation = "route"
	requestTimeout  = 15 * time.Second
)

// app holds everything a command needs. It is assembled once per invocation
// in the root command's PersistentPreRunE.
type app struct {
	opts    config.ClientOptions
	verbose bool
	in      io.Reader
	out     io.Writer

	logger        *zap.Logger
	client        *api.Client
	session       *session.Manager
	nav           *guard.Navigator
	guard         *guard.Guard
	projects      *store.Projects
	stats         *store.Stats
	contributions *store.Contributions
	prompt        *prompt.Prompter
}

// Execute runs the CLI against the process's standard streams.
func Execute(version, buildDate string) error {
	root := NewRootCmd(os.Stdin, os.Stdout)
	root.Version = fmt.Sprintf("%s (built %s)", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
	return root.Execute()
}

// NewRootCmd builds the command tree reading answers from in and printing to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{opts: config.ClientDefaults(), in: in, out: out}

	root := &cobra.Command{
		Use:   "crowdfund",
		Short: "Crowdfunding platform client",
		Long: `crowdfund talks to a crowdfunding backend: it manages your session and
profile, lets authors create projects and rewards, moderators review them and
investors back them.

Examples:
  # Sign in; the session is kept in ~/.crowdfund/token.json
  crowdfund login --login alice

  # Create a draft and send it to moderation
  crowdfund project create
  crowdfund project submit 12

  # Back a reward
  crowdfund contribute 12 3`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(cmd.Context()); err != nil {
				return err
			}
			route, ok := cmd.Annotations[routeAnnotation]
			if !ok {
				return nil
			}
			return a.enter(cmd.Context(), guard.Route(route))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.URL, "url", a.opts.URL, "backend base URL (env CROWDFUND_URL)")
	flags.StringVar(&a.opts.TokenFile, "token-file", a.opts.TokenFile, "where the session is kept (env CROWDFUND_TOKEN_FILE)")
	flags.StringVar(&a.opts.CA, "ca", a.opts.CA, "extra CA certificate to trust (env CROWDFUND_CA)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newRefreshCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newProjectCmd(a),
		newRewardCmd(a),
		newContributeCmd(a),
		newContributionsCmd(a),
		newStatsCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	a.logger = logger.Development(a.verbose)

	hc, err := api.NewHTTPClient(a.opts.CA, requestTimeout)
	if err != nil {
		return err
	}
	a.client = api.New(api.Config{BaseURL: a.opts.URL, HTTPClient: hc, Logger: a.logger})

	var key []byte
	if a.opts.TokenKey != "" {
		key = []byte(a.opts.TokenKey)
	}
	tokens, err := session.NewFileTokenStore(a.opts.TokenFile, key)
	if err != nil {
		return err
	}

	a.nav = guard.NewNavigator(guard.RouteLogin)
	a.session = session.New(a.client, tokens, a.nav, a.logger)
	a.client.SetTokens(a.session)
	if err := a.session.Resume(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; continuing signed out\n", err)
	}
	a.guard = guard.New(a.session, a.logger)

	a.projects = store.NewProjects(a.client, a.logger)
	a.stats = store.NewStats(a.client, a.logger)
	a.contributions = store.NewContributions(a.client, a.logger)

	if f, ok := a.in.(*os.File); ok && f == os.Stdin {
		a.prompt = prompt.Stdio()
	} else {
		a.prompt = prompt.New(a.in, a.out)
	}
	return nil
}

// enter navigates to route and fails when the guard redirects elsewhere.
func (a *app) enter(ctx context.Context, route guard.Route) error {
	switch got := a.nav.Navigate(ctx, a.guard, route); got {
	case route:
		return nil
	case guard.RouteLogin:
		return errors.New("not signed in: run `crowdfund login` first")
	case guard.RouteMain:
		who := "someone"
		if p := a.session.Profile(); p != nil {
			who = p.Login
		}
		return fmt.Errorf("already signed in as %s: run `crowdfund logout` first", who)
	default:
		return fmt.Errorf("cannot open %s", got)
	}
}

// sessionError prefers the session's human-readable message over the raw error.
func (a *app) sessionError(err error) error {
	a.logger.Debug("session operation failed", zap.Error(err))
	if msg := a.session.Err(); msg != "" {
		return errors.New(msg)
	}
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// on annotates cmd with the route it is shown under.
func on(route guard.Route, cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = string(route)
	return cmd
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
