package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/atinyakov/crowdfund/internal/client/guard"
	"github.com/atinyakov/crowdfund/internal/models"
)

func newRegisterCmd(a *app) *cobra.Command {
	var login string
	var author, investor bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a profile and sign in",
		Long: `Create a profile. Missing fields are asked for interactively and the
new profile is signed in right away.

Example:
  crowdfund register --login alice --author`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if login == "" {
				if login, err = a.prompt.Required("Login: "); err != nil {
					return err
				}
			}
			password, err := a.prompt.Password("Password: ")
			if err != nil {
				return err
			}
			fields, err := a.prompt.ProfileFields()
			if err != nil {
				return err
			}

			p, err := a.session.Register(cmd.Context(), models.ProfileCreate{
				ProfileFields: fields,
				Login:         login,
				Password:      password,
				Capabilities:  models.Capabilities{IsAuthor: author, IsInvestor: investor},
			})
			if err != nil {
				return a.sessionError(err)
			}
			a.printf("Registered and signed in as %s (id %d)\n", p.Login, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "login to register")
	cmd.Flags().BoolVar(&author, "author", false, "request the author role")
	cmd.Flags().BoolVar(&investor, "investor", false, "request the investor role")
	return on(guard.RouteRegister, cmd)
}

func newLoginCmd(a *app) *cobra.Command {
	var login string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if login == "" {
				if login, err = a.prompt.Required("Login: "); err != nil {
					return err
				}
			}
			password, err := a.prompt.Password("Password: ")
			if err != nil {
				return err
			}
			if err := a.session.Login(cmd.Context(), login, password); err != nil {
				return a.sessionError(err)
			}
			a.printf("Signed in as %s\n", login)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "login to sign in with")
	return on(guard.RouteLogin, cmd)
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.Logout()
			a.printf("Signed out\n")
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return on(guard.RouteMain, &cobra.Command{
		Use:   "refresh",
		Short: "Renew the session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Refresh(cmd.Context()); err != nil {
				return a.sessionError(err)
			}
			a.printf("Session renewed\n")
			return nil
		},
	})
}

func newWhoamiCmd(a *app) *cobra.Command {
	return on(guard.RouteMain, &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.session.Profile()
			if p == nil {
				if msg := a.session.Err(); msg != "" {
					return errors.New(msg)
				}
				return errors.New("profile is not loaded")
			}
			printProfile(a, *p)
			return nil
		},
	})
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile commands",
	}

	update := on(guard.RouteMain, &cobra.Command{
		Use:   "update",
		Short: "Edit your name, bank account and phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := a.prompt.ProfileFields()
			if err != nil {
				return err
			}
			p, err := a.session.UpdateProfile(cmd.Context(), fields)
			if err != nil {
				return a.sessionError(err)
			}
			printProfile(a, p)
			return nil
		},
	})

	list := on(guard.RouteMain, &cobra.Command{
		Use:   "list",
		Short: "List every profile (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAdmin() {
				return errors.New("admin role required")
			}
			profiles, err := a.client.Profiles(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%-6s  %-20s  %-30s  %s\n", "ID", "LOGIN", "NAME", "ROLES")
			for _, p := range profiles {
				a.printf("%-6d  %-20s  %-30s  %s\n", p.ID, truncate(p.Login, 20), truncate(p.Name+" "+p.Surname, 30), roles(p.Capabilities))
			}
			return nil
		},
	})

	cmd.AddCommand(update, list)
	return cmd
}

func printProfile(a *app, p models.Profile) {
	a.printf("ID:       %d\n", p.ID)
	a.printf("Login:    %s\n", p.Login)
	a.printf("Name:     %s %s %s\n", p.Name, p.Patronymic, p.Surname)
	a.printf("Bank:     %s\n", p.BankNumber)
	if p.PhoneNumber != nil {
		a.printf("Phone:    %s\n", *p.PhoneNumber)
	}
	a.printf("Roles:    %s\n", roles(p.Capabilities))
}

func roles(c models.Capabilities) string {
	var out string
	add := func(ok bool, name string) {
		if !ok {
			return
		}
		if out != "" {
			out += ", "
		}
		out += name
	}
	add(c.IsAdmin, "admin")
	add(c.IsAuthor, "author")
	add(c.IsInvestor, "investor")
	if out == "" {
		return "-"
	}
	return out
}
