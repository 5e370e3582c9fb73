package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/crowdfund/internal/client/guard"
	"github.com/atinyakov/crowdfund/internal/models"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project commands",
		Long: `Commands for browsing, authoring and moderating projects.

A project starts as a draft, is submitted to moderation and is then accepted,
rejected or returned to its author as a draft again.

Examples:
  crowdfund project list
  crowdfund project show 12
  crowdfund project accept 12 --message "looks good"
  crowdfund project to-draft 12 --message "add photos"`,
	}

	cmd.AddCommand(
		newProjectListCmd(a),
		newProjectShowCmd(a),
		newProjectCreateCmd(a),
		newProjectUpdateCmd(a),
		newProjectDeleteCmd(a),
		newProjectSubmitCmd(a),
		newModerationCmd(a, "accept", "Accept a project on moderation", models.ActionAccept),
		newModerationCmd(a, "reject", "Reject a project on moderation", models.ActionReject),
		newModerationCmd(a, "to-draft", "Return a project on moderation to its author", models.ActionReturnToDraft),
	)
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.Status
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}
			if err := a.projects.Fetch(cmd.Context()); err != nil {
				return err
			}

			var shown int
			a.printf("%-6s  %-13s  %12s  %-10s  %-10s  %s\n", "ID", "STATUS", "GOAL", "START", "END", "TITLE")
			a.printf("%s\n", strings.Repeat("-", 80))
			for _, p := range a.projects.List() {
				if filter != "" && p.Status != filter {
					continue
				}
				shown++
				a.printf("%-6d  %-13s  %12.2f  %-10s  %-10s  %s\n",
					p.ID, p.Status, p.GoalAmount, p.StartDate, p.EndDate, truncate(p.Title, 30))
			}
			a.printf("\nTotal: %d project(s)\n", shown)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show projects in this status")
	return on(guard.RouteProjects, cmd)
}

func newProjectShowCmd(a *app) *cobra.Command {
	return on(guard.RouteProjectCard, &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with its rewards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if err := a.projects.LoadDetail(cmd.Context(), id); err != nil {
				return err
			}
			p := a.projects.Active()
			if p == nil {
				return errors.New("project is no longer available")
			}
			printProject(a, *p)
			a.printf("\nRewards:\n")
			printRewards(a, a.projects.Rewards())
			return nil
		},
	})
}

func newProjectCreateCmd(a *app) *cobra.Command {
	return on(guard.RouteProjects, &cobra.Command{
		Use:   "create",
		Short: "Create a draft project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthor() {
				return errors.New("author role required")
			}
			in, err := a.prompt.ProjectInput()
			if err != nil {
				return err
			}
			p, err := a.projects.Create(cmd.Context(), in)
			if err != nil && p.ID == 0 {
				return err
			}
			a.printf("Created draft project %d\n", p.ID)
			return err
		},
	})
}

func newProjectUpdateCmd(a *app) *cobra.Command {
	return on(guard.RouteProjectCard, &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a draft project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			in, err := a.prompt.ProjectInput()
			if err != nil {
				return err
			}
			p, err := a.projects.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			printProject(a, p)
			return nil
		},
	})
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.prompt.Confirm("Delete project " + args[0] + "?")
				if err != nil {
					return err
				}
				if !ok {
					a.printf("Cancelled\n")
					return nil
				}
			}
			if err := a.projects.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.printf("Deleted project %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return on(guard.RouteProjectCard, cmd)
}

func newProjectSubmitCmd(a *app) *cobra.Command {
	return on(guard.RouteProjectCard, &cobra.Command{
		Use:   "submit <id>",
		Short: "Send a draft to moderation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			p, err := a.projects.Submit(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.printf("Project %d is now %s\n", p.ID, p.Status)
			return nil
		},
	})
}

// newModerationCmd builds one of the moderator-only lifecycle commands.
func newModerationCmd(a *app, use, short string, action models.Action) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if !a.session.IsAdmin() {
				return errors.New("moderator role required")
			}
			if action.RequiresComment() && strings.TrimSpace(message) == "" {
				if message, err = a.prompt.Required("Comment for the author: "); err != nil {
					return err
				}
			}

			var p models.Project
			switch action {
			case models.ActionAccept:
				p, err = a.projects.Accept(cmd.Context(), id, message)
			case models.ActionReject:
				p, err = a.projects.Reject(cmd.Context(), id, message)
			default:
				p, err = a.projects.ReturnToDraft(cmd.Context(), id, message)
			}
			if err != nil {
				return err
			}
			a.printf("Project %d is now %s\n", p.ID, p.Status)
			if c := p.Comment(); c != "" {
				a.printf("Comment: %s\n", c)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "comment for the author")
	return on(guard.RouteProjectCard, cmd)
}

func printProject(a *app, p models.Project) {
	a.printf("ID:          %d\n", p.ID)
	a.printf("Title:       %s\n", p.Title)
	a.printf("Status:      %s\n", p.Status)
	a.printf("Author:      %d\n", p.AuthorID)
	a.printf("Type:        %s\n", p.ProjectType)
	a.printf("Goal:        %.2f\n", p.GoalAmount)
	a.printf("Runs:        %s to %s\n", p.StartDate, p.EndDate)
	if p.Description != "" {
		a.printf("Description: %s\n", p.Description)
	}
	if c := p.Comment(); c != "" {
		a.printf("Moderator:   %s\n", c)
	}
}
