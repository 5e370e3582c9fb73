package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/atinyakov/crowdfund/internal/client/guard"
	"github.com/atinyakov/crowdfund/internal/client/store"
)

func newContributeCmd(a *app) *cobra.Command {
	return on(guard.RouteInvestments, &cobra.Command{
		Use:   "contribute <project-id> <reward-id>",
		Short: "Back a project by claiming one of its rewards",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, rewardID, err := rewardArgs(args)
			if err != nil {
				return err
			}
			if !a.session.IsInvestor() {
				return errors.New("investor role required")
			}
			c, err := a.projects.Contribute(cmd.Context(), projectID, rewardID)
			switch {
			case errors.Is(err, store.ErrRewardsStale):
				a.printf("Contribution %d recorded (%s)\n", c.ID, c.Status)
				a.printf("Warning: %v\n", err)
				return nil
			case err != nil:
				return err
			}
			a.printf("Contribution %d recorded (%s)\n", c.ID, c.Status)
			printRewards(a, a.projects.Rewards())
			return nil
		},
	})
}

func newContributionsCmd(a *app) *cobra.Command {
	return on(guard.RouteInvestments, &cobra.Command{
		Use:   "contributions",
		Short: "Show your contribution history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.contributions.Fetch(cmd.Context()); err != nil {
				return err
			}
			list := a.contributions.List()
			if len(list) == 0 {
				a.printf("No contributions yet.\n")
				return nil
			}
			a.printf("%-6s  %-16s  %-30s  %-20s  %10s\n", "ID", "DATE", "PROJECT", "REWARD", "PRICE")
			for _, c := range list {
				a.printf("%-6d  %-16s  %-30s  %-20s  %10.2f\n",
					c.ID,
					c.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate(c.Project.Title, 30),
					truncate(c.Reward.Title, 20),
					c.Reward.Price,
				)
			}
			a.printf("\nTotal spent: %.2f\n", a.contributions.TotalSpent())
			return nil
		},
	})
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.stats.Fetch(cmd.Context()); err != nil {
				return err
			}
			s := a.stats.Current()
			a.printf("Contributions:     %d\n", s.TotalCount)
			a.printf("Amount raised:     %.2f\n", s.TotalAmount)
			a.printf("Funded projects:   %d\n", s.CoolProjects)
			return nil
		},
	}
}
