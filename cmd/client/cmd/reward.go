package cmd

import (
	"github.com/spf13/cobra"

	"github.com/atinyakov/crowdfund/internal/client/guard"
	"github.com/atinyakov/crowdfund/internal/models"
)

func newRewardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reward",
		Short: "Reward commands",
		Long: `Commands for the rewards of a project. Only the project's author may
add, edit or remove rewards.

Examples:
  crowdfund reward list 12
  crowdfund reward add 12
  crowdfund reward remove 12 3`,
	}

	list := on(guard.RouteProjectCard, &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the rewards of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			if err := a.projects.FetchRewards(cmd.Context(), projectID); err != nil {
				return err
			}
			printRewards(a, a.projects.Rewards())
			return nil
		},
	})

	add := on(guard.RouteProjectCard, &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a reward to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			in, err := a.prompt.RewardInput()
			if err != nil {
				return err
			}
			r, err := a.projects.AddReward(cmd.Context(), projectID, in)
			if err != nil {
				return err
			}
			a.printf("Added reward %d to project %d\n", r.ID, projectID)
			return nil
		},
	})

	update := on(guard.RouteProjectCard, &cobra.Command{
		Use:   "update <project-id> <reward-id>",
		Short: "Edit a reward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, rewardID, err := rewardArgs(args)
			if err != nil {
				return err
			}
			in, err := a.prompt.RewardInput()
			if err != nil {
				return err
			}
			r, err := a.projects.UpdateReward(cmd.Context(), projectID, rewardID, in)
			if err != nil {
				return err
			}
			printRewards(a, []models.Reward{r})
			return nil
		},
	})

	remove := on(guard.RouteProjectCard, &cobra.Command{
		Use:   "remove <project-id> <reward-id>",
		Short: "Remove a reward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, rewardID, err := rewardArgs(args)
			if err != nil {
				return err
			}
			if err := a.projects.RemoveReward(cmd.Context(), projectID, rewardID); err != nil {
				return err
			}
			a.printf("Removed reward %d\n", rewardID)
			return nil
		},
	})

	cmd.AddCommand(list, add, update, remove)
	return cmd
}

func rewardArgs(args []string) (projectID, rewardID int64, err error) {
	if projectID, err = parseID(args[0], "project"); err != nil {
		return 0, 0, err
	}
	if rewardID, err = parseID(args[1], "reward"); err != nil {
		return 0, 0, err
	}
	return projectID, rewardID, nil
}

func printRewards(a *app, rewards []models.Reward) {
	if len(rewards) == 0 {
		a.printf("No rewards.\n")
		return
	}
	a.printf("%-6s  %10s  %8s  %-8s  %s\n", "ID", "PRICE", "LEFT", "ACTIVE", "TITLE")
	for _, r := range rewards {
		active := "yes"
		if !r.Active {
			active = "no"
		}
		a.printf("%-6d  %10.2f  %8d  %-8s  %s\n", r.ID, r.Price, r.Quantity, active, truncate(r.Title, 30))
	}
}
