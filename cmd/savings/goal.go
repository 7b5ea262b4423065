package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"savings/internal/core"
	"savings/internal/dashboard"
	"savings/internal/goals"
)

func newGoalCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Create, edit, remove and list savings goals",
	}
	cmd.AddCommand(
		newGoalAddCmd(env),
		newGoalEditCmd(env),
		newGoalRmCmd(env),
		newGoalLsCmd(env),
	)
	return cmd
}

func newGoalAddCmd(env *environment) *cobra.Command {
	var in goals.GoalInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new goal",
		Example: `  savings goal add --name "Emergency fund" --target 5000 --currency USD
  savings goal add --name House --target 2500000,50 --currency INR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := env.store.CreateGoal(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s (%s, target %s)\n",
				g.ID, g.Name, dashboard.FormatAmount(g.TargetAmount, g.Currency))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "goal name")
	cmd.Flags().StringVar(&in.TargetAmount, "target", "", "target amount")
	cmd.Flags().StringVar(&in.Currency, "currency", string(core.USD), "currency (USD or INR)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGoalEditCmd(env *environment) *cobra.Command {
	var in goals.GoalInput

	cmd := &cobra.Command{
		Use:   "edit <goal-id>",
		Short: "Change a goal's name, target or currency",
		Long: `Change a goal's name, target or currency. Flags that are not given keep
their current value. The currency cannot change once the goal has
contributions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			current, ok := env.store.Goal(id)
			if !ok {
				return fmt.Errorf("goal %s not found", id)
			}

			flags := cmd.Flags()
			if !flags.Changed("name") {
				in.Name = current.Name
			}
			if !flags.Changed("target") {
				in.TargetAmount = current.TargetAmount.String()
			}
			if !flags.Changed("currency") {
				in.Currency = string(current.Currency)
			}

			g, ok, err := env.store.EditGoal(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("goal %s not found", id)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Updated goal %s (%s, target %s)\n",
				g.ID, g.Name, dashboard.FormatAmount(g.TargetAmount, g.Currency))
			if flags.Changed("currency") && !strings.EqualFold(string(g.Currency), strings.TrimSpace(in.Currency)) {
				fmt.Fprintf(out, "Currency stays %s: the goal already has contributions\n", g.Currency)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "new goal name")
	cmd.Flags().StringVar(&in.TargetAmount, "target", "", "new target amount")
	cmd.Flags().StringVar(&in.Currency, "currency", "", "new currency (USD or INR)")
	return cmd
}

func newGoalRmCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <goal-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a goal and its contributions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !env.store.DeleteGoal(cmd.Context(), args[0]) {
				return fmt.Errorf("goal %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %s\n", args[0])
			return nil
		},
	}
}

func newGoalLsCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List goals with their progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := dashboard.Cards(env.store.Goals(), env.rates.Current())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cards) == 0 {
				fmt.Fprintln(out, "No goals yet. Create one with: savings goal add")
				return nil
			}
			return writeCards(out, cards)
		},
	}
}

func writeCards(out io.Writer, cards []dashboard.GoalCard) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED\tTARGET\tPROGRESS\tREMAINING\tTARGET (OTHER)\tCONTRIBUTIONS")
	for _, c := range cards {
		g := c.Goal
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			g.ID,
			g.Name,
			dashboard.FormatAmount(g.CurrentAmount, g.Currency),
			dashboard.FormatAmount(g.TargetAmount, g.Currency),
			dashboard.FormatPercent(c.Progress),
			dashboard.FormatAmount(c.Remaining, g.Currency),
			dashboard.FormatAmount(c.ConvertedTarget, c.OtherCurrency),
			c.ContributionCount)
	}
	return tw.Flush()
}

func newContributeCmd(env *environment) *cobra.Command {
	var in goals.ContributionInput

	cmd := &cobra.Command{
		Use:     "contribute <goal-id>",
		Short:   "Record a contribution toward a goal",
		Example: `  savings contribute 2f1c... --amount 250 --date 2024-06-01`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Date == "" {
				in.Date = env.today()
			}
			c, ok, err := env.store.AddContribution(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("goal %s not found", args[0])
			}
			g, _ := env.store.Goal(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s to %s (%s of %s, %s)\n",
				dashboard.FormatAmount(c.Amount, g.Currency),
				c.Date,
				g.Name,
				dashboard.FormatAmount(g.CurrentAmount, g.Currency),
				dashboard.FormatAmount(g.TargetAmount, g.Currency),
				dashboard.FormatPercent(core.CalculateProgress(g.CurrentAmount, g.TargetAmount)))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Amount, "amount", "", "amount in the goal's currency")
	cmd.Flags().StringVar(&in.Date, "date", "", "contribution date, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newContributionsCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "contributions <goal-id>",
		Short: "Show a goal's contribution history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ok := env.store.Goal(args[0])
			if !ok {
				return fmt.Errorf("goal %s not found", args[0])
			}
			list := dashboard.Contributions(g)
			out := cmd.OutOrStdout()
			if len(list.Contributions) == 0 {
				fmt.Fprintf(out, "No contributions to %s yet\n", g.Name)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tAMOUNT\tID")
			for _, c := range list.Contributions {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Date, dashboard.FormatAmount(c.Amount, list.Currency), c.ID)
			}
			fmt.Fprintf(tw, "TOTAL\t%s\t\n", dashboard.FormatAmount(list.Total, list.Currency))
			return tw.Flush()
		},
	}
}
