package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"savings/internal/core"
)

func newRateCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Show or refresh the USD/INR exchange rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printRate(cmd, env.rates.Current(), env.rates.State().String())
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the rate currently in use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				printRate(cmd, env.rates.Current(), env.rates.State().String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Fetch the latest rate, ignoring the cache",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rate := env.rates.Refresh(cmd.Context())
				printRate(cmd, rate, env.rates.State().String())
				if rate.Error != "" {
					return fmt.Errorf("refresh failed: %s", rate.Error)
				}
				return nil
			},
		},
	)
	return cmd
}

func printRate(cmd *cobra.Command, rate core.ExchangeRate, state string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "1 USD = %s INR\n", rate.INR.StringFixed(4))
	fmt.Fprintf(out, "State: %s\n", state)
	fmt.Fprintf(out, "Updated: %s\n", rateNote(rate))
	if rate.Error != "" {
		fmt.Fprintf(out, "Last error: %s\n", rate.Error)
	}
}

func rateNote(rate core.ExchangeRate) string {
	if rate.LastUpdated.IsZero() {
		return "never"
	}
	return humanize.Time(rate.LastUpdated)
}
