package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"savings/internal/core"
	"savings/internal/dashboard"
	applog "savings/internal/log"
	"savings/internal/sheets"
	"savings/internal/sheets/memory"
	"savings/internal/worker"
)

func newDashboardCmd(env *environment) *cobra.Command {
	var (
		currency string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals across all goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reference := env.reference
			if currency != "" {
				c, err := core.ParseCurrency(strings.TrimSpace(currency))
				if err != nil {
					return err
				}
				reference = c
			}

			all := env.store.Goals()
			rate := env.rates.Current()
			summary, err := dashboard.Summarize(all, rate, reference)
			if err != nil {
				return err
			}
			cards, err := dashboard.Cards(all, rate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Summary dashboard.Summary    `json:"summary"`
					Goals   []dashboard.GoalCard `json:"goals"`
				}{summary, cards})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Goals\t%d\n", summary.GoalCount)
			fmt.Fprintf(tw, "Saved\t%s\t%s\n",
				dashboard.FormatAmount(summary.TotalSaved, reference),
				dashboard.FormatAmount(summary.TotalSavedUSD, core.USD))
			fmt.Fprintf(tw, "Target\t%s\t%s\n",
				dashboard.FormatAmount(summary.TotalTarget, reference),
				dashboard.FormatAmount(summary.TotalTargetUSD, core.USD))
			fmt.Fprintf(tw, "Overall progress\t%s\n", dashboard.FormatPercent(summary.OverallProgress))
			fmt.Fprintf(tw, "Rate\t1 USD = %s INR\t%s\n", rate.INR.StringFixed(2), rateNote(rate))
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(cards) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			return writeCards(out, cards)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "reference currency for totals (default from REFERENCE_CURRENCY)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExportCmd(env *environment) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard snapshot to the configured spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if dryRun {
				mem := memory.New()
				if err := exportOnce(cmd, env, mem); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, row := range mem.Rows() {
					for i, cell := range row {
						if i > 0 {
							fmt.Fprint(tw, "\t")
						}
						fmt.Fprint(tw, cell)
					}
					fmt.Fprintln(tw)
				}
				return tw.Flush()
			}

			if env.newExporter == nil {
				return fmt.Errorf("no exporter configured")
			}
			writer, err := env.newExporter(ctx)
			if err != nil {
				return err
			}
			if err := exportOnce(cmd, env, writer); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d goals (revision %d)\n", len(env.store.Goals()), env.store.Revision())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the rows instead of writing them")
	return cmd
}

func exportOnce(cmd *cobra.Command, env *environment, writer sheets.SnapshotWriter) error {
	var logger *slog.Logger
	if env.logger != nil {
		logger = env.logger.WithComponent(applog.ComponentWorker).Slog()
	}
	w := worker.NewSyncWorker(env.store, env.rates, writer, env.reference, logger)
	return w.Export(cmd.Context())
}
