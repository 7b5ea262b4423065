package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"savings/internal/backend"
	"savings/internal/cli"
	"savings/internal/core"
	"savings/internal/goals"
	applog "savings/internal/log"
	"savings/internal/rates"
	"savings/internal/sheets"
)

// rateService is the part of the rate provider the commands use.
type rateService interface {
	Current() core.ExchangeRate
	State() rates.State
	Init(ctx context.Context) core.ExchangeRate
	Refresh(ctx context.Context) core.ExchangeRate
}

// environment holds the services shared by every subcommand. Tests fill it
// directly; otherwise the root command bootstraps it from the process
// configuration.
type environment struct {
	store       *goals.Store
	rates       rateService
	reference   core.Currency
	newExporter func(ctx context.Context) (sheets.SnapshotWriter, error)
	now         func() time.Time
	logger      *applog.Logger
	close       func() error
}

func (e *environment) bootstrapped() bool {
	return e.store != nil
}

func (e *environment) today() string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	return now().Format("2006-01-02")
}

func (e *environment) bootstrap(ctx context.Context, logLevel string) error {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(logLevel, os.Stderr).WithComponent(applog.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	app, err := cli.Bootstrap(ctx, cfg, logger, cli.Options{PublishEvents: true})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	e.store = app.Store
	e.rates = app.Rates
	e.reference = app.Reference
	e.logger = logger
	e.close = app.Close
	e.newExporter = func(ctx context.Context) (sheets.SnapshotWriter, error) {
		res, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Slog()).
			CreateExporter(ctx, backend.ExporterFromAppConfig(cfg))
		if err != nil {
			return nil, err
		}
		return res.Writer, nil
	}
	return nil
}

func newRootCmd(env *environment) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "savings",
		Short: "Track savings goals in USD and INR",
		Long: `savings manages savings goals and their contributions.

Goals are stored in the configured backend (DATA_BACKEND), and amounts are
converted between USD and INR with the cached exchange rate.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if env.bootstrapped() {
				return nil
			}
			return env.bootstrap(cmd.Context(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newGoalCmd(env),
		newContributeCmd(env),
		newContributionsCmd(env),
		newDashboardCmd(env),
		newRateCmd(env),
		newExportCmd(env),
	)
	return root
}
