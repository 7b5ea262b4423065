package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"savings/internal/amqp"
	"savings/internal/backend"
	"savings/internal/cli"
	applog "savings/internal/log"
	"savings/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = logger.WithComponent(applog.ComponentWorker)

	logger.Info("Starting savings-worker", "sync_interval", cfg.SyncInterval)

	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, nil)

	// The worker only reads goals; it never publishes events.
	app, err := cli.Bootstrap(ctx, cfg, logger, cli.Options{})
	if err != nil {
		logger.Error("Failed to bootstrap application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	exporter, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Slog()).
		CreateExporter(ctx, backend.ExporterFromAppConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize snapshot exporter", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(app.Store, app.Rates, exporter.Writer, app.Reference, logger.Slog())

	// Catch up on changes made while the worker was down
	logger.Info("Performing startup sync...")
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP).Slog())
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		g.Go(func() error {
			return consumer.ConsumeGoalEvents(gctx, syncWorker.HandleGoalEvent)
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic export only")
	}

	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	count, last := syncWorker.Stats()
	logger.Info("Worker shutdown complete", "exports", count, "last_export", last)
}
