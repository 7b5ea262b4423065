// Package cli provides common initialization shared by cmd/savings,
// cmd/savings-server and cmd/savings-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"savings/internal/amqp"
	"savings/internal/backend"
	"savings/internal/config"
	"savings/internal/core"
	"savings/internal/goals"
	applog "savings/internal/log"
	"savings/internal/rates"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An empty or unknown level falls back to info.
func SetupLogger(level string, output io.Writer) *applog.Logger {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := config.ParseLogLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	if output != nil {
		cfg.Output = output
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Options controls which optional services Bootstrap connects.
type Options struct {
	// Publish goal events when AMQP_URL is set.
	PublishEvents bool
	// Fetch the exchange rate in the background instead of blocking.
	BackgroundRate bool
}

// App bundles the wired core services of one process.
type App struct {
	Config    *config.Config
	Logger    *applog.Logger
	Store     *goals.Store
	Rates     *rates.Provider
	AMQP      *amqp.Client
	Reference core.Currency

	cleanups []backend.CleanupFunc
}

// Bootstrap opens the configured backend, loads the goals and starts the rate
// provider. The returned App must be closed.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts Options) (*App, error) {
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Slog())

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Reference: cfg.Reference(),
	}
	if res.Cleanup != nil {
		app.cleanups = append(app.cleanups, res.Cleanup)
	}

	var storeOpts []goals.Option
	if opts.PublishEvents && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			app.AMQP = client
			app.cleanups = append(app.cleanups, client.Close)
			storeOpts = append(storeOpts, goals.WithNotifier(client))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	app.Store = goals.NewStore(res.KV, logger.WithComponent(applog.ComponentGoals).Slog(), storeOpts...)
	if err := app.Store.Load(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("load goals: %w", err)
	}

	fetcher := rates.NewClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateAPIKey, cfg.ExchangeRateTimeout)
	app.Rates = rates.NewProvider(fetcher, res.KV, logger.WithComponent(applog.ComponentRates).Slog(), rates.Options{
		TTL:         cfg.ExchangeRateTTL,
		Timeout:     cfg.ExchangeRateTimeout,
		DefaultRate: core.NewExchangeRate(cfg.DefaultRate(), time.Now()),
	})
	if opts.BackgroundRate {
		go app.Rates.Init(context.WithoutCancel(ctx))
	} else {
		app.Rates.Init(ctx)
	}

	logger.Info("Application bootstrapped",
		"backend", backendCfg.Type,
		"goals", len(app.Store.Goals()),
		"reference_currency", app.Reference,
		"events_enabled", app.AMQP != nil)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
