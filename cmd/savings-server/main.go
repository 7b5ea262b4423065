package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"savings/internal/cli"
	apphttp "savings/internal/http"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting savings server", "port", cfg.Port, "backend", cfg.DataBackend)

	// The rate fetch runs in the background; requests use the seed or cached
	// rate until it completes.
	app, err := cli.Bootstrap(context.Background(), cfg, logger, cli.Options{
		PublishEvents:  true,
		BackgroundRate: true,
	})
	if err != nil {
		logger.Error("Failed to bootstrap application", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, app.Store, app.Rates, logger, apphttp.Options{
		Reference: app.Reference,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Slog(), 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
