package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"savings/internal/core"
	"savings/internal/dashboard"
	applog "savings/internal/log"
	"savings/internal/sheets"
)

// GoalSource reloads and exposes the persisted goal collection.
type GoalSource interface {
	Load(ctx context.Context) error
	Goals() []core.Goal
	Revision() int64
}

// RateSource yields a usable rate, refreshing it when stale.
type RateSource interface {
	Init(ctx context.Context) core.ExchangeRate
}

// SyncWorker exports the dashboard snapshot to a sheet whenever a goal event
// arrives, and periodically as a backstop for lost messages.
type SyncWorker struct {
	goals     GoalSource
	rates     RateSource
	writer    sheets.SnapshotWriter
	reference core.Currency
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	lastExport  time.Time
	exportCount int
}

func NewSyncWorker(goals GoalSource, rates RateSource, writer sheets.SnapshotWriter, reference core.Currency, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		goals:     goals,
		rates:     rates,
		writer:    writer,
		reference: reference,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleGoalEvent processes a single goal event from AMQP
func (w *SyncWorker) HandleGoalEvent(ctx context.Context, event core.GoalEvent) error {
	w.logger.InfoContext(ctx, "Processing goal event",
		applog.FieldEventType, event.Type,
		applog.FieldGoalID, event.GoalID,
		"published_at", event.Timestamp)

	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s: %w", event.Type, err)
	}
	return nil
}

// StartupSync exports once so the sheet reflects changes made while the
// worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed")
	return nil
}

// Export reloads the goals, builds a snapshot with one rate and writes it.
// Calls are serialized.
func (w *SyncWorker) Export(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.goals.Load(ctx); err != nil {
		return fmt.Errorf("load goals: %w", err)
	}
	goals := w.goals.Goals()
	rate := w.rates.Init(ctx)

	snapshot, err := BuildSnapshot(goals, rate, w.reference, w.goals.Revision(), w.now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	w.lastExport = snapshot.GeneratedAt
	w.exportCount++
	w.logger.InfoContext(ctx, "Successfully exported snapshot",
		applog.FieldOperation, applog.OpExport,
		"goals", len(goals),
		"rate_inr", rate.INR.String(),
		"rate_error", rate.Error)
	return nil
}

// Stats reports the number of exports and when the last one finished.
func (w *SyncWorker) Stats() (count int, last time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exportCount, w.lastExport
}

// RunPeriodic exports every interval until ctx is done. Failures are logged.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

// BuildSnapshot derives the exported view from goals and a single rate.
func BuildSnapshot(goals []core.Goal, rate core.ExchangeRate, reference core.Currency, revision int64, now time.Time) (sheets.Snapshot, error) {
	summary, err := dashboard.Summarize(goals, rate, reference)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("summarize: %w", err)
	}
	cards, err := dashboard.Cards(goals, rate)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("build cards: %w", err)
	}
	return sheets.Snapshot{
		GeneratedAt: now,
		Revision:    revision,
		Summary:     summary,
		Cards:       cards,
	}, nil
}
