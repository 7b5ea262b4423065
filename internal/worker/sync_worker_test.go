package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/goals"
	"savings/internal/sheets"
	"savings/internal/sheets/memory"
	"savings/internal/storage"
)

type staticRates struct {
	rate  core.ExchangeRate
	calls int
}

func (s *staticRates) Init(context.Context) core.ExchangeRate {
	s.calls++
	return s.rate
}

type failingWriter struct{}

func (failingWriter) WriteSnapshot(context.Context, sheets.Snapshot) error {
	return errors.New("quota exceeded")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleGoalEventExportsLatestState(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	// The writer side and the worker side share only the KV store.
	writerStore := goals.NewStore(kv, quiet())
	g, err := writerStore.CreateGoal(ctx, goals.GoalInput{Name: "Car", TargetAmount: "2000", Currency: "USD"})
	if err != nil {
		t.Fatal(err)
	}

	rates := &staticRates{rate: core.NewExchangeRate(decimal.NewFromInt(80), time.Now())}
	out := memory.New()
	w := NewSyncWorker(goals.NewStore(kv, quiet()), rates, out, core.INR, quiet())

	if err := w.HandleGoalEvent(ctx, core.GoalEvent{Type: core.GoalCreated, GoalID: g.ID}); err != nil {
		t.Fatalf("HandleGoalEvent: %v", err)
	}
	rows := out.Rows()
	if got := rows[len(rows)-1][0]; got != "Car" {
		t.Fatalf("expected Car row, got %v", got)
	}

	if _, _, err := writerStore.AddContribution(ctx, g.ID, goals.ContributionInput{Amount: "500", Date: time.Now().Format("2006-01-02")}); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleGoalEvent(ctx, core.GoalEvent{Type: core.ContributionAdded, GoalID: g.ID, ContributionID: "c"}); err != nil {
		t.Fatalf("HandleGoalEvent: %v", err)
	}
	rows = out.Rows()
	if got := rows[len(rows)-1][5]; got != "25.00" {
		t.Fatalf("expected 25.00 progress, got %v", got)
	}

	count, last := w.Stats()
	if count != 2 || last.IsZero() || rates.calls != 2 {
		t.Fatalf("count=%d last=%v rateCalls=%d", count, last, rates.calls)
	}
}

func TestExportErrorIsReturned(t *testing.T) {
	w := NewSyncWorker(goals.NewStore(storage.NewMemoryKV(), quiet()), &staticRates{rate: core.DefaultExchangeRate(time.Now())}, failingWriter{}, core.INR, quiet())

	err := w.HandleGoalEvent(context.Background(), core.GoalEvent{Type: core.GoalDeleted, GoalID: "x"})
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if count, _ := w.Stats(); count != 0 {
		t.Fatalf("failed export must not count, got %d", count)
	}
}

func TestBuildSnapshotRejectsBadRate(t *testing.T) {
	gs := []core.Goal{{ID: "a", TargetAmount: decimal.NewFromInt(1), Currency: core.USD}}
	bad := core.ExchangeRate{INR: decimal.Zero}
	if _, err := BuildSnapshot(gs, bad, core.INR, 1, time.Now()); !errors.Is(err, core.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	out := memory.New()
	w := NewSyncWorker(goals.NewStore(storage.NewMemoryKV(), quiet()), &staticRates{rate: core.DefaultExchangeRate(time.Now())}, out, core.USD, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for out.Writes() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic export did not run")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHandleGoalEventLogsEventFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewSyncWorker(goals.NewStore(storage.NewMemoryKV(), quiet()), &staticRates{rate: core.DefaultExchangeRate(time.Now())}, memory.New(), core.USD, logger)

	if err := w.HandleGoalEvent(context.Background(), core.GoalEvent{Type: core.GoalDeleted, GoalID: "g-7"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"event_type=" + string(core.GoalDeleted), "goal_id=g-7", "operation=export"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
