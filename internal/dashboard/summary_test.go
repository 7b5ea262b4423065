package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/goals"
	"savings/internal/rates"
	"savings/internal/storage"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var rate80 = core.NewExchangeRate(decimal.NewFromInt(80), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

func TestSummarizeMixedCurrencies(t *testing.T) {
	gs := []core.Goal{
		{ID: "a", TargetAmount: d("100"), CurrentAmount: d("100"), Currency: core.USD},
		{ID: "b", TargetAmount: d("200"), CurrentAmount: d("0"), Currency: core.INR},
	}

	s, err := Summarize(gs, rate80, core.INR)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TotalTarget.Equal(d("8200")) || !s.TotalSaved.Equal(d("8000")) {
		t.Fatalf("unexpected INR totals: target=%s saved=%s", s.TotalTarget, s.TotalSaved)
	}
	if !s.TotalTargetUSD.Equal(d("102.5")) || !s.TotalSavedUSD.Equal(d("100")) {
		t.Fatalf("unexpected USD totals: target=%s saved=%s", s.TotalTargetUSD, s.TotalSavedUSD)
	}
	if !s.OverallProgress.Equal(d("50")) {
		t.Fatalf("expected overall progress 50, got %s", s.OverallProgress)
	}
	if s.GoalCount != 2 || s.Reference != core.INR {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarizeUSDReference(t *testing.T) {
	gs := []core.Goal{
		{ID: "a", TargetAmount: d("50"), CurrentAmount: d("10"), Currency: core.USD},
		{ID: "b", TargetAmount: d("800"), CurrentAmount: d("400"), Currency: core.INR},
	}
	s, err := Summarize(gs, rate80, core.USD)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TotalTarget.Equal(d("60")) || !s.TotalSaved.Equal(d("15")) {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if !s.TotalTargetUSD.Equal(s.TotalTarget) {
		t.Fatal("USD totals must equal reference totals when the reference is USD")
	}
}

func TestSummarizeEmptyAndErrors(t *testing.T) {
	s, err := Summarize(nil, rate80, core.INR)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TotalTarget.IsZero() || !s.OverallProgress.IsZero() || s.GoalCount != 0 {
		t.Fatalf("unexpected empty summary: %+v", s)
	}

	if _, err := Summarize(nil, rate80, core.Currency("EUR")); !errors.Is(err, core.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}

	bad := core.ExchangeRate{USD: decimal.NewFromInt(1), INR: decimal.Zero}
	gs := []core.Goal{{ID: "a", TargetAmount: d("1"), Currency: core.USD}}
	if _, err := Summarize(gs, bad, core.INR); !errors.Is(err, core.ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestCard(t *testing.T) {
	g := core.Goal{
		ID:            "g",
		TargetAmount:  d("8000"),
		CurrentAmount: d("10000"),
		Currency:      core.INR,
		Contributions: []core.Contribution{{ID: "c", Amount: d("10000")}},
	}
	c, err := Card(g, rate80)
	if err != nil {
		t.Fatal(err)
	}
	if c.OtherCurrency != core.USD || !c.ConvertedTarget.Equal(d("100")) {
		t.Fatalf("unexpected conversion: %+v", c)
	}
	if !c.Progress.Equal(d("100")) || !c.Remaining.IsZero() {
		t.Fatalf("overfunded goal should be capped: progress=%s remaining=%s", c.Progress, c.Remaining)
	}
	if c.ContributionCount != 1 || !c.CurrencyLocked {
		t.Fatalf("unexpected lock/count: %+v", c)
	}
}

func TestContributionsNewestFirst(t *testing.T) {
	g := core.Goal{
		ID:       "g",
		Currency: core.USD,
		Contributions: []core.Contribution{
			{ID: "1", Amount: d("1"), Date: core.NewDate(2024, 1, 5)},
			{ID: "2", Amount: d("2"), Date: core.NewDate(2024, 3, 1)},
			{ID: "3", Amount: d("3"), Date: core.NewDate(2024, 1, 5)},
		},
	}
	list := Contributions(g)
	got := []string{list.Contributions[0].ID, list.Contributions[1].ID, list.Contributions[2].ID}
	want := []string{"2", "1", "3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	if !list.Total.Equal(d("6")) {
		t.Fatalf("expected total 6, got %s", list.Total)
	}
	if g.Contributions[0].ID != "1" || g.Contributions[1].ID != "2" {
		t.Fatal("sorting modified the goal")
	}
}

type downFetcher struct{}

func (downFetcher) Fetch(context.Context) (rates.Quote, error) {
	return rates.Quote{}, errors.New("network unreachable")
}

func TestRateFailureDoesNotBlockGoals(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := storage.NewMemoryKV()

	provider := rates.NewProvider(downFetcher{}, kv, logger, rates.Options{})
	rate := provider.Init(ctx)
	if !rate.INR.Equal(core.DefaultINRRate) || rate.Error == "" {
		t.Fatalf("expected default rate with error, got %+v", rate)
	}

	store := goals.NewStore(kv, logger)
	if _, err := store.CreateGoal(ctx, goals.GoalInput{Name: "Emergency", TargetAmount: "500", Currency: "USD"}); err != nil {
		t.Fatalf("goal creation should succeed: %v", err)
	}

	s, err := Summarize(store.Goals(), provider.Current(), core.INR)
	if err != nil {
		t.Fatal(err)
	}
	if !s.TotalTarget.Equal(d("41750")) {
		t.Fatalf("expected 500 USD at default rate, got %s", s.TotalTarget)
	}
}
