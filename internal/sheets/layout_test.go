package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/dashboard"
)

func TestRowsLayout(t *testing.T) {
	rate := core.NewExchangeRate(decimal.RequireFromString("83.5"), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	goals := []core.Goal{{
		ID:            "g1",
		Name:          "House",
		TargetAmount:  decimal.NewFromInt(1000000),
		CurrentAmount: decimal.NewFromInt(250000),
		Currency:      core.INR,
		Contributions: []core.Contribution{{ID: "c1", Amount: decimal.NewFromInt(250000)}},
		CreatedAt:     time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}}
	summary, err := dashboard.Summarize(goals, rate, core.INR)
	if err != nil {
		t.Fatal(err)
	}
	cards, err := dashboard.Cards(goals, rate)
	if err != nil {
		t.Fatal(err)
	}

	rows := Rows(Snapshot{
		GeneratedAt: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC),
		Revision:    7,
		Summary:     summary,
		Cards:       cards,
	})

	if rows[0][1] != "2024-06-15T08:00:00Z" || rows[1][1] != int64(7) {
		t.Fatalf("unexpected header block %v %v", rows[0], rows[1])
	}
	if rows[3][2] != "₹1,000,000.00" {
		t.Fatalf("unexpected formatted total %v", rows[3])
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	goalRow := rows[11]
	want := []any{"House", "INR", "1000000.00", "250000.00", "750000.00", "25.00", "11976.05", "USD", 1, true, "2024-05-02"}
	for i := range want {
		if goalRow[i] != want[i] {
			t.Fatalf("column %d: got %v, want %v", i, goalRow[i], want[i])
		}
	}
}
