package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateProgress(t *testing.T) {
	cases := []struct {
		current, target, want string
	}{
		{"250", "1000", "25"},
		{"0", "1000", "0"},
		{"1", "3", "33.33"},
		{"2", "3", "66.67"},
		{"1", "8", "12.5"},
		{"0.125", "1", "12.5"},
		{"0.00125", "1", "0.13"}, // half-up
		{"1000", "1000", "100"},
		{"5000", "1000", "100"}, // capped
		{"50", "0", "0"},        // zero target
	}
	for _, tc := range cases {
		got := CalculateProgress(d(tc.current), d(tc.target))
		if !got.Equal(d(tc.want)) {
			t.Fatalf("progress(%s, %s) = %s, want %s", tc.current, tc.target, got, tc.want)
		}
	}
}

func TestCalculateProgressMonotonic(t *testing.T) {
	target := d("777")
	prev := decimal.Zero
	for i := 0; i <= 1000; i++ {
		p := CalculateProgress(decimal.NewFromInt(int64(i)), target)
		if p.LessThan(prev) {
			t.Fatalf("progress decreased at %d: %s < %s", i, p, prev)
		}
		if p.GreaterThan(hundred) {
			t.Fatalf("progress above 100 at %d: %s", i, p)
		}
		prev = p
	}
}

func TestCalculateOverallProgress(t *testing.T) {
	if got := CalculateOverallProgress(nil); !got.IsZero() {
		t.Fatalf("empty set: %s", got)
	}
	goals := []Goal{
		{TargetAmount: d("100"), CurrentAmount: d("100"), Currency: USD},
		{TargetAmount: d("200"), CurrentAmount: d("0"), Currency: INR},
	}
	if got := CalculateOverallProgress(goals); !got.Equal(d("50")) {
		t.Fatalf("overall = %s, want 50", got)
	}
	goals = append(goals, Goal{TargetAmount: d("3"), CurrentAmount: d("1"), Currency: USD})
	// (100 + 0 + 33.33) / 3 = 44.443...
	if got := CalculateOverallProgress(goals); !got.Equal(d("44.44")) {
		t.Fatalf("overall = %s, want 44.44", got)
	}
}
