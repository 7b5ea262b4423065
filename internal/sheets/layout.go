package sheets

import (
	"time"

	"savings/internal/dashboard"
)

// GoalHeader is the header row of the goal table.
var GoalHeader = []any{"Goal", "Currency", "Target", "Saved", "Remaining", "Progress %", "Target (other)", "Other currency", "Contributions", "Currency locked", "Created"}

// Rows lays s out as a values matrix: a summary block, a blank row, then one
// row per goal under GoalHeader. Amounts are plain decimal strings so the
// sheet can compute with them.
func Rows(s Snapshot) [][]any {
	sum := s.Summary
	rows := [][]any{
		{"Generated at", s.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Revision", s.Revision},
		{"Reference currency", string(sum.Reference)},
		{"Total target", sum.TotalTarget.StringFixed(2), dashboard.FormatAmount(sum.TotalTarget, sum.Reference)},
		{"Total saved", sum.TotalSaved.StringFixed(2), dashboard.FormatAmount(sum.TotalSaved, sum.Reference)},
		{"Total target (USD)", sum.TotalTargetUSD.StringFixed(2)},
		{"Total saved (USD)", sum.TotalSavedUSD.StringFixed(2)},
		{"Overall progress %", sum.OverallProgress.StringFixed(2)},
		{"USD to INR", sum.Rate.INR.String(), sum.Rate.LastUpdated.UTC().Format(time.RFC3339)},
		{},
		GoalHeader,
	}
	for _, c := range s.Cards {
		g := c.Goal
		rows = append(rows, []any{
			g.Name,
			string(g.Currency),
			g.TargetAmount.StringFixed(2),
			g.CurrentAmount.StringFixed(2),
			c.Remaining.StringFixed(2),
			c.Progress.StringFixed(2),
			c.ConvertedTarget.StringFixed(2),
			string(c.OtherCurrency),
			c.ContributionCount,
			c.CurrencyLocked,
			g.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	return rows
}
