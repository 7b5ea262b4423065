// Package dashboard derives read-only views from the goal collection and an
// exchange rate snapshot.
package dashboard

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// Summary aggregates every goal in a reference currency, with the totals
// also expressed in USD.
type Summary struct {
	Reference       core.Currency     `json:"referenceCurrency"`
	TotalTarget     decimal.Decimal   `json:"totalTarget"`
	TotalSaved      decimal.Decimal   `json:"totalSaved"`
	TotalTargetUSD  decimal.Decimal   `json:"totalTargetUSD"`
	TotalSavedUSD   decimal.Decimal   `json:"totalSavedUSD"`
	OverallProgress decimal.Decimal   `json:"overallProgress"`
	GoalCount       int               `json:"goalCount"`
	Rate            core.ExchangeRate `json:"exchangeRate"`
}

// Summarize converts each goal's target and saved amount into reference once,
// sums them, then converts the two totals into USD. The whole call uses the
// single rate snapshot it receives.
func Summarize(goals []core.Goal, rate core.ExchangeRate, reference core.Currency) (Summary, error) {
	if !reference.IsValid() {
		return Summary{}, fmt.Errorf("%w: %q", core.ErrUnsupportedCurrency, string(reference))
	}

	s := Summary{
		Reference:   reference,
		TotalTarget: decimal.Zero,
		TotalSaved:  decimal.Zero,
		GoalCount:   len(goals),
		Rate:        rate,
	}
	for _, g := range goals {
		target, err := core.Convert(g.TargetAmount, g.Currency, reference, rate)
		if err != nil {
			return Summary{}, fmt.Errorf("convert target of goal %s: %w", g.ID, err)
		}
		saved, err := core.Convert(g.CurrentAmount, g.Currency, reference, rate)
		if err != nil {
			return Summary{}, fmt.Errorf("convert saved amount of goal %s: %w", g.ID, err)
		}
		s.TotalTarget = s.TotalTarget.Add(target)
		s.TotalSaved = s.TotalSaved.Add(saved)
	}

	var err error
	if s.TotalTargetUSD, err = core.Convert(s.TotalTarget, reference, core.USD, rate); err != nil {
		return Summary{}, fmt.Errorf("convert total target: %w", err)
	}
	if s.TotalSavedUSD, err = core.Convert(s.TotalSaved, reference, core.USD, rate); err != nil {
		return Summary{}, fmt.Errorf("convert total saved: %w", err)
	}
	s.OverallProgress = core.CalculateOverallProgress(goals)
	return s, nil
}

// GoalCard is the per-goal view shown in lists.
type GoalCard struct {
	Goal              core.Goal       `json:"goal"`
	Progress          decimal.Decimal `json:"progress"`
	OtherCurrency     core.Currency   `json:"otherCurrency"`
	ConvertedTarget   decimal.Decimal `json:"convertedTarget"`
	Remaining         decimal.Decimal `json:"remaining"`
	ContributionCount int             `json:"contributionCount"`
	CurrencyLocked    bool            `json:"currencyLocked"`
}

func Card(g core.Goal, rate core.ExchangeRate) (GoalCard, error) {
	other := g.Currency.Other()
	converted, err := core.Convert(g.TargetAmount, g.Currency, other, rate)
	if err != nil {
		return GoalCard{}, fmt.Errorf("convert target of goal %s: %w", g.ID, err)
	}
	return GoalCard{
		Goal:              g,
		Progress:          core.CalculateProgress(g.CurrentAmount, g.TargetAmount),
		OtherCurrency:     other,
		ConvertedTarget:   converted,
		Remaining:         g.Remaining(),
		ContributionCount: len(g.Contributions),
		CurrencyLocked:    g.CurrencyLocked(),
	}, nil
}

// Cards builds a card for every goal in order.
func Cards(goals []core.Goal, rate core.ExchangeRate) ([]GoalCard, error) {
	cards := make([]GoalCard, 0, len(goals))
	for _, g := range goals {
		c, err := Card(g, rate)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// ContributionList is a goal's history, newest date first.
type ContributionList struct {
	GoalID        string              `json:"goalId"`
	Currency      core.Currency       `json:"currency"`
	Contributions []core.Contribution `json:"contributions"`
	Total         decimal.Decimal     `json:"total"`
}

// Contributions sorts by date descending; entries with the same date keep
// their insertion order.
func Contributions(g core.Goal) ContributionList {
	sorted := make([]core.Contribution, len(g.Contributions))
	copy(sorted, g.Contributions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	return ContributionList{
		GoalID:        g.ID,
		Currency:      g.Currency,
		Contributions: sorted,
		Total:         g.ContributionTotal(),
	}
}
