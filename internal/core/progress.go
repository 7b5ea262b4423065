package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalculateProgress returns current/target as a percentage rounded to two
// decimals and capped at 100. A zero target yields 0.
func CalculateProgress(current, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	p := current.Mul(hundred).DivRound(target, 2)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// CalculateOverallProgress is the unweighted mean of every goal's progress,
// rounded to two decimals. No goals means 0.
func CalculateOverallProgress(goals []Goal) decimal.Decimal {
	if len(goals) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, g := range goals {
		total = total.Add(CalculateProgress(g.CurrentAmount, g.TargetAmount))
	}
	return total.DivRound(decimal.NewFromInt(int64(len(goals))), 2)
}
