// Package core provides the savings domain: goals, contributions, exchange
// rates and the arithmetic derived from them.
//
// This file contains amount parsing and the limits applied to user input.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest target or contribution accepted.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

var (
	ErrAmountRequired = errors.New("amount is required")
	ErrInvalidAmount  = errors.New("amount must be a positive number")
	ErrAmountTooLarge = errors.New("amount is too large")
)

// ParseAmount converts user input into a positive decimal no larger than
// MaxAmount.
//
// A single comma followed by one or two digits is a decimal comma. Other
// commas must group the integer part, either in thousands (1,234,567) or in
// the Indian lakh style (12,34,567), and are dropped. Signs, zero, and
// anything decimal cannot parse are rejected.
//
// Examples:
//
//	ParseAmount("250")      -> 250, nil
//	ParseAmount("12,5")     -> 12.5, nil
//	ParseAmount("5,000")    -> 5000, nil
//	ParseAmount("1,00,000") -> 100000, nil
//	ParseAmount("1,50")     -> 1.5, nil
//	ParseAmount("1,5000")   -> 0, ErrInvalidAmount
//	ParseAmount("0")        -> 0, ErrInvalidAmount
//	ParseAmount("2e9")      -> 0, ErrAmountTooLarge
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrAmountRequired
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, CheckAmount(d)
}

// normalizeSeparators rewrites a decimal comma as a dot and removes grouping
// commas. ok is false when the commas fit neither use.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot {
		if strings.Contains(frac, ",") || !validGrouping(whole) {
			return "", false
		}
		return strings.ReplaceAll(whole, ",", "") + "." + frac, true
	}
	if head, tail, _ := strings.Cut(s, ","); !strings.Contains(tail, ",") && len(tail) <= 2 && allDigits(tail) && tail != "" {
		return head + "." + tail, true
	}
	if !validGrouping(s) {
		return "", false
	}
	return strings.ReplaceAll(s, ",", ""), true
}

// validGrouping reports whether the commas in digits separate groups of three,
// or groups of two before a final group of three.
func validGrouping(digits string) bool {
	groups := strings.Split(digits, ",")
	if len(groups) == 1 {
		return true
	}
	for _, g := range groups {
		if !allDigits(g) {
			return false
		}
	}
	if len(groups[len(groups)-1]) != 3 {
		return false
	}
	middle := groups[1 : len(groups)-1]
	size := 3
	if len(middle) > 0 && len(middle[0]) == 2 {
		size = 2
	}
	for _, g := range middle {
		if len(g) != size {
			return false
		}
	}
	first := len(groups[0])
	return first >= 1 && first <= size
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CheckAmount applies the positive and upper-bound limits to an already
// parsed amount.
func CheckAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}
