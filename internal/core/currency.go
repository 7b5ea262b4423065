package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code supported by the tracker.
type Currency string

const (
	USD Currency = "USD"
	INR Currency = "INR"
)

// PivotCurrency is the unit every cross-currency conversion passes through.
const PivotCurrency = USD

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidRate         = errors.New("exchange rate must be positive")
)

// DefaultINRRate seeds the in-memory rate before any fetch or cache read.
var DefaultINRRate = decimal.RequireFromString("83.5")

var symbols = map[Currency]string{
	USD: "$",
	INR: "₹",
}

// Currencies returns the supported currencies in display order.
func Currencies() []Currency {
	return []Currency{USD, INR}
}

// ParseCurrency accepts a currency code in any letter case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
	return c, nil
}

func (c Currency) IsValid() bool {
	_, ok := symbols[c]
	return ok
}

func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol, or the code itself for unknown currencies.
func (c Currency) Symbol() string {
	if s, ok := symbols[c]; ok {
		return s
	}
	return string(c)
}

// Other returns the counterpart currency shown next to a goal's own amounts.
func (c Currency) Other() Currency {
	if c == USD {
		return INR
	}
	return USD
}

// ExchangeRate is a snapshot of units per 1 USD.
type ExchangeRate struct {
	USD         decimal.Decimal `json:"USD"`
	INR         decimal.Decimal `json:"INR"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Error       string          `json:"error,omitempty"`
}

// NewExchangeRate builds a rate snapshot with USD fixed at 1.
func NewExchangeRate(inr decimal.Decimal, lastUpdated time.Time) ExchangeRate {
	return ExchangeRate{
		USD:         decimal.NewFromInt(1),
		INR:         inr,
		LastUpdated: lastUpdated,
	}
}

// DefaultExchangeRate is the hardcoded fallback used at process start.
func DefaultExchangeRate(now time.Time) ExchangeRate {
	return NewExchangeRate(DefaultINRRate, now)
}

// PerUSD returns how many units of c one USD buys.
func (r ExchangeRate) PerUSD(c Currency) (decimal.Decimal, error) {
	var v decimal.Decimal
	switch c {
	case USD:
		return decimal.NewFromInt(1), nil
	case INR:
		v = r.INR
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, string(c))
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s per USD is %s", ErrInvalidRate, c, v)
	}
	return v, nil
}

// Validate reports whether the snapshot can be used for conversions.
func (r ExchangeRate) Validate() error {
	_, err := r.PerUSD(INR)
	return err
}

// Convert moves amount from one currency to another through the USD pivot.
// Same-currency conversion returns amount untouched.
func Convert(amount decimal.Decimal, from, to Currency, rate ExchangeRate) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromPerUSD, err := rate.PerUSD(from)
	if err != nil {
		return decimal.Zero, err
	}
	toPerUSD, err := rate.PerUSD(to)
	if err != nil {
		return decimal.Zero, err
	}

	amountUSD := amount
	if from != PivotCurrency {
		amountUSD = amount.Div(fromPerUSD)
	}
	if to == PivotCurrency {
		return amountUSD, nil
	}
	return amountUSD.Mul(toPerUSD), nil
}
