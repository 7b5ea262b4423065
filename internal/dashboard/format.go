package dashboard

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// FormatAmount renders amount with the currency symbol, thousands separators
// and exactly two decimals, e.g. $1,234.56.
func FormatAmount(amount decimal.Decimal, c core.Currency) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + c.Symbol() + humanize.Comma(decimal.RequireFromString(whole).IntPart()) + "." + frac
}

// FormatPercent renders a progress value such as 42.5 as "42.50%".
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
