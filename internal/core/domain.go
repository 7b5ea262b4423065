package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxGoalNameLength is counted in characters after trimming.
const MaxGoalNameLength = 50

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day stored as UTC midnight.
	Date struct {
		time.Time
	}

	Contribution struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		Currency      Currency        `json:"currency"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		Contributions []Contribution  `json:"contributions"`
		CreatedAt     time.Time       `json:"createdAt"`
	}
)

// Field names used in validation errors.
const (
	FieldName         = "name"
	FieldTargetAmount = "targetAmount"
	FieldCurrency     = "currency"
	FieldAmount       = "amount"
	FieldDate         = "date"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrFutureDate  = errors.New("date cannot be in the future")
)

// ValidationError collects one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD and full RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = DateOf(t)
	return nil
}

// ValidateName returns the trimmed name or a user-facing message.
func ValidateName(name string) (string, string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", "Goal name is required"
	case utf8.RuneCountInString(name) > MaxGoalNameLength:
		return "", fmt.Sprintf("Goal name must be %d characters or less", MaxGoalNameLength)
	}
	return name, ""
}

// ValidateTargetAmount parses a goal target or returns a user-facing message.
func ValidateTargetAmount(s string) (decimal.Decimal, string) {
	d, err := ParseAmount(s)
	switch {
	case errors.Is(err, ErrAmountRequired):
		return d, "Target amount is required"
	case errors.Is(err, ErrAmountTooLarge):
		return d, "Target amount is too large"
	case err != nil:
		return d, "Target amount must be a positive number"
	}
	return d, ""
}

// ValidateContributionAmount parses a contribution amount or returns a
// user-facing message.
func ValidateContributionAmount(s string) (decimal.Decimal, string) {
	d, err := ParseAmount(s)
	switch {
	case errors.Is(err, ErrAmountRequired):
		return d, "Contribution amount is required"
	case errors.Is(err, ErrAmountTooLarge):
		return d, "Amount is too large"
	case err != nil:
		return d, "Amount must be a positive number"
	}
	return d, ""
}

// ValidateContributionDate parses s and rejects days after today. The whole
// of today is allowed.
func ValidateContributionDate(s string, now time.Time) (Date, string) {
	if strings.TrimSpace(s) == "" {
		return Date{}, "Date is required"
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, "Date must use the YYYY-MM-DD format"
	}
	if d.After(DateOf(now).Time) {
		return Date{}, "Date cannot be in the future"
	}
	return d, ""
}

// ValidateCurrency parses a currency code or returns a user-facing message.
func ValidateCurrency(s string) (Currency, string) {
	c, err := ParseCurrency(s)
	if err != nil {
		return "", "Currency must be one of USD, INR"
	}
	return c, ""
}

// CurrencyLocked reports whether the goal's currency can no longer change.
func (g Goal) CurrencyLocked() bool {
	return len(g.Contributions) > 0
}

// ContributionTotal sums every contribution amount.
func (g Goal) ContributionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range g.Contributions {
		total = total.Add(c.Amount)
	}
	return total
}

// Consistent reports whether CurrentAmount matches the contribution sum.
func (g Goal) Consistent() bool {
	return g.CurrentAmount.Equal(g.ContributionTotal())
}

// Remaining is the amount still missing to reach the target, never negative.
func (g Goal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// WithContribution returns a copy of g with c appended and CurrentAmount
// increased by c.Amount. g itself is not modified.
func (g Goal) WithContribution(c Contribution) Goal {
	contributions := make([]Contribution, len(g.Contributions), len(g.Contributions)+1)
	copy(contributions, g.Contributions)
	g.Contributions = append(contributions, c)
	g.CurrentAmount = g.CurrentAmount.Add(c.Amount)
	return g
}
