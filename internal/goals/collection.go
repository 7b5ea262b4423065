// Package goals owns the goal collection: pure update functions that return a
// new Collection, and a Store that persists and publishes each change.
package goals

import (
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// Collection is an ordered list of goals, unique by ID. Methods never modify
// the receiver; they return a new Collection.
type Collection []core.Goal

// GoalInput carries raw form values for create and edit.
type GoalInput struct {
	Name         string
	TargetAmount string
	Currency     string
}

// ContributionInput carries raw form values for a contribution.
type ContributionInput struct {
	Amount string
	Date   string
}

// Meta supplies the identifier and timestamp for a new entity.
type Meta struct {
	ID  string
	Now time.Time
}

type validatedGoal struct {
	name     string
	target   decimal.Decimal
	currency core.Currency
}

func validateGoalInput(in GoalInput) (validatedGoal, error) {
	var ve core.ValidationError
	var v validatedGoal

	name, msg := core.ValidateName(in.Name)
	if msg != "" {
		ve.Add(core.FieldName, msg)
	}
	target, msg := core.ValidateTargetAmount(in.TargetAmount)
	if msg != "" {
		ve.Add(core.FieldTargetAmount, msg)
	}
	currency, msg := core.ValidateCurrency(in.Currency)
	if msg != "" {
		ve.Add(core.FieldCurrency, msg)
	}
	if err := ve.Err(); err != nil {
		return v, err
	}

	v.name = name
	v.target = target
	v.currency = currency
	return v, nil
}

// Index returns the position of the goal with id, or -1.
func (c Collection) Index(id string) int {
	if id == "" {
		return -1
	}
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the goal with id.
func (c Collection) Find(id string) (core.Goal, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return core.Goal{}, false
}

// Goals returns the collection as a plain slice sharing no backing array.
func (c Collection) Goals() []core.Goal {
	return append([]core.Goal(nil), c...)
}

// Create validates in and appends a new goal.
func (c Collection) Create(in GoalInput, meta Meta) (Collection, core.Goal, error) {
	v, err := validateGoalInput(in)
	if err != nil {
		return c, core.Goal{}, err
	}
	goal := core.Goal{
		ID:            meta.ID,
		Name:          v.name,
		TargetAmount:  v.target,
		Currency:      v.currency,
		Contributions: []core.Contribution{},
		CreatedAt:     meta.Now,
	}
	next := make(Collection, len(c), len(c)+1)
	copy(next, c)
	return append(next, goal), goal, nil
}

// Edit validates in and applies name and target to the goal with id. The
// currency changes only while the goal has no contributions; otherwise the
// requested currency is ignored. ok is false when id is unknown, whatever in
// holds.
func (c Collection) Edit(id string, in GoalInput) (next Collection, goal core.Goal, ok bool, err error) {
	i := c.Index(id)
	if i < 0 {
		return c, core.Goal{}, false, nil
	}
	v, err := validateGoalInput(in)
	if err != nil {
		return c, core.Goal{}, false, err
	}

	goal = c[i]
	goal.Name = v.name
	goal.TargetAmount = v.target
	if !goal.CurrencyLocked() {
		goal.Currency = v.currency
	}

	next = c.replace(i, goal)
	return next, goal, true, nil
}

// Delete removes the goal with id together with its contributions. ok is
// false when id is unknown.
func (c Collection) Delete(id string) (Collection, bool) {
	i := c.Index(id)
	if i < 0 {
		return c, false
	}
	next := make(Collection, 0, len(c)-1)
	next = append(next, c[:i]...)
	next = append(next, c[i+1:]...)
	return next, true
}

// AddContribution validates in, then appends a contribution to the goal with
// goalID and raises its current amount by the same value. ok is false when
// goalID is empty or unknown; in is not validated then.
func (c Collection) AddContribution(goalID string, in ContributionInput, meta Meta) (next Collection, contribution core.Contribution, ok bool, err error) {
	i := c.Index(goalID)
	if i < 0 {
		return c, core.Contribution{}, false, nil
	}

	var ve core.ValidationError
	amount, msg := core.ValidateContributionAmount(in.Amount)
	if msg != "" {
		ve.Add(core.FieldAmount, msg)
	}
	date, msg := core.ValidateContributionDate(in.Date, meta.Now)
	if msg != "" {
		ve.Add(core.FieldDate, msg)
	}
	if err := ve.Err(); err != nil {
		return c, core.Contribution{}, false, err
	}

	contribution = core.Contribution{
		ID:        meta.ID,
		Amount:    amount,
		Date:      date,
		CreatedAt: meta.Now,
	}
	return c.replace(i, c[i].WithContribution(contribution)), contribution, true, nil
}

// Repair recomputes CurrentAmount for goals whose stored value drifted from
// the contribution sum, returning the repaired IDs.
func (c Collection) Repair() (Collection, []string) {
	var repaired []string
	next := c
	for i, g := range c {
		if g.Consistent() {
			continue
		}
		g.CurrentAmount = g.ContributionTotal()
		next = next.replace(i, g)
		repaired = append(repaired, g.ID)
	}
	return next, repaired
}

func (c Collection) replace(i int, g core.Goal) Collection {
	next := make(Collection, len(c))
	copy(next, c)
	next[i] = g
	return next
}
