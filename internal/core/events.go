package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalEventType names a change to the goal collection.
type GoalEventType string

const (
	GoalCreated       GoalEventType = "goal.created"
	GoalUpdated       GoalEventType = "goal.updated"
	GoalDeleted       GoalEventType = "goal.deleted"
	ContributionAdded GoalEventType = "contribution.added"
)

// GoalEvent describes one applied mutation. Amount and ContributionID are set
// only for ContributionAdded.
type GoalEvent struct {
	Type           GoalEventType   `json:"type"`
	GoalID         string          `json:"goalId"`
	ContributionID string          `json:"contributionId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       Currency        `json:"currency,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}
