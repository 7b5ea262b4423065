package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"savings/internal/core"
)

var ErrInvalidMessage = errors.New("invalid goal event message")

// EncodeGoalEvent serializes an event for publishing.
func EncodeGoalEvent(e core.GoalEvent) ([]byte, error) {
	if err := validateGoalEvent(e); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeGoalEvent parses and checks a delivered body.
func DecodeGoalEvent(data []byte) (core.GoalEvent, error) {
	var e core.GoalEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return core.GoalEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := validateGoalEvent(e); err != nil {
		return core.GoalEvent{}, err
	}
	return e, nil
}

func validateGoalEvent(e core.GoalEvent) error {
	switch e.Type {
	case core.GoalCreated, core.GoalUpdated, core.GoalDeleted, core.ContributionAdded:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, e.Type)
	}
	if e.GoalID == "" {
		return fmt.Errorf("%w: missing goal id", ErrInvalidMessage)
	}
	if e.Type == core.ContributionAdded && e.ContributionID == "" {
		return fmt.Errorf("%w: missing contribution id", ErrInvalidMessage)
	}
	return nil
}
