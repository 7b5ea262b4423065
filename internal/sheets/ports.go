// Package sheets defines the dashboard export port and the tabular layout
// shared by its adapters.
package sheets

import (
	"context"
	"time"

	"savings/internal/dashboard"
)

// Snapshot is everything one export writes.
type Snapshot struct {
	GeneratedAt time.Time
	Revision    int64
	Summary     dashboard.Summary
	Cards       []dashboard.GoalCard
}

// Ports for outbound adapters.
type (
	// SnapshotWriter replaces the exported dashboard with s.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, s Snapshot) error
	}
)
