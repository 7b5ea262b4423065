package goals

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"savings/internal/core"
	"savings/internal/storage"
)

// Notifier receives an event after each applied mutation.
type Notifier interface {
	PublishGoalEvent(ctx context.Context, event core.GoalEvent) error
}

// Store holds the current goal collection. Mutations are serialized; each one
// first re-reads the persisted value, then replaces the collection, overwrites
// the persisted value and notifies.
type Store struct {
	kv       storage.KV
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.RWMutex
	goals    Collection
	revision int64
	// lastRaw is the persisted value the collection was last read from or
	// written as; dirty is set while the latest write has not been stored.
	lastRaw []byte
	dirty   bool
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier publishes events for every applied mutation.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUIDv4 generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func NewStore(kv storage.KV, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		goals:  Collection{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. A missing or
// undecodable value yields an empty collection. Goals whose current amount
// drifted from their contributions are repaired and written back.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = false
	raw, err := s.readLocked(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read goals, starting empty", "error", err)
		s.replaceLocked(Collection{}, nil)
		return err
	}
	s.adoptLocked(ctx, raw)

	s.logger.InfoContext(ctx, "Goals loaded", "count", len(s.goals))
	return nil
}

// Sync picks up changes written to the store by other processes sharing the
// same backend. Nothing happens when the persisted value is unchanged.
func (s *Store) Sync(ctx context.Context) {
	s.mu.Lock()
	s.syncLocked(ctx)
	s.mu.Unlock()
}

// syncLocked re-reads the persisted collection before a read or mutation. It
// is skipped while a previous write has failed, so the in-memory state is not
// replaced by an older persisted one.
func (s *Store) syncLocked(ctx context.Context) {
	if s.dirty {
		return
	}
	raw, err := s.readLocked(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to re-read goals, using in-memory state", "error", err)
		return
	}
	if bytes.Equal(raw, s.lastRaw) {
		return
	}
	s.logger.DebugContext(ctx, "Persisted goals changed, reloading")
	s.adoptLocked(ctx, raw)
}

func (s *Store) readLocked(ctx context.Context) ([]byte, error) {
	raw, found, err := s.kv.Get(ctx, storage.GoalsKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return raw, nil
}

// adoptLocked decodes raw into the current collection.
func (s *Store) adoptLocked(ctx context.Context, raw []byte) {
	loaded := Collection{}
	if len(raw) > 0 {
		var decoded Collection
		if err := json.Unmarshal(raw, &decoded); err != nil {
			s.logger.WarnContext(ctx, "Stored goals are malformed, starting empty", "error", err)
		} else {
			loaded = dropInvalid(decoded, s.logger)
		}
	}

	repairedCollection, repaired := loaded.Repair()
	s.replaceLocked(repairedCollection, raw)
	if len(repaired) > 0 {
		s.logger.WarnContext(ctx, "Repaired goal totals", "goal_ids", repaired)
		s.persistLocked(ctx)
	}
}

func (s *Store) replaceLocked(c Collection, raw []byte) {
	s.goals = c
	s.lastRaw = raw
	s.revision++
}

// dropInvalid removes entries without an id, with a duplicated id or with an
// unsupported currency.
func dropInvalid(c Collection, logger *slog.Logger) Collection {
	seen := make(map[string]struct{}, len(c))
	out := make(Collection, 0, len(c))
	for _, g := range c {
		if g.ID == "" {
			logger.Warn("Dropping stored goal without id", "name", g.Name)
			continue
		}
		if _, dup := seen[g.ID]; dup {
			logger.Warn("Dropping duplicated stored goal", "goal_id", g.ID)
			continue
		}
		if !g.Currency.IsValid() {
			logger.Warn("Dropping stored goal with unsupported currency", "goal_id", g.ID, "currency", g.Currency)
			continue
		}
		seen[g.ID] = struct{}{}
		if g.Contributions == nil {
			g.Contributions = []core.Contribution{}
		}
		out = append(out, g)
	}
	return out
}

// Goals returns a snapshot of the collection.
func (s *Store) Goals() []core.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals.Goals()
}

// Goal returns the goal with id.
func (s *Store) Goal(id string) (core.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals.Find(id)
}

// Revision increases on every applied change, including Load.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) CreateGoal(ctx context.Context, in GoalInput) (core.Goal, error) {
	s.mu.Lock()
	s.syncLocked(ctx)
	next, goal, err := s.goals.Create(in, Meta{ID: s.newID(), Now: s.now()})
	if err != nil {
		s.mu.Unlock()
		return core.Goal{}, err
	}
	s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Goal created", "goal_id", goal.ID, "currency", goal.Currency)
	s.notify(ctx, core.GoalEvent{Type: core.GoalCreated, GoalID: goal.ID, Currency: goal.Currency})
	return goal, nil
}

// EditGoal returns ok=false when id is unknown; nothing changes in that case.
func (s *Store) EditGoal(ctx context.Context, id string, in GoalInput) (core.Goal, bool, error) {
	s.mu.Lock()
	s.syncLocked(ctx)
	next, goal, ok, err := s.goals.Edit(id, in)
	if err != nil || !ok {
		s.mu.Unlock()
		return core.Goal{}, ok, err
	}
	s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Goal updated", "goal_id", goal.ID)
	s.notify(ctx, core.GoalEvent{Type: core.GoalUpdated, GoalID: goal.ID, Currency: goal.Currency})
	return goal, true, nil
}

// DeleteGoal removes the goal and its contributions.
func (s *Store) DeleteGoal(ctx context.Context, id string) bool {
	s.mu.Lock()
	s.syncLocked(ctx)
	next, ok := s.goals.Delete(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Goal deleted", "goal_id", id)
	s.notify(ctx, core.GoalEvent{Type: core.GoalDeleted, GoalID: id})
	return true
}

// AddContribution records a contribution on goalID. It returns ok=false when
// goalID is empty or unknown.
func (s *Store) AddContribution(ctx context.Context, goalID string, in ContributionInput) (core.Contribution, bool, error) {
	s.mu.Lock()
	s.syncLocked(ctx)
	next, c, ok, err := s.goals.AddContribution(goalID, in, Meta{ID: s.newID(), Now: s.now()})
	if err != nil || !ok {
		s.mu.Unlock()
		return core.Contribution{}, ok, err
	}
	goal, _ := next.Find(goalID)
	s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Contribution added", "goal_id", goalID, "contribution_id", c.ID, "amount", c.Amount.String())
	s.notify(ctx, core.GoalEvent{
		Type:           core.ContributionAdded,
		GoalID:         goalID,
		ContributionID: c.ID,
		Amount:         c.Amount,
		Currency:       goal.Currency,
	})
	return c, true, nil
}

func (s *Store) commitLocked(ctx context.Context, next Collection) {
	s.goals = next
	s.revision++
	s.persistLocked(ctx)
}

// persistLocked writes the whole collection under one key. Failures keep the
// in-memory state.
func (s *Store) persistLocked(ctx context.Context) {
	body, err := json.Marshal(s.goals)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode goals", "error", err)
		return
	}
	if err := s.kv.Set(ctx, storage.GoalsKey, body); err != nil {
		s.dirty = true
		s.logger.ErrorContext(ctx, "Failed to persist goals", "error", err, "revision", s.revision)
		return
	}
	s.lastRaw = body
	s.dirty = false
}

func (s *Store) notify(ctx context.Context, event core.GoalEvent) {
	if s.notifier == nil {
		return
	}
	event.Timestamp = s.now()
	if err := s.notifier.PublishGoalEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish goal event", "error", err, "type", event.Type, "goal_id", event.GoalID)
	}
}
