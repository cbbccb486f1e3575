// Package ledger holds the persisted collection of proposed price changes,
// their status state machine, and the tombstone set that makes deletion
// irreversible.
package ledger

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// Publisher receives ledger events for fan-out to connected clients.
// Implementations must not block; delivery is best-effort.
type Publisher interface {
	Publish(event string, payload any)
}

// Ledger is the in-process authoritative collection of price changes. All
// mutations go through one mutex (single-writer model); persistence is a
// best-effort whole-snapshot write, so in-memory state stays authoritative
// for the current session even when the store is unreachable.
type Ledger struct {
	mu         sync.Mutex
	changes    []domain.PriceChange
	index      map[string]int // id -> position in changes
	tombstones map[string]struct{}

	store  domain.LedgerStore // nil disables persistence
	pub    Publisher          // nil disables event fan-out
	logger *slog.Logger
}

// New creates an empty Ledger. store and pub may be nil.
func New(store domain.LedgerStore, pub Publisher, logger *slog.Logger) *Ledger {
	return &Ledger{
		index:      make(map[string]int),
		tombstones: make(map[string]struct{}),
		store:      store,
		pub:        pub,
		logger:     logger.With(slog.String("component", "ledger")),
	}
}

// Load replaces the in-memory state with the persisted snapshot and
// tombstone set. Call once at startup, or after RestoreDeleted.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	changes, err := l.store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	ids, err := l.store.LoadTombstones(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.changes = changes
	l.index = make(map[string]int, len(changes))
	for i, c := range changes {
		l.index[c.ID] = i
	}
	l.tombstones = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		l.tombstones[id] = struct{}{}
	}
	return nil
}

// Add inserts or updates a change by id and persists the snapshot. A change
// whose id has been tombstoned is dropped silently; Add reports whether the
// change entered the ledger.
func (l *Ledger) Add(ctx context.Context, change domain.PriceChange) bool {
	l.mu.Lock()

	if _, dead := l.tombstones[change.ID]; dead {
		l.mu.Unlock()
		l.logger.DebugContext(ctx, "dropped tombstoned change",
			slog.String("id", change.ID),
		)
		return false
	}

	if i, ok := l.index[change.ID]; ok {
		l.changes[i] = change
	} else {
		l.index[change.ID] = len(l.changes)
		l.changes = append(l.changes, change)
	}
	l.persistSnapshotLocked(ctx)
	l.mu.Unlock()

	l.publish("price_change.created", change)
	return true
}

// Get returns a change by id.
func (l *Ledger) Get(id string) (domain.PriceChange, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return domain.PriceChange{}, false
	}
	return l.changes[i], true
}

// All returns every change, newest first by timestamp.
func (l *Ledger) All() []domain.PriceChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedCopy(l.changes, func(domain.PriceChange) bool { return true })
}

// ForProduct returns the changes for one product, newest first.
func (l *Ledger) ForProduct(productID string) []domain.PriceChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedCopy(l.changes, func(c domain.PriceChange) bool {
		return c.ProductID == productID
	})
}

// Apply marks a change as applied. The transition is unconditional: a
// rejected change can be re-applied. Missing ids are a no-op so retries
// stay idempotent.
func (l *Ledger) Apply(ctx context.Context, id string) (domain.PriceChange, bool) {
	return l.setStatus(ctx, id, domain.ChangeApplied)
}

// Reject marks a change as rejected. Same transition semantics as Apply.
func (l *Ledger) Reject(ctx context.Context, id string) (domain.PriceChange, bool) {
	return l.setStatus(ctx, id, domain.ChangeRejected)
}

// MarkFailed records that applying a change to the product failed.
func (l *Ledger) MarkFailed(ctx context.Context, id string) (domain.PriceChange, bool) {
	return l.setStatus(ctx, id, domain.ChangeFailed)
}

func (l *Ledger) setStatus(ctx context.Context, id string, status domain.ChangeStatus) (domain.PriceChange, bool) {
	l.mu.Lock()

	i, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return domain.PriceChange{}, false
	}
	l.changes[i].Status = status
	change := l.changes[i]
	l.persistSnapshotLocked(ctx)
	l.mu.Unlock()

	l.publish("price_change."+string(status), change)
	return change, true
}

// Delete removes a change from the active collection and tombstones its id
// permanently. Deleting a missing id is a no-op; deleting twice has the same
// observable effect as once.
func (l *Ledger) Delete(ctx context.Context, id string) bool {
	l.mu.Lock()

	i, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return false
	}

	change := l.changes[i]
	l.changes = append(l.changes[:i], l.changes[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.changes); j++ {
		l.index[l.changes[j].ID] = j
	}
	l.tombstones[id] = struct{}{}

	l.persistSnapshotLocked(ctx)
	l.persistTombstonesLocked(ctx)
	l.mu.Unlock()

	l.publish("price_change.deleted", change)
	return true
}

// ClearAll tombstones every currently-present id and empties the ledger.
func (l *Ledger) ClearAll(ctx context.Context) int {
	l.mu.Lock()

	n := len(l.changes)
	for _, c := range l.changes {
		l.tombstones[c.ID] = struct{}{}
	}
	l.changes = nil
	l.index = make(map[string]int)

	l.persistSnapshotLocked(ctx)
	l.persistTombstonesLocked(ctx)
	l.mu.Unlock()

	l.publish("ledger.cleared", map[string]int{"removed": n})
	return n
}

// RestoreDeleted clears the entire tombstone set. It does not resurrect
// records the ledger no longer holds: only the recreation block is lifted,
// so an upstream source must regenerate identical entries for them to
// reappear. The caller should reload upstream data afterwards.
func (l *Ledger) RestoreDeleted(ctx context.Context) int {
	l.mu.Lock()

	n := len(l.tombstones)
	l.tombstones = make(map[string]struct{})
	l.persistTombstonesLocked(ctx)
	l.mu.Unlock()

	l.publish("ledger.restored", map[string]int{"untombstoned": n})
	return n
}

// IsTombstoned reports whether an id is blocked from re-entering the ledger.
func (l *Ledger) IsTombstoned(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, dead := l.tombstones[id]
	return dead
}

// Len returns the number of active changes.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

// persistSnapshotLocked writes the full snapshot to the store. Failures are
// logged and swallowed: persistence is best-effort and the in-memory state
// remains authoritative. Callers must hold l.mu.
func (l *Ledger) persistSnapshotLocked(ctx context.Context) {
	if l.store == nil {
		return
	}
	snapshot := make([]domain.PriceChange, len(l.changes))
	copy(snapshot, l.changes)
	if err := l.store.SaveSnapshot(ctx, snapshot); err != nil {
		l.logger.ErrorContext(ctx, "snapshot persist failed",
			slog.Int("changes", len(snapshot)),
			slog.String("error", err.Error()),
		)
	}
}

// persistTombstonesLocked writes the tombstone set. Same best-effort
// semantics as persistSnapshotLocked. Callers must hold l.mu.
func (l *Ledger) persistTombstonesLocked(ctx context.Context) {
	if l.store == nil {
		return
	}
	ids := make([]string, 0, len(l.tombstones))
	for id := range l.tombstones {
		ids = append(ids, id)
	}
	if err := l.store.SaveTombstones(ctx, ids); err != nil {
		l.logger.ErrorContext(ctx, "tombstone persist failed",
			slog.Int("tombstones", len(ids)),
			slog.String("error", err.Error()),
		)
	}
}

func (l *Ledger) publish(event string, payload any) {
	if l.pub != nil {
		l.pub.Publish(event, payload)
	}
}

// sortedCopy filters and copies changes, newest first. Equal timestamps keep
// their insertion order relative to each other.
func sortedCopy(changes []domain.PriceChange, keep func(domain.PriceChange) bool) []domain.PriceChange {
	out := make([]domain.PriceChange, 0, len(changes))
	for _, c := range changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
