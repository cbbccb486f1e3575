package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

type fakeLedgerStore struct {
	snapshot   []domain.PriceChange
	tombstones []string
	saveErr    error
}

func (f *fakeLedgerStore) SaveSnapshot(_ context.Context, changes []domain.PriceChange) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = changes
	return nil
}

func (f *fakeLedgerStore) LoadSnapshot(_ context.Context) ([]domain.PriceChange, error) {
	return f.snapshot, nil
}

func (f *fakeLedgerStore) SaveTombstones(_ context.Context, ids []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.tombstones = ids
	return nil
}

func (f *fakeLedgerStore) LoadTombstones(_ context.Context) ([]string, error) {
	return f.tombstones, nil
}

func (f *fakeLedgerStore) ListResolvedBefore(_ context.Context, before time.Time) ([]domain.PriceChange, error) {
	var out []domain.PriceChange
	for _, c := range f.snapshot {
		if (c.Status == domain.ChangeApplied || c.Status == domain.ChangeRejected) && c.Timestamp.Before(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ domain.LedgerStore = (*fakeLedgerStore)(nil)

type capturedEvent struct {
	event   string
	payload any
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) Publish(event string, payload any) {
	f.events = append(f.events, capturedEvent{event, payload})
}

func (f *fakePublisher) names() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.event
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func change(id, productID string, at time.Time) domain.PriceChange {
	return domain.PriceChange{
		ID:        id,
		ProductID: productID,
		OldPrice:  1000,
		NewPrice:  950,
		Timestamp: at,
		Status:    domain.ChangePending,
	}
}

func TestAddAndGet(t *testing.T) {
	l := New(&fakeLedgerStore{}, nil, discardLogger())
	ctx := context.Background()

	c := change("c1", "p1", time.Now())
	require.True(t, l.Add(ctx, c))

	got, ok := l.Get("c1")
	require.True(t, ok)
	assert.Equal(t, c, got)
	assert.Equal(t, 1, l.Len())

	// Re-adding the same id replaces the entry in place.
	c.NewPrice = 900
	require.True(t, l.Add(ctx, c))
	got, _ = l.Get("c1")
	assert.Equal(t, 900.0, got.NewPrice)
	assert.Equal(t, 1, l.Len())
}

func TestAllNewestFirst(t *testing.T) {
	l := New(nil, nil, discardLogger())
	ctx := context.Background()
	base := time.Now()

	l.Add(ctx, change("old", "p1", base.Add(-2*time.Hour)))
	l.Add(ctx, change("new", "p1", base))
	l.Add(ctx, change("mid", "p2", base.Add(-time.Hour)))

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "old", all[2].ID)

	forP1 := l.ForProduct("p1")
	require.Len(t, forP1, 2)
	assert.Equal(t, "new", forP1[0].ID)
	assert.Equal(t, "old", forP1[1].ID)
}

func TestStatusTransitionsAreUnconditional(t *testing.T) {
	l := New(nil, nil, discardLogger())
	ctx := context.Background()

	l.Add(ctx, change("c1", "p1", time.Now()))

	got, ok := l.Reject(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeRejected, got.Status)

	// A rejected change can still be applied.
	got, ok = l.Apply(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeApplied, got.Status)

	got, ok = l.MarkFailed(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeFailed, got.Status)

	_, ok = l.Apply(ctx, "missing")
	assert.False(t, ok)
}

func TestDeleteTombstonesPermanently(t *testing.T) {
	l := New(&fakeLedgerStore{}, nil, discardLogger())
	ctx := context.Background()

	c := change("c1", "p1", time.Now())
	l.Add(ctx, c)

	require.True(t, l.Delete(ctx, "c1"))
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.IsTombstoned("c1"))

	// Second delete of the same id is a no-op.
	assert.False(t, l.Delete(ctx, "c1"))

	// A tombstoned id never re-enters the ledger.
	assert.False(t, l.Add(ctx, c))
	assert.Equal(t, 0, l.Len())
}

func TestClearAllTombstonesEverything(t *testing.T) {
	l := New(&fakeLedgerStore{}, nil, discardLogger())
	ctx := context.Background()

	l.Add(ctx, change("c1", "p1", time.Now()))
	l.Add(ctx, change("c2", "p2", time.Now()))

	removed := l.ClearAll(ctx)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.IsTombstoned("c1"))
	assert.True(t, l.IsTombstoned("c2"))

	assert.False(t, l.Add(ctx, change("c1", "p1", time.Now())))
}

func TestRestoreDeletedLiftsBlockWithoutResurrecting(t *testing.T) {
	store := &fakeLedgerStore{}
	l := New(store, nil, discardLogger())
	ctx := context.Background()

	l.Add(ctx, change("c1", "p1", time.Now()))
	l.Delete(ctx, "c1")

	n := l.RestoreDeleted(ctx)
	assert.Equal(t, 1, n)
	assert.False(t, l.IsTombstoned("c1"))

	// The deleted entry is gone; only the recreation block is lifted.
	assert.Equal(t, 0, l.Len())
	_, ok := l.Get("c1")
	assert.False(t, ok)

	// The same id may now be added again.
	assert.True(t, l.Add(ctx, change("c1", "p1", time.Now())))
}

func TestLoadRoundTrip(t *testing.T) {
	store := &fakeLedgerStore{}
	ctx := context.Background()

	first := New(store, nil, discardLogger())
	first.Add(ctx, change("c1", "p1", time.Now()))
	first.Add(ctx, change("c2", "p2", time.Now()))
	first.Delete(ctx, "c2")

	second := New(store, nil, discardLogger())
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, 1, second.Len())
	_, ok := second.Get("c1")
	assert.True(t, ok)
	assert.True(t, second.IsTombstoned("c2"))
}

func TestPersistenceFailureKeepsMemoryAuthoritative(t *testing.T) {
	store := &fakeLedgerStore{saveErr: context.DeadlineExceeded}
	l := New(store, nil, discardLogger())
	ctx := context.Background()

	require.True(t, l.Add(ctx, change("c1", "p1", time.Now())))

	got, ok := l.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "c1", got.ID)
}

func TestEventsArePublished(t *testing.T) {
	pub := &fakePublisher{}
	l := New(nil, pub, discardLogger())
	ctx := context.Background()

	l.Add(ctx, change("c1", "p1", time.Now()))
	l.Apply(ctx, "c1")
	l.Delete(ctx, "c1")
	l.ClearAll(ctx)
	l.RestoreDeleted(ctx)

	assert.Equal(t, []string{
		"price_change.created",
		"price_change.applied",
		"price_change.deleted",
		"ledger.cleared",
		"ledger.restored",
	}, pub.names())
}
