package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

type fakeCompetitorStore struct {
	byProduct map[string][]domain.CompetitorObservation
	loads     int
}

func newFakeCompetitorStore() *fakeCompetitorStore {
	return &fakeCompetitorStore{byProduct: make(map[string][]domain.CompetitorObservation)}
}

func (f *fakeCompetitorStore) LinkedCompetitors(_ context.Context, productID string) ([]domain.CompetitorObservation, error) {
	f.loads++
	return f.byProduct[productID], nil
}

func (f *fakeCompetitorStore) UpsertObservation(_ context.Context, productID string, obs domain.CompetitorObservation) error {
	existing := f.byProduct[productID]
	for i, o := range existing {
		if o.CompetitorID == obs.CompetitorID {
			existing[i] = obs
			return nil
		}
	}
	f.byProduct[productID] = append(existing, obs)
	return nil
}

func (f *fakeCompetitorStore) Unlink(_ context.Context, productID, competitorID string) error {
	existing := f.byProduct[productID]
	for i, o := range existing {
		if o.CompetitorID == competitorID {
			f.byProduct[productID] = append(existing[:i], existing[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

var _ domain.CompetitorStore = (*fakeCompetitorStore)(nil)

type fakeObservationCache struct {
	byProduct map[string][]domain.CompetitorObservation
	hits      int
}

func newFakeObservationCache() *fakeObservationCache {
	return &fakeObservationCache{byProduct: make(map[string][]domain.CompetitorObservation)}
}

func (f *fakeObservationCache) SetObservations(_ context.Context, productID string, obs []domain.CompetitorObservation) error {
	f.byProduct[productID] = obs
	return nil
}

func (f *fakeObservationCache) GetObservations(_ context.Context, productID string) ([]domain.CompetitorObservation, error) {
	obs, ok := f.byProduct[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.hits++
	return obs, nil
}

func (f *fakeObservationCache) Invalidate(_ context.Context, productID string) error {
	delete(f.byProduct, productID)
	return nil
}

var _ domain.ObservationCache = (*fakeObservationCache)(nil)

func observation(competitorID string, price float64) domain.CompetitorObservation {
	return domain.CompetitorObservation{
		CompetitorID:   competitorID,
		CompetitorName: "shop-" + competitorID,
		Price:          price,
		ObservedAt:     time.Now().UTC(),
	}
}

func TestRecordWritesStoreAndHistory(t *testing.T) {
	store := newFakeCompetitorStore()
	cache := newFakeObservationCache()
	history := newFakeHistoryCache()
	svc := NewObservationService(store, cache, history, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "p1", observation("c1", 950)))

	assert.Len(t, store.byProduct["p1"], 1)

	points, err := history.Recent(ctx, "p1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 950.0, points[0].Price)
}

func TestRecordInvalidatesCachedSet(t *testing.T) {
	store := newFakeCompetitorStore()
	cache := newFakeObservationCache()
	svc := NewObservationService(store, cache, nil, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "p1", observation("c1", 950)))

	// Warm the cache, then record again and verify the stale set is gone.
	_, err := svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)
	require.Contains(t, cache.byProduct, "p1")

	require.NoError(t, svc.Record(ctx, "p1", observation("c1", 900)))
	assert.NotContains(t, cache.byProduct, "p1")

	obs, err := svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 900.0, obs[0].Price)
}

func TestLinkedCompetitorsReadsThroughCache(t *testing.T) {
	store := newFakeCompetitorStore()
	cache := newFakeObservationCache()
	svc := NewObservationService(store, cache, nil, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "p1", observation("c1", 950)))

	// First read misses the cache and fills it; the second is served from it.
	_, err := svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)
	_, err = svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.loads)
	assert.Equal(t, 1, cache.hits)
}

func TestUnlinkDropsCompetitorAndCache(t *testing.T) {
	store := newFakeCompetitorStore()
	cache := newFakeObservationCache()
	svc := NewObservationService(store, cache, nil, discardLogger())
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, "p1", observation("c1", 950)))
	require.NoError(t, svc.Record(ctx, "p1", observation("c2", 970)))
	_, err := svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, svc.Unlink(ctx, "p1", "c1"))
	assert.NotContains(t, cache.byProduct, "p1")

	obs, err := svc.LinkedCompetitors(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "c2", obs[0].CompetitorID)

	assert.ErrorIs(t, svc.Unlink(ctx, "p1", "ghost"), domain.ErrNotFound)
}
