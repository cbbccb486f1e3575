package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

type fakeStrategyStore struct {
	strategies map[string]domain.PricingStrategy
}

func newFakeStrategyStore() *fakeStrategyStore {
	return &fakeStrategyStore{strategies: make(map[string]domain.PricingStrategy)}
}

func (f *fakeStrategyStore) Create(_ context.Context, s domain.PricingStrategy) error {
	if _, ok := f.strategies[s.ID]; ok {
		return domain.ErrAlreadyExists
	}
	f.strategies[s.ID] = s
	return nil
}

func (f *fakeStrategyStore) Update(_ context.Context, s domain.PricingStrategy) error {
	if _, ok := f.strategies[s.ID]; !ok {
		return domain.ErrNotFound
	}
	f.strategies[s.ID] = s
	return nil
}

func (f *fakeStrategyStore) Delete(_ context.Context, id string) error {
	if _, ok := f.strategies[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.strategies, id)
	return nil
}

func (f *fakeStrategyStore) GetByID(_ context.Context, id string) (domain.PricingStrategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return domain.PricingStrategy{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeStrategyStore) List(_ context.Context) ([]domain.PricingStrategy, error) {
	out := make([]domain.PricingStrategy, 0, len(f.strategies))
	for _, s := range f.strategies {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStrategyStore) Count(_ context.Context) (int64, error) {
	return int64(len(f.strategies)), nil
}

var _ domain.StrategyStore = (*fakeStrategyStore)(nil)

func TestSeedDefaults(t *testing.T) {
	store := newFakeStrategyStore()
	catalog := NewCatalog(store, discardLogger())

	require.NoError(t, catalog.SeedDefaults(context.Background()))

	strategies, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, strategies, 4)

	types := map[domain.StrategyType]domain.PricingStrategy{}
	for _, s := range strategies {
		assert.NotEmpty(t, s.ID)
		types[s.Type] = s
	}
	assert.Contains(t, types, domain.StrategyMatchLowest)
	assert.Contains(t, types, domain.StrategyUndercutPercent)
	assert.Contains(t, types, domain.StrategyUndercutAmount)
	assert.Contains(t, types, domain.StrategyAveragePrice)
	assert.Equal(t, 5.0, types[domain.StrategyUndercutPercent].PercentReduction)
	assert.Equal(t, 100.0, types[domain.StrategyUndercutAmount].AmountReduction)
}

func TestSeedDefaultsLeavesNonEmptyStoreAlone(t *testing.T) {
	store := newFakeStrategyStore()
	catalog := NewCatalog(store, discardLogger())

	_, err := catalog.Create(context.Background(), domain.PricingStrategy{
		Name: "Only one",
		Type: domain.StrategyMatchLowest,
	})
	require.NoError(t, err)

	// A user who deleted the other defaults must not get them back.
	require.NoError(t, catalog.SeedDefaults(context.Background()))

	strategies, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, strategies, 1)
}

func TestCatalogCreateAssignsID(t *testing.T) {
	catalog := NewCatalog(newFakeStrategyStore(), discardLogger())

	created, err := catalog.Create(context.Background(), domain.PricingStrategy{
		Name:             "Aggressive undercut",
		Type:             domain.StrategyUndercutPercent,
		PercentReduction: 12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := catalog.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCatalogValidation(t *testing.T) {
	catalog := NewCatalog(newFakeStrategyStore(), discardLogger())
	ctx := context.Background()

	_, err := catalog.Create(ctx, domain.PricingStrategy{Type: domain.StrategyMatchLowest})
	assert.Error(t, err, "missing name")

	_, err = catalog.Create(ctx, domain.PricingStrategy{
		Name: "bad pct", Type: domain.StrategyUndercutPercent, PercentReduction: 100,
	})
	assert.Error(t, err)

	_, err = catalog.Create(ctx, domain.PricingStrategy{
		Name: "bad amount", Type: domain.StrategyUndercutAmount, AmountReduction: -1,
	})
	assert.Error(t, err)

	_, err = catalog.Create(ctx, domain.PricingStrategy{Name: "bad type", Type: "mystery"})
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestCatalogAcceptsUnparseableCustomFormula(t *testing.T) {
	catalog := NewCatalog(newFakeStrategyStore(), discardLogger())

	// The engine substitutes the default undercut at evaluation time.
	created, err := catalog.Create(context.Background(), domain.PricingStrategy{
		Name:          "Weird formula",
		Type:          domain.StrategyCustom,
		CustomFormula: "avg(competitors) + 10",
	})
	require.NoError(t, err)
	assert.Equal(t, "avg(competitors) + 10", created.CustomFormula)
}

func TestCatalogDeleteIsPermanent(t *testing.T) {
	store := newFakeStrategyStore()
	catalog := NewCatalog(store, discardLogger())
	ctx := context.Background()

	require.NoError(t, catalog.SeedDefaults(ctx))
	strategies, err := catalog.List(ctx)
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(ctx, strategies[0].ID))

	_, err = catalog.Get(ctx, strategies[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Restart path: seeding again must not resurrect the deleted default.
	require.NoError(t, catalog.SeedDefaults(ctx))
	remaining, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}
