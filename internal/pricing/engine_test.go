package pricing

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

func obs(id string, price float64) domain.CompetitorObservation {
	return domain.CompetitorObservation{
		CompetitorID:   id,
		CompetitorName: "shop-" + id,
		Price:          price,
		ObservedAt:     time.Now().UTC(),
	}
}

func TestDecideMatchLowest(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1000}
	strat := domain.PricingStrategy{ID: "s1", Name: "Match lowest price", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 950), obs("b", 900)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)

	assert.Equal(t, 900.0, change.NewPrice)
	assert.Equal(t, 1000.0, change.OldPrice)
	assert.Equal(t, -100.0, change.ChangeAmount)
	assert.Equal(t, -10.0, change.ChangePercent)
	assert.Equal(t, domain.ChangePending, change.Status)
	assert.Equal(t, "b", change.CompetitorID)
	require.NotNil(t, change.CompetitorPrice)
	assert.Equal(t, 900.0, *change.CompetitorPrice)
	assert.NotEmpty(t, change.ID)
	assert.Equal(t, "s1", change.StrategyID)
}

func TestDecideUndercutPercentDefaultsToFive(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1200}
	strat := domain.PricingStrategy{ID: "s2", Type: domain.StrategyUndercutPercent}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 1000)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 950.0, change.NewPrice)
}

func TestDecideUndercutAmount(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1600}
	strat := domain.PricingStrategy{ID: "s3", Type: domain.StrategyUndercutAmount, AmountReduction: 250}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 1500), obs("b", 1800)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 1250.0, change.NewPrice)
}

func TestDecideAveragePriceIsNotAttributed(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1200}
	strat := domain.PricingStrategy{ID: "s4", Type: domain.StrategyAveragePrice}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 900), obs("b", 1100)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 1000.0, change.NewPrice)
	assert.Empty(t, change.CompetitorID)
	assert.Nil(t, change.CompetitorPrice)
}

func TestDecideEmptyCompetitorsProducesNothing(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1000}
	strat := domain.PricingStrategy{ID: "s1", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, change)
}

func TestDecideNoOpGuard(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 900}
	strat := domain.PricingStrategy{ID: "s1", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 900)}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, change)
}

func TestDecideClampsToFloor(t *testing.T) {
	e := NewEngine(discardLogger())
	// Cost floor: 900 * 1.1 = 990; current floor: 700. Candidate 855 must
	// come back up to 990.
	p := domain.Product{ID: "p1", CurrentPrice: 1000, CostPrice: ptr(900)}
	strat := domain.PricingStrategy{ID: "s2", Type: domain.StrategyUndercutPercent, PercentReduction: 5}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 900)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 990.0, change.NewPrice)
	assert.Contains(t, change.Reason, "clamped to floor")
}

func TestDecideClampedPriceLandsExactlyOnCostFloor(t *testing.T) {
	e := NewEngine(discardLogger())
	// 900 * 1.1 is 990.0000000000001 in binary; the clamped candidate must
	// still come out as a flat 990, not get bumped to 991.
	p := domain.Product{ID: "p1", CurrentPrice: 1000, CostPrice: ptr(900)}
	strat := domain.PricingStrategy{ID: "s1", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 950), obs("b", 980), obs("c", 1020)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 990.0, change.NewPrice)
	assert.Contains(t, change.Reason, "clamped to floor")
}

func TestDecideMinThresholdWins(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1000, MinThreshold: ptr(995)}
	strat := domain.PricingStrategy{ID: "s1", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 800)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 995.0, change.NewPrice)
}

func TestDecideRoundingNeverBreaksFloor(t *testing.T) {
	e := NewEngine(discardLogger())
	// Floor is 990.4 (min threshold); a plain round of the clamped
	// candidate would land on 990, below the floor.
	p := domain.Product{ID: "p1", CurrentPrice: 1200, MinThreshold: ptr(990.4)}
	strat := domain.PricingStrategy{ID: "s1", Type: domain.StrategyMatchLowest}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 500)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 991.0, change.NewPrice)
	assert.GreaterOrEqual(t, change.NewPrice, Floor(p))
}

func TestDecideCustomFormula(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1200}
	strat := domain.PricingStrategy{
		ID:            "s5",
		Type:          domain.StrategyCustom,
		CustomFormula: "min(competitors) - 50",
	}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 1000)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, 950.0, change.NewPrice)
}

func TestDecideUnparseableFormulaFallsBackToDefault(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1200}
	strat := domain.PricingStrategy{
		ID:            "s5",
		Type:          domain.StrategyCustom,
		CustomFormula: "magic * sauce",
	}

	change, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 1000)}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, change)
	// Default formula: 5% under the lowest competitor.
	assert.Equal(t, 950.0, change.NewPrice)
	assert.Contains(t, change.Reason, "not recognized")
}

func TestDecideUnknownStrategyType(t *testing.T) {
	e := NewEngine(discardLogger())
	p := domain.Product{ID: "p1", CurrentPrice: 1000}
	strat := domain.PricingStrategy{ID: "s9", Type: "mystery"}

	_, err := e.Decide(p, strat, []domain.CompetitorObservation{obs("a", 900)}, time.Now())
	require.ErrorIs(t, err, domain.ErrUnknownStrategy)
}

func TestFloor(t *testing.T) {
	tests := []struct {
		name string
		p    domain.Product
		want float64
	}{
		{"current only", domain.Product{CurrentPrice: 1000}, 700},
		{"cost floor wins", domain.Product{CurrentPrice: 1000, CostPrice: ptr(900)}, 990},
		{"threshold wins", domain.Product{CurrentPrice: 1000, CostPrice: ptr(900), MinThreshold: ptr(995)}, 995},
		{"low threshold ignored", domain.Product{CurrentPrice: 1000, MinThreshold: ptr(100)}, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Floor(tt.p), 1e-9)
		})
	}
}
