package pricing

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// Floor multipliers: a computed price never drops below 110% of cost or 70%
// of the current price, whichever bound is higher.
const (
	costFloorFactor    = 1.1
	currentFloorFactor = 0.7
)

// floorEpsilon absorbs binary float noise in the floor bounds (cost*1.1 is
// not exact); a rounded price within it counts as on the floor.
const floorEpsilon = 1e-9

// Engine turns a product, a pricing strategy, and a set of competitor
// observations into a proposed price change. Decide performs no I/O; the
// ledger commit is a separate step owned by the service layer.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger: logger.With(slog.String("component", "pricing_engine")),
	}
}

// Floor returns the lowest price a computed candidate may be clamped to:
// the maximum of the product's minimum threshold, cost price times 1.1, and
// current price times 0.7, over whichever bounds are defined.
func Floor(p domain.Product) float64 {
	floor := p.CurrentPrice * currentFloorFactor
	if p.CostPrice != nil {
		if f := *p.CostPrice * costFloorFactor; f > floor {
			floor = f
		}
	}
	if p.MinThreshold != nil && *p.MinThreshold > floor {
		floor = *p.MinThreshold
	}
	return floor
}

// Decide computes a proposed price change for the product under the given
// strategy. It returns (nil, nil) when no proposal is possible: the
// competitor set is empty, or the rounded candidate equals the current price
// (the no-op guard). The returned change is in pending status and has not
// been committed anywhere.
func (e *Engine) Decide(p domain.Product, strat domain.PricingStrategy, competitors []domain.CompetitorObservation, now time.Time) (*domain.PriceChange, error) {
	if len(competitors) == 0 {
		return nil, nil
	}

	cheapest := competitors[0]
	var sum float64
	for _, c := range competitors {
		sum += c.Price
		if c.Price < cheapest.Price {
			cheapest = c
		}
	}
	minPrice := cheapest.Price
	avgPrice := sum / float64(len(competitors))

	var (
		candidate  float64
		reason     string
		attributed = true
	)

	switch strat.Type {
	case domain.StrategyMatchLowest:
		candidate = minPrice
		reason = fmt.Sprintf("matched lowest competitor price %.2f (%s)", minPrice, cheapest.CompetitorName)

	case domain.StrategyUndercutPercent:
		pct := strat.PercentReduction
		if pct == 0 {
			pct = domain.DefaultPercentReduction
		}
		candidate = minPrice * (1 - pct/100)
		reason = fmt.Sprintf("undercut lowest competitor %.2f (%s) by %.1f%%", minPrice, cheapest.CompetitorName, pct)

	case domain.StrategyUndercutAmount:
		amt := strat.AmountReduction
		if amt == 0 {
			amt = domain.DefaultAmountReduction
		}
		candidate = minPrice - amt
		reason = fmt.Sprintf("undercut lowest competitor %.2f (%s) by %.2f", minPrice, cheapest.CompetitorName, amt)

	case domain.StrategyAveragePrice:
		candidate = avgPrice
		reason = fmt.Sprintf("set to average of %d competitor prices (%.2f)", len(competitors), avgPrice)
		attributed = false

	case domain.StrategyCustom:
		formula, err := ParseFormula(strat.CustomFormula)
		if err != nil {
			// Inherited quirk: an unrecognized formula is substituted with
			// the default undercut instead of failing. Surface it loudly.
			e.logger.Warn("custom formula not recognized, using default",
				slog.String("strategy_id", strat.ID),
				slog.String("formula", strat.CustomFormula),
			)
			formula = DefaultFormula
			reason = fmt.Sprintf("custom formula %q not recognized, default %s applied to lowest competitor %.2f (%s)",
				strat.CustomFormula, formula, minPrice, cheapest.CompetitorName)
		} else {
			reason = fmt.Sprintf("custom formula %s applied to lowest competitor %.2f (%s)",
				formula, minPrice, cheapest.CompetitorName)
		}
		candidate = formula.Apply(minPrice)

	default:
		return nil, fmt.Errorf("pricing: strategy %q type %q: %w", strat.ID, strat.Type, domain.ErrUnknownStrategy)
	}

	floor := Floor(p)
	if candidate < floor {
		candidate = floor
		reason += fmt.Sprintf("; clamped to floor %.2f", floor)
	}

	newPrice := math.Round(candidate)
	if floor-newPrice > floorEpsilon {
		// Rounding must not re-break the floor invariant.
		newPrice = math.Ceil(floor - floorEpsilon)
	}

	if newPrice == p.CurrentPrice {
		// No-op guard: zero-effect proposals only generate churn.
		return nil, nil
	}

	change := &domain.PriceChange{
		ID:            uuid.NewString(),
		ProductID:     p.ID,
		OldPrice:      p.CurrentPrice,
		NewPrice:      newPrice,
		ChangeAmount:  newPrice - p.CurrentPrice,
		ChangePercent: roundPercent(newPrice, p.CurrentPrice),
		Reason:        reason,
		StrategyID:    strat.ID,
		StrategyName:  strat.Name,
		Timestamp:     now,
		Status:        domain.ChangePending,
	}
	if attributed {
		change.CompetitorID = cheapest.CompetitorID
		change.CompetitorName = cheapest.CompetitorName
		cp := cheapest.Price
		change.CompetitorPrice = &cp
	}
	return change, nil
}

// roundPercent computes the relative change in percent, rounded to two
// decimal places.
func roundPercent(newPrice, oldPrice float64) float64 {
	if oldPrice == 0 {
		return 0
	}
	return math.Round((newPrice-oldPrice)/oldPrice*100*100) / 100
}
