package domain

import "time"

// StrategyType identifies how a pricing strategy computes its candidate price.
type StrategyType string

const (
	StrategyMatchLowest     StrategyType = "match_lowest"
	StrategyUndercutPercent StrategyType = "undercut_percent"
	StrategyUndercutAmount  StrategyType = "undercut_amount"
	StrategyAveragePrice    StrategyType = "average_price"
	StrategyCustom          StrategyType = "custom"
)

// Default strategy parameters used when a strategy omits them.
const (
	DefaultPercentReduction = 5.0
	DefaultAmountReduction  = 100.0
)

// PricingStrategy is a named, parameterized rule for computing a candidate
// price from competitor observations. The parameter fields are interpreted
// according to Type; unused fields are zero.
type PricingStrategy struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Type             StrategyType `json:"type"`
	PercentReduction float64      `json:"percent_reduction,omitempty"`
	AmountReduction  float64      `json:"amount_reduction,omitempty"`
	CustomFormula    string       `json:"custom_formula,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
