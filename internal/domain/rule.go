package domain

import "time"

// ConditionType identifies what a rule condition compares.
type ConditionType string

const (
	ConditionBelowCompetitor ConditionType = "below_competitor"
	ConditionAboveCompetitor ConditionType = "above_competitor"
	ConditionPriceChange     ConditionType = "price_change"
	ConditionTimeBased       ConditionType = "time_based"
)

// ValueUnit says whether a condition or action value is a percentage of the
// reference price or an absolute currency amount.
type ValueUnit string

const (
	UnitPercent  ValueUnit = "percent"
	UnitAbsolute ValueUnit = "absolute"
)

// ActionType identifies what a rule does when its condition fires.
type ActionType string

const (
	ActionAdjustPrice ActionType = "adjust_price"
	ActionSetPrice    ActionType = "set_price"
	ActionNotify      ActionType = "notify"
)

// RuleCondition is the trigger half of an auto-pricing rule.
type RuleCondition struct {
	Type              ConditionType `json:"type"`
	Value             float64       `json:"value"`
	Unit              ValueUnit     `json:"unit"`
	TimeIntervalHours int           `json:"time_interval_hours,omitempty"`
}

// RuleAction is the effect half of an auto-pricing rule. MinPrice and
// MaxPrice, when set, clamp the computed target price.
type RuleAction struct {
	Type     ActionType `json:"type"`
	Value    float64    `json:"value"`
	Unit     ValueUnit  `json:"unit"`
	MinPrice *float64   `json:"min_price,omitempty"`
	MaxPrice *float64   `json:"max_price,omitempty"`
}

// AutoPricingRule is an independent per-product condition/action rule for
// unattended repricing and alerting. A product may carry any number of rules.
type AutoPricingRule struct {
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	IsActive  bool          `json:"is_active"`
	Condition RuleCondition `json:"condition"`
	Action    RuleAction    `json:"action"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RuleOutcome reports the result of evaluating one rule against one product.
// Bulk application collects one outcome per product; a failure is recorded
// in Err rather than aborting the remaining products.
type RuleOutcome struct {
	ProductID    string       `json:"product_id"`
	RuleID       string       `json:"rule_id"`
	ConditionMet bool         `json:"condition_met"`
	Change       *PriceChange `json:"change,omitempty"`
	NotifyText   string       `json:"notify_text,omitempty"`
	Err          string       `json:"error,omitempty"`
}
