package domain

import "time"

// ChangeStatus is the lifecycle state of a proposed price change.
type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeApplied  ChangeStatus = "applied"
	ChangeRejected ChangeStatus = "rejected"
	ChangeFailed   ChangeStatus = "failed"
)

// PriceChange is a proposed price change produced by the decision engine or
// the rule evaluator. Invariants at creation time: ChangeAmount equals
// NewPrice minus OldPrice, and NewPrice is never below the computed floor.
type PriceChange struct {
	ID            string       `json:"id"`
	ProductID     string       `json:"product_id"`
	OldPrice      float64      `json:"old_price"`
	NewPrice      float64      `json:"new_price"`
	ChangeAmount  float64      `json:"change_amount"`
	ChangePercent float64      `json:"change_percent"`
	Reason        string       `json:"reason"`

	StrategyID   string `json:"strategy_id,omitempty"`
	StrategyName string `json:"strategy_name,omitempty"`

	CompetitorID    string   `json:"competitor_id,omitempty"`
	CompetitorName  string   `json:"competitor_name,omitempty"`
	CompetitorPrice *float64 `json:"competitor_price,omitempty"`

	Timestamp time.Time    `json:"timestamp"`
	Status    ChangeStatus `json:"status"`
}
