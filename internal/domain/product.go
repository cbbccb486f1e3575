package domain

import "time"

// Product is a seller's listing as known to the pricing engine. The engine
// treats products as read-only; price updates happen only through the
// explicit apply step owned by the caller.
type Product struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CurrentPrice float64   `json:"current_price"`
	MinThreshold *float64  `json:"min_threshold,omitempty"`
	CostPrice    *float64  `json:"cost_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
