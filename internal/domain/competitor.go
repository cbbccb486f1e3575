package domain

import "time"

// CompetitorObservation is one competitor's advertised price for an
// equivalent product at a point in time. Observations arrive from an
// external collector; the engine never fetches them itself.
type CompetitorObservation struct {
	CompetitorID   string    `json:"competitor_id"`
	CompetitorName string    `json:"competitor_name"`
	Price          float64   `json:"price"`
	URL            string    `json:"url,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// PricePoint is a single entry in a product's rolling price history, used by
// the price_change rule condition to measure recent movement.
type PricePoint struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}
