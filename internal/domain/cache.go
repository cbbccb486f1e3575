package domain

import (
	"context"
	"time"
)

// ObservationCache caches the latest competitor observations per product so
// repricing triggers do not hit the primary store on every evaluation.
type ObservationCache interface {
	SetObservations(ctx context.Context, productID string, obs []CompetitorObservation) error
	GetObservations(ctx context.Context, productID string) ([]CompetitorObservation, error)
	Invalidate(ctx context.Context, productID string) error
}

// HistoryCache keeps a capped rolling window of price points per product.
// The price_change rule condition reads recent movement from here.
type HistoryCache interface {
	Append(ctx context.Context, productID string, point PricePoint) error
	Recent(ctx context.Context, productID string, since time.Time) ([]PricePoint, error)
}
