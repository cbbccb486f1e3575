package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// ProductStore persists seller products.
type ProductStore interface {
	Upsert(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, opts ListOpts) ([]Product, error)
	Count(ctx context.Context) (int64, error)
	// UpdatePrice writes a new current price. This is the explicit apply
	// step; the engine itself never mutates products.
	UpdatePrice(ctx context.Context, id string, price float64) error
}

// StrategyStore persists pricing strategies.
type StrategyStore interface {
	Create(ctx context.Context, s PricingStrategy) error
	Update(ctx context.Context, s PricingStrategy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (PricingStrategy, error)
	List(ctx context.Context) ([]PricingStrategy, error)
	Count(ctx context.Context) (int64, error)
}

// RuleStore persists auto-pricing rules.
type RuleStore interface {
	Create(ctx context.Context, r AutoPricingRule) error
	Update(ctx context.Context, r AutoPricingRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (AutoPricingRule, error)
	ListByProduct(ctx context.Context, productID string) ([]AutoPricingRule, error)
	ListActive(ctx context.Context) ([]AutoPricingRule, error)
	// TouchLastRun records that a rule fired, for time_based conditions.
	TouchLastRun(ctx context.Context, id string, at time.Time) error
}

// CompetitorSource provides the competitor observations linked to a product.
// Implementations read state written by an external collector; the engine
// never fetches competitor data itself.
type CompetitorSource interface {
	LinkedCompetitors(ctx context.Context, productID string) ([]CompetitorObservation, error)
}

// CompetitorStore persists competitor links and their latest observations.
type CompetitorStore interface {
	CompetitorSource
	UpsertObservation(ctx context.Context, productID string, obs CompetitorObservation) error
	Unlink(ctx context.Context, productID, competitorID string) error
}

// PriceUpdater pushes an accepted price to the external marketplace. The
// local product store mirrors what the marketplace accepted.
type PriceUpdater interface {
	PushPrice(ctx context.Context, productID string, price float64) error
}

// LedgerStore persists the price-change ledger as a whole snapshot plus a
// separate flat set of tombstoned ids. SaveSnapshot must be atomic (a single
// transaction) so an interrupted write never leaves a torn state.
type LedgerStore interface {
	SaveSnapshot(ctx context.Context, changes []PriceChange) error
	LoadSnapshot(ctx context.Context) ([]PriceChange, error)
	SaveTombstones(ctx context.Context, ids []string) error
	LoadTombstones(ctx context.Context) ([]string, error)
	// ListResolvedBefore returns applied/rejected changes with a timestamp
	// strictly before the cutoff, for archival.
	ListResolvedBefore(ctx context.Context, before time.Time) ([]PriceChange, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log. Fallback signals (unknown
// strategy id, unrecognized formula) and destructive ledger operations are
// recorded here.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
