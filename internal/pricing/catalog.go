package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// Catalog manages the named pricing strategies backed by a StrategyStore.
type Catalog struct {
	store  domain.StrategyStore
	logger *slog.Logger
}

// NewCatalog creates a Catalog over the given store.
func NewCatalog(store domain.StrategyStore, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:  store,
		logger: logger.With(slog.String("component", "strategy_catalog")),
	}
}

// SeedDefaults inserts the four default strategies into an empty store.
// A non-empty store is left untouched, so defaults a user has deleted are
// not resurrected on the next start.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	count, err := c.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("catalog: count strategies: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	defaults := []domain.PricingStrategy{
		{Name: "Match lowest price", Type: domain.StrategyMatchLowest},
		{Name: "Undercut by 5%", Type: domain.StrategyUndercutPercent, PercentReduction: 5},
		{Name: "Undercut by 100", Type: domain.StrategyUndercutAmount, AmountReduction: 100},
		{Name: "Average market price", Type: domain.StrategyAveragePrice},
	}
	for _, s := range defaults {
		s.ID = uuid.NewString()
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := c.store.Create(ctx, s); err != nil {
			return fmt.Errorf("catalog: seed %q: %w", s.Name, err)
		}
	}

	c.logger.InfoContext(ctx, "seeded default strategies",
		slog.Int("count", len(defaults)),
	)
	return nil
}

// Get retrieves a strategy by id.
func (c *Catalog) Get(ctx context.Context, id string) (domain.PricingStrategy, error) {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return domain.PricingStrategy{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	return s, nil
}

// List returns all strategies.
func (c *Catalog) List(ctx context.Context) ([]domain.PricingStrategy, error) {
	strategies, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return strategies, nil
}

// Create validates and stores a new strategy, generating an id when missing.
func (c *Catalog) Create(ctx context.Context, s domain.PricingStrategy) (domain.PricingStrategy, error) {
	if err := validateStrategy(s); err != nil {
		return domain.PricingStrategy{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	if err := c.store.Create(ctx, s); err != nil {
		return domain.PricingStrategy{}, fmt.Errorf("catalog: create %q: %w", s.Name, err)
	}
	return s, nil
}

// Update replaces an existing strategy.
func (c *Catalog) Update(ctx context.Context, s domain.PricingStrategy) (domain.PricingStrategy, error) {
	if err := validateStrategy(s); err != nil {
		return domain.PricingStrategy{}, err
	}
	s.UpdatedAt = time.Now().UTC()

	if err := c.store.Update(ctx, s); err != nil {
		return domain.PricingStrategy{}, fmt.Errorf("catalog: update %s: %w", s.ID, err)
	}
	return s, nil
}

// Delete removes a strategy. Deleting a default strategy is permanent.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog: delete %s: %w", id, err)
	}
	return nil
}

// validateStrategy rejects strategies the engine could not evaluate.
func validateStrategy(s domain.PricingStrategy) error {
	if s.Name == "" {
		return fmt.Errorf("catalog: strategy name is required")
	}
	switch s.Type {
	case domain.StrategyMatchLowest, domain.StrategyAveragePrice:
		return nil
	case domain.StrategyUndercutPercent:
		if s.PercentReduction < 0 || s.PercentReduction >= 100 {
			return fmt.Errorf("catalog: percent_reduction must be in [0, 100), got %v", s.PercentReduction)
		}
		return nil
	case domain.StrategyUndercutAmount:
		if s.AmountReduction < 0 {
			return fmt.Errorf("catalog: amount_reduction must be >= 0, got %v", s.AmountReduction)
		}
		return nil
	case domain.StrategyCustom:
		// An unparseable formula is accepted here; the engine substitutes
		// the default undercut at evaluation time and logs the fallback.
		return nil
	default:
		return fmt.Errorf("catalog: type %q: %w", s.Type, domain.ErrUnknownStrategy)
	}
}
