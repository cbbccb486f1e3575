// Package service orchestrates the decision engine, the strategy catalog,
// the ledger, and the rule evaluator into the operations the HTTP layer
// exposes. Services own all I/O ordering; the packages underneath stay pure
// or single-concern.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
	"github.com/yDiLity/WB-price-sub000/internal/ledger"
	"github.com/yDiLity/WB-price-sub000/internal/pricing"
)

// RepricingService runs the decide-commit-apply flow for manual repricing.
type RepricingService struct {
	products    domain.ProductStore
	catalog     *pricing.Catalog
	engine      *pricing.Engine
	ledger      *ledger.Ledger
	competitors domain.CompetitorSource
	marketplace domain.PriceUpdater
	audit       domain.AuditStore
	logger      *slog.Logger
}

// NewRepricingService creates a RepricingService. marketplace may be nil
// when no seller API is configured; applied prices then only reach the
// local product store.
func NewRepricingService(
	products domain.ProductStore,
	catalog *pricing.Catalog,
	engine *pricing.Engine,
	led *ledger.Ledger,
	competitors domain.CompetitorSource,
	marketplace domain.PriceUpdater,
	audit domain.AuditStore,
	logger *slog.Logger,
) *RepricingService {
	return &RepricingService{
		products:    products,
		catalog:     catalog,
		engine:      engine,
		ledger:      led,
		competitors: competitors,
		marketplace: marketplace,
		audit:       audit,
		logger:      logger.With(slog.String("component", "repricing_service")),
	}
}

// ApplyStrategyToProduct computes a price proposal for the product under the
// named strategy and commits it to the ledger. It returns (nil, nil) when
// the engine produces no proposal (no competitor data, or a zero-effect
// candidate).
//
// An unknown strategy id does not fail the request: the engine falls back to
// an implicit 5% undercut, the fallback is logged at warn level, and an
// audit event records the substitution.
func (s *RepricingService) ApplyStrategyToProduct(ctx context.Context, productID, strategyID string) (*domain.PriceChange, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: load product %s: %w", productID, err)
	}

	strat, err := s.catalog.Get(ctx, strategyID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("service: load strategy %s: %w", strategyID, err)
		}
		strat = fallbackStrategy(strategyID)
		s.logger.WarnContext(ctx, "strategy not found, falling back to default undercut",
			slog.String("strategy_id", strategyID),
			slog.String("product_id", productID),
		)
		if auditErr := s.audit.Log(ctx, "repricing.fallback_strategy", map[string]any{
			"strategy_id": strategyID,
			"product_id":  productID,
		}); auditErr != nil {
			s.logger.ErrorContext(ctx, "audit log failed",
				slog.String("error", auditErr.Error()),
			)
		}
	}

	competitors, err := s.competitors.LinkedCompetitors(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: load competitors for %s: %w", productID, err)
	}

	change, err := s.engine.Decide(product, strat, competitors, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("service: decide: %w", err)
	}
	if change == nil {
		return nil, nil
	}

	s.ledger.Add(ctx, *change)
	return change, nil
}

// ApplyChange marks a pending change as applied, pushes the new price to
// the marketplace when a seller API client is configured, and mirrors it
// into the product store. If either write fails the change is marked failed
// and the error is returned; the ledger entry is never lost. The local
// store is not touched when the marketplace rejects the price.
func (s *RepricingService) ApplyChange(ctx context.Context, changeID string) (domain.PriceChange, error) {
	change, ok := s.ledger.Apply(ctx, changeID)
	if !ok {
		return domain.PriceChange{}, fmt.Errorf("service: apply change %s: %w", changeID, domain.ErrNotFound)
	}

	if s.marketplace != nil {
		if err := s.marketplace.PushPrice(ctx, change.ProductID, change.NewPrice); err != nil {
			failed, _ := s.ledger.MarkFailed(ctx, changeID)
			return failed, fmt.Errorf("service: push price for %s: %w", change.ProductID, err)
		}
	}

	if err := s.products.UpdatePrice(ctx, change.ProductID, change.NewPrice); err != nil {
		failed, _ := s.ledger.MarkFailed(ctx, changeID)
		return failed, fmt.Errorf("service: write price for %s: %w", change.ProductID, err)
	}

	s.logger.InfoContext(ctx, "price change applied",
		slog.String("change_id", changeID),
		slog.String("product_id", change.ProductID),
		slog.Float64("old_price", change.OldPrice),
		slog.Float64("new_price", change.NewPrice),
	)
	return change, nil
}

// RejectChange marks a change as rejected without touching the product.
func (s *RepricingService) RejectChange(ctx context.Context, changeID string) (domain.PriceChange, error) {
	change, ok := s.ledger.Reject(ctx, changeID)
	if !ok {
		return domain.PriceChange{}, fmt.Errorf("service: reject change %s: %w", changeID, domain.ErrNotFound)
	}
	return change, nil
}

// DeleteChange removes a change from the ledger and tombstones its id.
func (s *RepricingService) DeleteChange(ctx context.Context, changeID string) bool {
	return s.ledger.Delete(ctx, changeID)
}

// History returns the change history for one product, newest first.
func (s *RepricingService) History(productID string) []domain.PriceChange {
	return s.ledger.ForProduct(productID)
}

// AllChanges returns every ledger entry, newest first.
func (s *RepricingService) AllChanges() []domain.PriceChange {
	return s.ledger.All()
}

// GetChange returns one ledger entry by id.
func (s *RepricingService) GetChange(changeID string) (domain.PriceChange, bool) {
	return s.ledger.Get(changeID)
}

// ClearAll tombstones and removes every ledger entry. The operation is
// recorded in the audit log.
func (s *RepricingService) ClearAll(ctx context.Context) (int, error) {
	n := s.ledger.ClearAll(ctx)
	if err := s.audit.Log(ctx, "ledger.clear_all", map[string]any{"removed": n}); err != nil {
		return n, fmt.Errorf("service: audit clear_all: %w", err)
	}
	return n, nil
}

// RestoreDeleted lifts every tombstone and reloads the ledger from its
// store. Entries removed by ClearAll do not come back; only the block on
// re-creating their ids is gone.
func (s *RepricingService) RestoreDeleted(ctx context.Context) (int, error) {
	n := s.ledger.RestoreDeleted(ctx)
	if err := s.ledger.Load(ctx); err != nil {
		return n, fmt.Errorf("service: reload ledger: %w", err)
	}
	if err := s.audit.Log(ctx, "ledger.restore_deleted", map[string]any{"untombstoned": n}); err != nil {
		return n, fmt.Errorf("service: audit restore_deleted: %w", err)
	}
	return n, nil
}

// fallbackStrategy is the implicit strategy substituted for an unknown id.
// The requested id is kept so ledger entries stay traceable to the original
// request.
func fallbackStrategy(requestedID string) domain.PricingStrategy {
	return domain.PricingStrategy{
		ID:               requestedID,
		Name:             "Fallback undercut",
		Type:             domain.StrategyUndercutPercent,
		PercentReduction: domain.DefaultPercentReduction,
	}
}
