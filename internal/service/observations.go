package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// ObservationService ingests competitor observations from the external
// collector and serves them back through a Redis read-through cache. It also
// maintains the rolling market-price history that feeds price_change rule
// conditions.
type ObservationService struct {
	store   domain.CompetitorStore
	cache   domain.ObservationCache
	history domain.HistoryCache
	logger  *slog.Logger
}

// NewObservationService creates an ObservationService. cache and history may
// be nil; the service then reads straight from the store and skips history
// tracking.
func NewObservationService(
	store domain.CompetitorStore,
	cache domain.ObservationCache,
	history domain.HistoryCache,
	logger *slog.Logger,
) *ObservationService {
	return &ObservationService{
		store:   store,
		cache:   cache,
		history: history,
		logger:  logger.With(slog.String("component", "observation_service")),
	}
}

// Record persists one competitor observation, invalidates the product's
// cached observation set, and appends the observed price to the market
// history window. Cache and history failures are logged but do not fail the
// ingest; the store write is the source of truth.
func (s *ObservationService) Record(ctx context.Context, productID string, obs domain.CompetitorObservation) error {
	if err := s.store.UpsertObservation(ctx, productID, obs); err != nil {
		return fmt.Errorf("service: record observation for %s: %w", productID, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, productID); err != nil {
			s.logger.ErrorContext(ctx, "observation cache invalidate failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.history != nil {
		point := domain.PricePoint{Price: obs.Price, At: obs.ObservedAt}
		if err := s.history.Append(ctx, productID, point); err != nil {
			s.logger.ErrorContext(ctx, "history append failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// LinkedCompetitors returns the product's observation set, reading through
// the cache. A cache miss falls back to the store and refills the cache.
func (s *ObservationService) LinkedCompetitors(ctx context.Context, productID string) ([]domain.CompetitorObservation, error) {
	if s.cache != nil {
		obs, err := s.cache.GetObservations(ctx, productID)
		if err == nil {
			return obs, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "observation cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	obs, err := s.store.LinkedCompetitors(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: load competitors for %s: %w", productID, err)
	}

	if s.cache != nil && len(obs) > 0 {
		if err := s.cache.SetObservations(ctx, productID, obs); err != nil {
			s.logger.ErrorContext(ctx, "observation cache fill failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return obs, nil
}

// Unlink removes a competitor link and drops the product's cached set.
func (s *ObservationService) Unlink(ctx context.Context, productID, competitorID string) error {
	if err := s.store.Unlink(ctx, productID, competitorID); err != nil {
		return fmt.Errorf("service: unlink competitor %s from %s: %w", competitorID, productID, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, productID); err != nil {
			s.logger.ErrorContext(ctx, "observation cache invalidate failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

var _ domain.CompetitorSource = (*ObservationService)(nil)
