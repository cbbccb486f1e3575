package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// ObservationCache implements domain.ObservationCache using Redis strings.
// The full observation set for a product is stored as one JSON blob at key
// "obs:{productID}" so reads stay a single round trip.
type ObservationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewObservationCache creates an ObservationCache backed by the given
// Client. A zero ttl means entries never expire.
func NewObservationCache(c *Client, ttl time.Duration) *ObservationCache {
	return &ObservationCache{rdb: c.Underlying(), ttl: ttl}
}

func obsKey(productID string) string {
	return "obs:" + productID
}

// SetObservations caches the latest competitor observations for a product.
func (oc *ObservationCache) SetObservations(ctx context.Context, productID string, obs []domain.CompetitorObservation) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("redis: marshal observations %s: %w", productID, err)
	}
	if err := oc.rdb.Set(ctx, obsKey(productID), data, oc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set observations %s: %w", productID, err)
	}
	return nil
}

// GetObservations returns the cached observations for a product. It returns
// domain.ErrNotFound when nothing is cached.
func (oc *ObservationCache) GetObservations(ctx context.Context, productID string) ([]domain.CompetitorObservation, error) {
	data, err := oc.rdb.Get(ctx, obsKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get observations %s: %w", productID, err)
	}

	var obs []domain.CompetitorObservation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("redis: unmarshal observations %s: %w", productID, err)
	}
	return obs, nil
}

// Invalidate drops the cached observations for a product.
func (oc *ObservationCache) Invalidate(ctx context.Context, productID string) error {
	if err := oc.rdb.Del(ctx, obsKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate observations %s: %w", productID, err)
	}
	return nil
}

var _ domain.ObservationCache = (*ObservationCache)(nil)
