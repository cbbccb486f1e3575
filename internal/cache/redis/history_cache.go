package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// historyMaxLen caps the rolling window kept per product.
const historyMaxLen = 500

// HistoryCache implements domain.HistoryCache using Redis lists. Each
// product's price history lives at "hist:{productID}" as JSON-encoded
// points, oldest first, trimmed to historyMaxLen entries.
type HistoryCache struct {
	rdb *redis.Client
}

// NewHistoryCache creates a HistoryCache backed by the given Client.
func NewHistoryCache(c *Client) *HistoryCache {
	return &HistoryCache{rdb: c.Underlying()}
}

func histKey(productID string) string {
	return "hist:" + productID
}

// Append adds a price point to the product's rolling history.
func (hc *HistoryCache) Append(ctx context.Context, productID string, point domain.PricePoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("redis: marshal price point %s: %w", productID, err)
	}

	key := histKey(productID)
	pipe := hc.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -historyMaxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append history %s: %w", productID, err)
	}
	return nil
}

// Recent returns the price points observed at or after since, oldest first.
func (hc *HistoryCache) Recent(ctx context.Context, productID string, since time.Time) ([]domain.PricePoint, error) {
	raw, err := hc.rdb.LRange(ctx, histKey(productID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read history %s: %w", productID, err)
	}

	var points []domain.PricePoint
	for _, item := range raw {
		var p domain.PricePoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("redis: unmarshal price point %s: %w", productID, err)
		}
		if p.At.Before(since) {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

var _ domain.HistoryCache = (*HistoryCache)(nil)
