package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// CompetitorStore implements domain.CompetitorStore using PostgreSQL. Rows
// hold the latest observation per (product, competitor) link; an external
// collector writes them, the engine only reads.
type CompetitorStore struct {
	pool *pgxpool.Pool
}

// NewCompetitorStore creates a CompetitorStore backed by the given pool.
func NewCompetitorStore(pool *pgxpool.Pool) *CompetitorStore {
	return &CompetitorStore{pool: pool}
}

// LinkedCompetitors returns the latest observation for every competitor
// linked to the product.
func (s *CompetitorStore) LinkedCompetitors(ctx context.Context, productID string) ([]domain.CompetitorObservation, error) {
	const query = `
		SELECT competitor_id, competitor_name, price, url, observed_at
		FROM competitor_observations
		WHERE product_id = $1
		ORDER BY competitor_name`

	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("postgres: linked competitors %s: %w", productID, err)
	}
	defer rows.Close()

	var obs []domain.CompetitorObservation
	for rows.Next() {
		var o domain.CompetitorObservation
		if err := rows.Scan(&o.CompetitorID, &o.CompetitorName, &o.Price, &o.URL, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: linked competitors rows: %w", err)
	}
	return obs, nil
}

// UpsertObservation records a competitor's latest price for a product.
func (s *CompetitorStore) UpsertObservation(ctx context.Context, productID string, obs domain.CompetitorObservation) error {
	const query = `
		INSERT INTO competitor_observations (product_id, competitor_id, competitor_name, price, url, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, competitor_id) DO UPDATE SET
			competitor_name = EXCLUDED.competitor_name,
			price           = EXCLUDED.price,
			url             = EXCLUDED.url,
			observed_at     = EXCLUDED.observed_at`

	_, err := s.pool.Exec(ctx, query,
		productID, obs.CompetitorID, obs.CompetitorName, obs.Price, obs.URL, obs.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert observation %s/%s: %w", productID, obs.CompetitorID, err)
	}
	return nil
}

// Unlink removes a competitor link from a product.
func (s *CompetitorStore) Unlink(ctx context.Context, productID, competitorID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM competitor_observations WHERE product_id = $1 AND competitor_id = $2`,
		productID, competitorID,
	)
	if err != nil {
		return fmt.Errorf("postgres: unlink %s/%s: %w", productID, competitorID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.CompetitorStore = (*CompetitorStore)(nil)
