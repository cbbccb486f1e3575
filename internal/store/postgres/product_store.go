package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// ProductStore implements domain.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// NewProductStore creates a ProductStore backed by the given connection pool.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// Upsert inserts or updates a product by id.
func (s *ProductStore) Upsert(ctx context.Context, p domain.Product) error {
	const query = `
		INSERT INTO products (id, title, current_price, min_threshold, cost_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			title         = EXCLUDED.title,
			current_price = EXCLUDED.current_price,
			min_threshold = EXCLUDED.min_threshold,
			cost_price    = EXCLUDED.cost_price,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query, p.ID, p.Title, p.CurrentPrice, p.MinThreshold, p.CostPrice)
	if err != nil {
		return fmt.Errorf("postgres: upsert product %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves a single product.
func (s *ProductStore) GetByID(ctx context.Context, id string) (domain.Product, error) {
	const query = `
		SELECT id, title, current_price, min_threshold, cost_price, created_at, updated_at
		FROM products WHERE id = $1`

	var p domain.Product
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.CurrentPrice, &p.MinThreshold, &p.CostPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("postgres: get product %s: %w", id, err)
	}
	return p, nil
}

// List returns products ordered by title.
func (s *ProductStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Product, error) {
	const query = `
		SELECT id, title, current_price, min_threshold, cost_price, created_at, updated_at
		FROM products ORDER BY title LIMIT $1 OFFSET $2`

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.CurrentPrice, &p.MinThreshold, &p.CostPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list products rows: %w", err)
	}
	return products, nil
}

// Count returns the number of products.
func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count products: %w", err)
	}
	return count, nil
}

// UpdatePrice writes a new current price for a product.
func (s *ProductStore) UpdatePrice(ctx context.Context, id string, price float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET current_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price,
	)
	if err != nil {
		return fmt.Errorf("postgres: update price %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.ProductStore = (*ProductStore)(nil)
