package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// StrategyStore implements domain.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *pgxpool.Pool
}

// NewStrategyStore creates a StrategyStore backed by the given connection pool.
func NewStrategyStore(pool *pgxpool.Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Create inserts a new strategy.
func (s *StrategyStore) Create(ctx context.Context, strat domain.PricingStrategy) error {
	const query = `
		INSERT INTO strategies (id, name, type, percent_reduction, amount_reduction, custom_formula, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		strat.ID, strat.Name, strat.Type, strat.PercentReduction, strat.AmountReduction,
		strat.CustomFormula, strat.CreatedAt, strat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create strategy %s: %w", strat.ID, err)
	}
	return nil
}

// Update replaces an existing strategy.
func (s *StrategyStore) Update(ctx context.Context, strat domain.PricingStrategy) error {
	const query = `
		UPDATE strategies SET
			name = $2, type = $3, percent_reduction = $4, amount_reduction = $5,
			custom_formula = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		strat.ID, strat.Name, strat.Type, strat.PercentReduction, strat.AmountReduction,
		strat.CustomFormula, strat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update strategy %s: %w", strat.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a strategy by id.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete strategy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single strategy.
func (s *StrategyStore) GetByID(ctx context.Context, id string) (domain.PricingStrategy, error) {
	const query = `
		SELECT id, name, type, percent_reduction, amount_reduction, custom_formula, created_at, updated_at
		FROM strategies WHERE id = $1`

	var strat domain.PricingStrategy
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&strat.ID, &strat.Name, &strat.Type, &strat.PercentReduction, &strat.AmountReduction,
		&strat.CustomFormula, &strat.CreatedAt, &strat.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PricingStrategy{}, domain.ErrNotFound
		}
		return domain.PricingStrategy{}, fmt.Errorf("postgres: get strategy %s: %w", id, err)
	}
	return strat, nil
}

// List returns all strategies ordered by name.
func (s *StrategyStore) List(ctx context.Context) ([]domain.PricingStrategy, error) {
	const query = `
		SELECT id, name, type, percent_reduction, amount_reduction, custom_formula, created_at, updated_at
		FROM strategies ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []domain.PricingStrategy
	for rows.Next() {
		var strat domain.PricingStrategy
		if err := rows.Scan(
			&strat.ID, &strat.Name, &strat.Type, &strat.PercentReduction, &strat.AmountReduction,
			&strat.CustomFormula, &strat.CreatedAt, &strat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy: %w", err)
		}
		strategies = append(strategies, strat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategies rows: %w", err)
	}
	return strategies, nil
}

// Count returns the number of strategies.
func (s *StrategyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM strategies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count strategies: %w", err)
	}
	return count, nil
}

var _ domain.StrategyStore = (*StrategyStore)(nil)
