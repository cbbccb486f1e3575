package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// RuleStore implements domain.RuleStore using PostgreSQL. Condition and
// action are stored as JSONB so rule shapes can evolve without migrations.
type RuleStore struct {
	pool *pgxpool.Pool
}

// NewRuleStore creates a RuleStore backed by the given connection pool.
func NewRuleStore(pool *pgxpool.Pool) *RuleStore {
	return &RuleStore{pool: pool}
}

// Create inserts a new rule.
func (s *RuleStore) Create(ctx context.Context, r domain.AutoPricingRule) error {
	cond, action, err := marshalRuleParts(r)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO auto_pricing_rules (id, product_id, is_active, condition, action, last_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.ProductID, r.IsActive, cond, action, r.LastRunAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create rule %s: %w", r.ID, err)
	}
	return nil
}

// Update replaces an existing rule.
func (s *RuleStore) Update(ctx context.Context, r domain.AutoPricingRule) error {
	cond, action, err := marshalRuleParts(r)
	if err != nil {
		return err
	}

	const query = `
		UPDATE auto_pricing_rules SET
			product_id = $2, is_active = $3, condition = $4, action = $5, updated_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, r.ID, r.ProductID, r.IsActive, cond, action, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update rule %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a rule by id.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auto_pricing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete rule %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single rule.
func (s *RuleStore) GetByID(ctx context.Context, id string) (domain.AutoPricingRule, error) {
	const query = `
		SELECT id, product_id, is_active, condition, action, last_run_at, created_at, updated_at
		FROM auto_pricing_rules WHERE id = $1`

	r, err := scanRule(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AutoPricingRule{}, domain.ErrNotFound
		}
		return domain.AutoPricingRule{}, fmt.Errorf("postgres: get rule %s: %w", id, err)
	}
	return r, nil
}

// ListByProduct returns every rule attached to a product.
func (s *RuleStore) ListByProduct(ctx context.Context, productID string) ([]domain.AutoPricingRule, error) {
	const query = `
		SELECT id, product_id, is_active, condition, action, last_run_at, created_at, updated_at
		FROM auto_pricing_rules WHERE product_id = $1 ORDER BY created_at`

	return s.queryRules(ctx, query, productID)
}

// ListActive returns every active rule across all products.
func (s *RuleStore) ListActive(ctx context.Context) ([]domain.AutoPricingRule, error) {
	const query = `
		SELECT id, product_id, is_active, condition, action, last_run_at, created_at, updated_at
		FROM auto_pricing_rules WHERE is_active ORDER BY product_id, created_at`

	return s.queryRules(ctx, query)
}

// TouchLastRun records the time a rule last fired.
func (s *RuleStore) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE auto_pricing_rules SET last_run_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("postgres: touch rule %s: %w", id, err)
	}
	return nil
}

func (s *RuleStore) queryRules(ctx context.Context, query string, args ...any) ([]domain.AutoPricingRule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AutoPricingRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list rules rows: %w", err)
	}
	return rules, nil
}

func marshalRuleParts(r domain.AutoPricingRule) ([]byte, []byte, error) {
	cond, err := json.Marshal(r.Condition)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: marshal rule %s condition: %w", r.ID, err)
	}
	action, err := json.Marshal(r.Action)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: marshal rule %s action: %w", r.ID, err)
	}
	return cond, action, nil
}

func scanRule(row pgx.Row) (domain.AutoPricingRule, error) {
	var (
		r            domain.AutoPricingRule
		cond, action []byte
	)
	if err := row.Scan(&r.ID, &r.ProductID, &r.IsActive, &cond, &action, &r.LastRunAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.AutoPricingRule{}, err
	}
	if err := json.Unmarshal(cond, &r.Condition); err != nil {
		return domain.AutoPricingRule{}, fmt.Errorf("unmarshal condition: %w", err)
	}
	if err := json.Unmarshal(action, &r.Action); err != nil {
		return domain.AutoPricingRule{}, fmt.Errorf("unmarshal action: %w", err)
	}
	return r, nil
}

var _ domain.RuleStore = (*RuleStore)(nil)
