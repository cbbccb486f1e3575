package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yDiLity/WB-price-sub000/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL. The ledger is
// persisted as a whole snapshot: SaveSnapshot deletes and re-inserts every
// row inside one transaction, so an interrupted write can never leave a torn
// state. Insertion order is preserved in the position column.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// SaveSnapshot atomically replaces the persisted ledger with the given
// ordered set of changes.
func (s *LedgerStore) SaveSnapshot(ctx context.Context, changes []domain.PriceChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: ledger snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM price_changes`); err != nil {
		return fmt.Errorf("postgres: ledger snapshot clear: %w", err)
	}

	const insert = `
		INSERT INTO price_changes (
			id, product_id, old_price, new_price, change_amount, change_percent,
			reason, strategy_id, strategy_name, competitor_id, competitor_name,
			competitor_price, ts, status, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for i, c := range changes {
		if _, err := tx.Exec(ctx, insert,
			c.ID, c.ProductID, c.OldPrice, c.NewPrice, c.ChangeAmount, c.ChangePercent,
			c.Reason, c.StrategyID, c.StrategyName, c.CompetitorID, c.CompetitorName,
			c.CompetitorPrice, c.Timestamp, c.Status, i,
		); err != nil {
			return fmt.Errorf("postgres: ledger snapshot insert %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: ledger snapshot commit: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted ledger in its original insertion order.
func (s *LedgerStore) LoadSnapshot(ctx context.Context) ([]domain.PriceChange, error) {
	const query = `
		SELECT id, product_id, old_price, new_price, change_amount, change_percent,
		       reason, strategy_id, strategy_name, competitor_id, competitor_name,
		       competitor_price, ts, status
		FROM price_changes ORDER BY position`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: ledger load: %w", err)
	}
	defer rows.Close()

	var changes []domain.PriceChange
	for rows.Next() {
		var c domain.PriceChange
		if err := rows.Scan(
			&c.ID, &c.ProductID, &c.OldPrice, &c.NewPrice, &c.ChangeAmount, &c.ChangePercent,
			&c.Reason, &c.StrategyID, &c.StrategyName, &c.CompetitorID, &c.CompetitorName,
			&c.CompetitorPrice, &c.Timestamp, &c.Status,
		); err != nil {
			return nil, fmt.Errorf("postgres: ledger scan: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: ledger load rows: %w", err)
	}
	return changes, nil
}

// SaveTombstones atomically replaces the persisted tombstone set.
func (s *LedgerStore) SaveTombstones(ctx context.Context, ids []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: tombstones begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM price_change_tombstones`); err != nil {
		return fmt.Errorf("postgres: tombstones clear: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO price_change_tombstones (id) VALUES ($1)`, id,
		); err != nil {
			return fmt.Errorf("postgres: tombstones insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: tombstones commit: %w", err)
	}
	return nil
}

// LoadTombstones returns every tombstoned id.
func (s *LedgerStore) LoadTombstones(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM price_change_tombstones`)
	if err != nil {
		return nil, fmt.Errorf("postgres: tombstones load: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: tombstones scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: tombstones load rows: %w", err)
	}
	return ids, nil
}

// ListResolvedBefore returns applied and rejected changes older than the
// cutoff, for archival.
func (s *LedgerStore) ListResolvedBefore(ctx context.Context, before time.Time) ([]domain.PriceChange, error) {
	const query = `
		SELECT id, product_id, old_price, new_price, change_amount, change_percent,
		       reason, strategy_id, strategy_name, competitor_id, competitor_name,
		       competitor_price, ts, status
		FROM price_changes
		WHERE status IN ('applied', 'rejected') AND ts < $1
		ORDER BY ts`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: ledger resolved before: %w", err)
	}
	defer rows.Close()

	var changes []domain.PriceChange
	for rows.Next() {
		var c domain.PriceChange
		if err := rows.Scan(
			&c.ID, &c.ProductID, &c.OldPrice, &c.NewPrice, &c.ChangeAmount, &c.ChangePercent,
			&c.Reason, &c.StrategyID, &c.StrategyName, &c.CompetitorID, &c.CompetitorName,
			&c.CompetitorPrice, &c.Timestamp, &c.Status,
		); err != nil {
			return nil, fmt.Errorf("postgres: ledger resolved scan: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: ledger resolved rows: %w", err)
	}
	return changes, nil
}

var _ domain.LedgerStore = (*LedgerStore)(nil)
