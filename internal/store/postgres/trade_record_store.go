package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// TradeRecordStore implements domain.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *pgxpool.Pool
}

// NewTradeRecordStore creates a TradeRecordStore backed by the given pool.
func NewTradeRecordStore(pool *pgxpool.Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

const tradeRecordSelectCols = `id, timestamp, market_id, market_name, strategy,
	expected_profit, actual_profit, cost, status, reason, success, simulated`

func scanTradeRecordRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		var status string
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.MarketID, &r.MarketName, &r.Strategy,
			&r.ExpectedProfit, &r.ActualProfit, &r.Cost,
			&status, &r.Reason, &r.Success, &r.Simulated,
		); err != nil {
			return nil, err
		}
		r.Status = domain.ExecStatus(status)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Insert persists one trade record. Re-inserting the same ID is a no-op so
// retried writes after a transient failure stay idempotent.
func (s *TradeRecordStore) Insert(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO trade_records (
			id, timestamp, market_id, market_name, strategy,
			expected_profit, actual_profit, cost, status, reason,
			success, simulated
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Timestamp, rec.MarketID, rec.MarketName, rec.Strategy,
		rec.ExpectedProfit, rec.ActualProfit, rec.Cost, string(rec.Status), rec.Reason,
		rec.Success, rec.Simulated,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade record %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns trade records newest first with pagination and optional
// time filtering.
func (s *TradeRecordStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordSelectCols + ` FROM trade_records WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade records: %w", err)
	}
	defer rows.Close()

	recs, err := scanTradeRecordRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trade records: %w", err)
	}
	return recs, nil
}

// ListBefore returns all trade records with timestamp strictly before the
// given time (for archiving).
func (s *TradeRecordStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordSelectCols + ` FROM trade_records WHERE timestamp < $1 ORDER BY timestamp ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade records before: %w", err)
	}
	defer rows.Close()
	return scanTradeRecordRows(rows)
}

// DeleteBefore deletes all trade records with timestamp before the given
// time. Returns the number deleted.
func (s *TradeRecordStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trade_records WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trade records before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeRecordStore = (*TradeRecordStore)(nil)
