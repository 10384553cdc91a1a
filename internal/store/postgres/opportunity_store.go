package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunitySelectCols = `id, discovered_at, market_id, market_name, strategy,
	yes_ask, no_ask, combined_price, gross_margin, net_margin, score, executed`

func scanOpportunityRows(rows pgx.Rows) ([]domain.OpportunityRecord, error) {
	var recs []domain.OpportunityRecord
	for rows.Next() {
		var r domain.OpportunityRecord
		if err := rows.Scan(
			&r.ID, &r.DiscoveredAt, &r.MarketID, &r.MarketName, &r.Strategy,
			&r.YesAsk, &r.NoAsk, &r.CombinedPrice, &r.GrossMargin,
			&r.NetMargin, &r.Score, &r.Executed,
		); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Insert persists one discovered opportunity. Duplicate IDs are ignored.
func (s *OpportunityStore) Insert(ctx context.Context, rec domain.OpportunityRecord) error {
	const query = `
		INSERT INTO opportunity_records (
			id, discovered_at, market_id, market_name, strategy,
			yes_ask, no_ask, combined_price, gross_margin, net_margin,
			score, executed
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.DiscoveredAt, rec.MarketID, rec.MarketName, rec.Strategy,
		rec.YesAsk, rec.NoAsk, rec.CombinedPrice, rec.GrossMargin, rec.NetMargin,
		rec.Score, rec.Executed,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", rec.ID, err)
	}
	return nil
}

// MarkExecuted flags an opportunity as having been traded.
// It returns domain.ErrNotFound when no record with the ID exists.
func (s *OpportunityStore) MarkExecuted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunity_records SET executed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns opportunities newest first with pagination and optional
// time filtering.
func (s *OpportunityStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.OpportunityRecord, error) {
	query := `SELECT ` + opportunitySelectCols + ` FROM opportunity_records WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND discovered_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND discovered_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY discovered_at DESC"

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
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	recs, err := scanOpportunityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan opportunities: %w", err)
	}
	return recs, nil
}

// ListBefore returns all opportunities discovered strictly before the given
// time (for archiving).
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OpportunityRecord, error) {
	query := `SELECT ` + opportunitySelectCols + ` FROM opportunity_records WHERE discovered_at < $1 ORDER BY discovered_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	defer rows.Close()
	return scanOpportunityRows(rows)
}

// DeleteBefore deletes all opportunities discovered before the given time.
// Returns the number deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunity_records WHERE discovered_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
