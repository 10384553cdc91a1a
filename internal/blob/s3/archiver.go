package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// multipartThreshold is the payload size above which archives are uploaded
// via the multipart manager instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// TradeArchiveStore is the narrow store surface the archiver needs for
// trade records. The Postgres store satisfies it implicitly.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityArchiveStore is the narrow store surface the archiver needs
// for opportunity records.
type OpportunityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.OpportunityRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves aged trade and opportunity records out of the primary
// store into object storage as JSONL files, partitioned by year-month.
// Records are deleted from the primary store only after the upload has
// succeeded.
type Archiver struct {
	writer *Writer
	trades TradeArchiveStore
	opps   OpportunityArchiveStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer *Writer, trades TradeArchiveStore, opps OpportunityArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		trades: trades,
		opps:   opps,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// Run archives both record kinds up to the cutoff and prunes the archived
// rows from the primary store. It returns the total number of records moved.
func (a *Archiver) Run(ctx context.Context, before time.Time) (int64, error) {
	tradeCount, err := a.ArchiveTrades(ctx, before)
	if err != nil {
		return 0, err
	}
	oppCount, err := a.ArchiveOpportunities(ctx, before)
	if err != nil {
		return tradeCount, err
	}
	return tradeCount + oppCount, nil
}

// ArchiveTrades uploads all trade records before the cutoff to
// archive/trades/YYYY-MM.jsonl and deletes them from the primary store.
// It returns the number of records archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	path := archivePath("trades", before)
	if err := uploadJSONL(ctx, a.writer, path, recs); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(recs)), fmt.Errorf("s3blob: prune trades: %w", err)
	}

	a.logger.InfoContext(ctx, "archived trade records",
		slog.String("path", path),
		slog.Int("archived", len(recs)),
		slog.Int64("pruned", deleted),
	)
	return int64(len(recs)), nil
}

// ArchiveOpportunities uploads all opportunity records before the cutoff to
// archive/opportunities/YYYY-MM.jsonl and deletes them from the primary
// store. It returns the number of records archived.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	path := archivePath("opportunities", before)
	if err := uploadJSONL(ctx, a.writer, path, recs); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities: %w", err)
	}

	deleted, err := a.opps.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(recs)), fmt.Errorf("s3blob: prune opportunities: %w", err)
	}

	a.logger.InfoContext(ctx, "archived opportunity records",
		slog.String("path", path),
		slog.Int("archived", len(recs)),
		slog.Int64("pruned", deleted),
	)
	return int64(len(recs)), nil
}

// uploadJSONL serialises the records and uploads them, switching to the
// multipart manager for large payloads.
func uploadJSONL[T any](ctx context.Context, w *Writer, path string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return err
	}
	if len(buf) > multipartThreshold {
		return w.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	}
	return w.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-08.jsonl
//	archive/opportunities/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
