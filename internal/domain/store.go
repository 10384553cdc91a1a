package domain

import (
	"context"
	"time"
)

// ListOpts carries common pagination and time-range options for store
// queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeRecordStore persists execution outcomes.
type TradeRecordStore interface {
	Insert(ctx context.Context, rec TradeRecord) error
	ListRecent(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityStore persists discovered opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, rec OpportunityRecord) error
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, opts ListOpts) ([]OpportunityRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]OpportunityRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
