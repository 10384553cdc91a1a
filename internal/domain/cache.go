package domain

import (
	"context"
	"io"
	"time"
)

// OrderbookCache stores short-TTL orderbook snapshots keyed by token ID.
// The scanner reads through it so one scan cycle never fetches the same
// book twice, and the feed keeps it warm from the live data stream.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, tokenID string, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
}

// MarketCache provides fast market metadata lookups between scans.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting for venue API calls.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. The trading loop holds an
// execution lock so at most one process executes trades at a time.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for loop events consumed by the dashboard,
// the WebSocket hub, and the notifier.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Pub/sub channels the trading loop publishes on.
const (
	ChannelOpportunities = "events:opportunity"
	ChannelTrades        = "events:trade"
	ChannelStatus        = "events:status"
)

// BlobWriter uploads blobs to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
