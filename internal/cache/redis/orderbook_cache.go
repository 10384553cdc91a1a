package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// defaultSnapshotTTL keeps cached books fresh enough for scan-cycle reuse
// while guaranteeing stale books age out between cycles.
const defaultSnapshotTTL = 5 * time.Second

// OrderbookCache implements domain.OrderbookCache. Each snapshot is stored
// as a single JSON value under a short TTL so the scanner reads whole books
// in one round trip and never acts on data older than the TTL.
//
// Key schema:
//
//	book:{tokenID} - JSON-encoded domain.OrderbookSnapshot
type OrderbookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
// A ttl of zero selects the default snapshot TTL.
func NewOrderbookCache(c *Client, ttl time.Duration) *OrderbookCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &OrderbookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(tokenID string) string { return "book:" + tokenID }

// SetSnapshot replaces the cached snapshot for a token.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, tokenID string, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal orderbook %s: %w", tokenID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(tokenID), data, oc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set orderbook %s: %w", tokenID, err)
	}
	return nil
}

// GetSnapshot retrieves the cached snapshot for a token.
// It returns domain.ErrNotFound when no fresh snapshot exists.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OrderbookSnapshot{}, domain.ErrNotFound
		}
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get orderbook %s: %w", tokenID, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: unmarshal orderbook %s: %w", tokenID, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*OrderbookCache)(nil)
