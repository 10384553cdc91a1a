// Package feed keeps the orderbook cache warm from the venue's live data
// stream so scan cycles read fresh books without extra REST round trips.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/venue/polymarket"
)

// BookFeed connects to the venue WebSocket, subscribes to book snapshots for
// the tracked tokens, and writes each snapshot into the orderbook cache. It
// reconnects with backoff on disconnect. Tracked tokens follow the scanner's
// eligible market set via SetTokens.
type BookFeed struct {
	wsURL  string
	books  domain.OrderbookCache
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]bool
	client *polymarket.WSClient

	closeOnce sync.Once
	done      chan struct{}
}

// NewBookFeed creates a BookFeed writing into the given cache.
func NewBookFeed(wsURL string, books domain.OrderbookCache, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		wsURL:  wsURL,
		books:  books,
		logger: logger.With(slog.String("component", "book_feed")),
		tokens: make(map[string]bool),
		done:   make(chan struct{}),
	}
}

// SetTokens replaces the tracked token set. New tokens are subscribed and
// dropped tokens unsubscribed on the live connection; when disconnected the
// set is applied on the next connect.
func (f *BookFeed) SetTokens(ctx context.Context, tokenIDs []string) {
	next := make(map[string]bool, len(tokenIDs))
	for _, id := range tokenIDs {
		next[id] = true
	}

	f.mu.Lock()
	var added, removed []string
	for id := range next {
		if !f.tokens[id] {
			added = append(added, id)
		}
	}
	for id := range f.tokens {
		if !next[id] {
			removed = append(removed, id)
		}
	}
	f.tokens = next
	client := f.client
	f.mu.Unlock()

	if client == nil {
		return
	}
	if len(added) > 0 {
		if err := client.SubscribeBooks(ctx, added); err != nil {
			f.logger.WarnContext(ctx, "book feed subscribe failed",
				slog.Int("tokens", len(added)),
				slog.String("error", err.Error()),
			)
		}
	}
	if len(removed) > 0 {
		if err := client.UnsubscribeBooks(ctx, removed); err != nil {
			f.logger.WarnContext(ctx, "book feed unsubscribe failed",
				slog.Int("tokens", len(removed)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Run connects and pumps book snapshots into the cache until ctx is
// cancelled or Close is called.
func (f *BookFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := f.runConnection(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn("book feed disconnected, reconnecting",
				slog.String("error", err.Error()),
			)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *BookFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnBookUpdate(func(snap domain.OrderbookSnapshot) {
		writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := f.books.SetSnapshot(writeCtx, snap.AssetID, snap); err != nil {
			f.logger.Debug("book feed cache write failed",
				slog.String("token_id", snap.AssetID),
				slog.String("error", err.Error()),
			)
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.client = client
	tokens := make([]string, 0, len(f.tokens))
	for id := range f.tokens {
		tokens = append(tokens, id)
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.client = nil
		f.mu.Unlock()
	}()

	if len(tokens) > 0 {
		if err := client.SubscribeBooks(ctx, tokens); err != nil {
			return err
		}
		f.logger.Info("book feed subscribed", slog.Int("tokens", len(tokens)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Close stops the feed.
func (f *BookFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
