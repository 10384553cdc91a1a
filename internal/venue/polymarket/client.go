// Package polymarket implements the live venue client: market discovery via
// the Gamma API, orderbooks and trading via the CLOB API, and real-time book
// data via WebSocket.
package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// Client composes the Gamma and CLOB clients into the venue interface the
// core trades through. An optional rate limiter throttles REST calls.
type Client struct {
	gamma   *GammaClient
	clob    *ClobClient
	limiter domain.RateLimiter
	logger  *slog.Logger
}

// NewClient creates a live venue client. limiter may be nil to disable
// throttling.
func NewClient(gamma *GammaClient, clob *ClobClient, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	return &Client{
		gamma:   gamma,
		clob:    clob,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "venue")),
	}
}

var _ domain.VenueClient = (*Client)(nil)

// GetMarkets lists every active orderbook-enabled market.
func (c *Client) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.gamma.ListActiveMarkets(ctx)
}

// GetOrderbook fetches the live orderbook for one outcome token.
func (c *Client) GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if err := c.wait(ctx); err != nil {
		return domain.OrderbookSnapshot{}, err
	}
	return c.clob.GetOrderbook(ctx, tokenID)
}

// CreateOrder signs and submits a limit buy.
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := c.wait(ctx); err != nil {
		return domain.OrderResult{}, err
	}
	return c.clob.PlaceLimitBuy(ctx, req)
}

// CancelOrder cancels a resting order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.clob.CancelOrder(ctx, orderID)
}

// GetBalance returns the available collateral balance.
func (c *Client) GetBalance(ctx context.Context) (domain.Balance, error) {
	if err := c.wait(ctx); err != nil {
		return domain.Balance{}, err
	}
	return c.clob.GetBalance(ctx)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, "venue:rest"); err != nil {
		return fmt.Errorf("polymarket: rate limiter: %w", err)
	}
	return nil
}
