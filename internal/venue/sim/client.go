// Package sim implements a paper-trading venue: market data passes through
// to a real data source while order placement is simulated locally, so the
// whole pipeline can run without capital at risk.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// failureRate is the fraction of simulated orders that are rejected, to
// exercise the compensation path.
const failureRate = 0.05

// maxSlippage is the worst simulated fill slippage as a price fraction.
const maxSlippage = 0.002

// Client is a simulated venue. Reads are delegated to the data source;
// orders fill locally with a small random slippage and occasional failures.
type Client struct {
	data    domain.VenueClient
	balance float64
	logger  *slog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	seq    int
	orders map[string]domain.OrderResult
}

// NewClient creates a simulated venue over the given data source with the
// given starting balance.
func NewClient(data domain.VenueClient, balance float64, logger *slog.Logger) *Client {
	return &Client{
		data:    data,
		balance: balance,
		logger:  logger.With(slog.String("component", "sim_venue")),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		orders:  make(map[string]domain.OrderResult),
	}
}

var _ domain.VenueClient = (*Client)(nil)

// Seed makes the simulation deterministic for tests.
func (c *Client) Seed(seed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = rand.New(rand.NewSource(seed))
}

// GetMarkets delegates to the real data source.
func (c *Client) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	return c.data.GetMarkets(ctx)
}

// GetOrderbook delegates to the real data source.
func (c *Client) GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	return c.data.GetOrderbook(ctx, tokenID)
}

// CreateOrder fills the order locally. Most orders fill fully at the limit
// price plus a small random slippage; a few percent are rejected outright.
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if req.Price <= 0 || req.Size <= 0 {
		return domain.OrderResult{}, fmt.Errorf("sim: %w: size=%g price=%g", domain.ErrInvalidOrder, req.Size, req.Price)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	shares := req.Size / req.Price

	if c.rng.Float64() < failureRate {
		return domain.OrderResult{
			Success:       false,
			Side:          req.Side,
			RequestedSize: shares,
			Status:        domain.ExecFailed,
			Error:         "simulated failure",
		}, nil
	}

	fillPrice := req.Price * (1 + c.rng.Float64()*maxSlippage)
	result := domain.OrderResult{
		Success:       true,
		OrderID:       fmt.Sprintf("sim-%s-%d", req.Side, c.seq),
		Side:          req.Side,
		RequestedSize: shares,
		FilledSize:    shares,
		FillPrice:     fillPrice,
		Status:        domain.ExecSuccess,
	}
	c.orders[result.OrderID] = result
	c.balance -= shares * fillPrice

	c.logger.DebugContext(ctx, "simulated fill",
		slog.String("order_id", result.OrderID),
		slog.String("token_id", req.TokenID),
		slog.Float64("shares", shares),
		slog.Float64("fill_price", fillPrice),
	)
	return result, nil
}

// CancelOrder marks a simulated order cancelled.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[orderID]
	if !ok {
		return fmt.Errorf("sim: cancel %s: %w", orderID, domain.ErrNotFound)
	}
	order.Status = domain.ExecCancelled
	c.orders[orderID] = order
	return nil
}

// GetBalance returns the simulated collateral balance.
func (c *Client) GetBalance(ctx context.Context) (domain.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Balance{Total: c.balance, Available: c.balance}, nil
}
