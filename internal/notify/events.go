package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// Event types the trading loop emits. The notify.events config key selects
// which of these reach the operator.
const (
	EventOpportunityFound = "opportunity_found"
	EventTradeExecuted    = "trade_executed"
	EventTradeFailed      = "trade_failed"
	EventCircuitBreaker   = "circuit_breaker"
	EventError            = "error"
)

// OpportunityFound notifies that the scanner surfaced a tradable opportunity.
func (n *Notifier) OpportunityFound(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	msg := fmt.Sprintf(
		"%s\nYES %.3f + NO %.3f = %.3f\nnet margin %.2f%%, score %.2f",
		opp.MarketName, opp.YesAsk, opp.NoAsk, opp.CombinedPrice,
		opp.NetMargin*100, opp.Score,
	)
	return n.Notify(ctx, EventOpportunityFound, "Arbitrage opportunity", msg)
}

// TradeExecuted notifies that both legs filled and profit is locked.
func (n *Notifier) TradeExecuted(ctx context.Context, rec domain.TradeRecord) error {
	msg := fmt.Sprintf(
		"%s\nlocked profit $%.2f on $%.2f cost",
		rec.MarketName, rec.ActualProfit, rec.Cost,
	)
	return n.Notify(ctx, EventTradeExecuted, "Trade executed", msg)
}

// TradeFailed notifies that an execution attempt did not complete.
func (n *Notifier) TradeFailed(ctx context.Context, rec domain.TradeRecord) error {
	msg := fmt.Sprintf("%s\n%s", rec.MarketName, rec.Reason)
	return n.Notify(ctx, EventTradeFailed, "Trade failed", msg)
}

// CircuitBreaker notifies that the loss breaker tripped and trading is
// paused until the given time.
func (n *Notifier) CircuitBreaker(ctx context.Context, losses int, until time.Time) error {
	msg := fmt.Sprintf(
		"%d consecutive losses, trading paused until %s",
		losses, until.Format(time.RFC3339),
	)
	return n.Notify(ctx, EventCircuitBreaker, "Circuit breaker tripped", msg)
}

// Error notifies about a loop-level error worth an operator's attention.
func (n *Notifier) Error(ctx context.Context, op string, err error) error {
	msg := fmt.Sprintf("%s: %v", op, err)
	return n.Notify(ctx, EventError, "Bot error", msg)
}
