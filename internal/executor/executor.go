// Package executor places both legs of a YES/NO arbitrage concurrently and
// evaluates the combined result. There is no true atomicity on the venue:
// when one leg fails or under-fills, the other leg's order is cancelled on a
// best-effort basis.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// dedupTTL bounds how often the same market may be re-attempted.
const dedupTTL = 2 * time.Minute

// AtomicExecutor submits the YES and NO legs of an opportunity as a pair
// and settles them into a single ExecutionResult.
type AtomicExecutor struct {
	venue  domain.VenueClient
	cfg    config.ExecutionConfig
	profit config.ProfitConfig
	dedup  *Dedup
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	total      int
	successful int
}

// NewAtomicExecutor creates an AtomicExecutor trading through venue.
func NewAtomicExecutor(venue domain.VenueClient, cfg config.ExecutionConfig, profit config.ProfitConfig, logger *slog.Logger) *AtomicExecutor {
	return &AtomicExecutor{
		venue:  venue,
		cfg:    cfg,
		profit: profit,
		dedup:  NewDedup(dedupTTL),
		logger: logger.With(slog.String("component", "executor")),
		now:    time.Now,
	}
}

// Execute runs one dual-leg arbitrage for the given opportunity and dollar
// position size. It never places any order when the preflight re-check shows
// the edge is gone. On success LockedProfit is the net dollar profit
// guaranteed at resolution; on any failure LockedProfit is zero and Reason
// explains what happened.
func (e *AtomicExecutor) Execute(ctx context.Context, opp domain.ArbitrageOpportunity, size float64) domain.ExecutionResult {
	start := e.now()
	e.mu.Lock()
	e.total++
	e.mu.Unlock()

	log := e.logger.With(
		slog.String("opportunity_id", opp.ID),
		slog.String("market_id", opp.MarketID),
		slog.Float64("size", size),
	)

	if e.dedup.IsDuplicate(opp.MarketID) {
		return e.failed(nil, nil, "market attempted recently", start)
	}

	yesPrice, noPrice, reason := e.preflight(ctx, opp)
	if reason != "" {
		log.WarnContext(ctx, "preflight rejected execution", slog.String("reason", reason))
		return e.failed(nil, nil, reason, start)
	}

	// Both legs run concurrently, each under its own timeout. A leg that
	// times out is reported as failed; the other leg still settles.
	var wg sync.WaitGroup
	var yesResult, noResult domain.OrderResult
	wg.Add(2)
	go func() {
		defer wg.Done()
		yesResult = e.placeLeg(ctx, domain.LegYes, opp.YesTokenID, size, yesPrice)
	}()
	go func() {
		defer wg.Done()
		noResult = e.placeLeg(ctx, domain.LegNo, opp.NoTokenID, size, noPrice)
	}()
	wg.Wait()

	result := e.settle(ctx, yesResult, noResult, start)
	if result.Success {
		e.mu.Lock()
		e.successful++
		e.mu.Unlock()
		log.InfoContext(ctx, "arbitrage executed",
			slog.Float64("locked_profit", result.LockedProfit),
			slog.Float64("cost", result.ActualCost),
			slog.Duration("duration", result.Duration),
		)
	} else {
		log.WarnContext(ctx, "execution failed",
			slog.String("status", string(result.Status)),
			slog.String("reason", result.Reason),
		)
	}
	return result
}

// preflight re-fetches both books directly from the venue immediately before
// placing orders and returns the refreshed best asks. A non-empty reason
// aborts the execution with no orders placed.
func (e *AtomicExecutor) preflight(ctx context.Context, opp domain.ArbitrageOpportunity) (yesPrice, noPrice float64, reason string) {
	yesBook, err := e.venue.GetOrderbook(ctx, opp.YesTokenID)
	if err != nil {
		return 0, 0, fmt.Sprintf("could not fetch yes book: %v", err)
	}
	noBook, err := e.venue.GetOrderbook(ctx, opp.NoTokenID)
	if err != nil {
		return 0, 0, fmt.Sprintf("could not fetch no book: %v", err)
	}

	yesPrice = yesBook.BestAsk()
	noPrice = noBook.BestAsk()
	if yesPrice <= 0 || noPrice <= 0 {
		return 0, 0, "no asks available"
	}
	if yesPrice+noPrice >= 1.0 {
		return 0, 0, "no longer profitable"
	}
	return yesPrice, noPrice, ""
}

// placeLeg submits one limit buy at the refreshed ask for a dollar notional,
// bounded by the per-order timeout. Timeouts and venue errors are folded
// into a failed OrderResult rather than returned.
func (e *AtomicExecutor) placeLeg(ctx context.Context, side domain.LegSide, tokenID string, size, price float64) domain.OrderResult {
	legCtx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout.Duration)
	defer cancel()

	result, err := e.venue.CreateOrder(legCtx, domain.OrderRequest{
		TokenID: tokenID,
		Side:    side,
		Size:    size,
		Price:   price,
	})
	if err != nil {
		reason := err.Error()
		if legCtx.Err() != nil {
			reason = "timeout"
		}
		return failedOrder(side, size/price, reason)
	}
	result.Side = side
	if result.RequestedSize == 0 && price > 0 {
		result.RequestedSize = size / price
	}
	return result
}

// settle evaluates the two leg results into one ExecutionResult. Both legs
// must succeed and fill at least the minimum ratio; the locked profit must
// be non-negative. On a failed pairing any live order is cancelled
// best-effort under a fresh timeout so shutdown contexts do not strand
// orders.
func (e *AtomicExecutor) settle(ctx context.Context, yes, no domain.OrderResult, start time.Time) domain.ExecutionResult {
	bothSuccess := yes.Success && no.Success
	bothAcceptable := yes.FillRatio() >= e.cfg.MinFillRatio && no.FillRatio() >= e.cfg.MinFillRatio

	if bothSuccess && bothAcceptable {
		// Each filled share pair pays out $1 at resolution regardless of
		// outcome; only the matched quantity is guaranteed.
		totalCost := yes.FilledSize*yes.FillPrice + no.FilledSize*no.FillPrice

		payout := yes.FilledSize
		if no.FilledSize < payout {
			payout = no.FilledSize
		}
		grossProfit := payout - totalCost
		fees := e.profit.PlatformFee*payout + e.profit.GasEstimate*2
		netProfit := grossProfit - fees

		if netProfit < 0 {
			// Both legs filled but fees ate the edge. The position still
			// pays out at resolution, so nothing is cancelled; the trade is
			// simply not a success.
			return domain.ExecutionResult{
				Success:   false,
				YesOrder:  &yes,
				NoOrder:   &no,
				Status:    domain.ExecFailed,
				Reason:    fmt.Sprintf("negative locked profit %.4f after fees", netProfit),
				Timestamp: e.now(),
				Duration:  e.now().Sub(start),
			}
		}

		return domain.ExecutionResult{
			Success:      true,
			YesOrder:     &yes,
			NoOrder:      &no,
			LockedProfit: netProfit,
			ActualCost:   totalCost,
			Status:       domain.ExecSuccess,
			Reason:       "both orders filled",
			Timestamp:    e.now(),
			Duration:     e.now().Sub(start),
		}
	}

	if yes.Success && yes.OrderID != "" {
		e.cancelLeg(ctx, &yes)
	}
	if no.Success && no.OrderID != "" {
		e.cancelLeg(ctx, &no)
	}

	reason := fmt.Sprintf("YES: %s, NO: %s", legSummary(yes), legSummary(no))
	return e.failed(&yes, &no, reason, start)
}

// cancelLeg attempts to cancel a live order. Failures are logged, not
// returned; a stranded leg becomes an ordinary directional position.
func (e *AtomicExecutor) cancelLeg(ctx context.Context, order *domain.OrderResult) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CancelTimeout.Duration)
	defer cancel()

	if err := e.venue.CancelOrder(cancelCtx, order.OrderID); err != nil {
		e.logger.ErrorContext(ctx, "order cancel failed",
			slog.String("order_id", order.OrderID),
			slog.String("side", string(order.Side)),
			slog.String("error", err.Error()),
		)
		return
	}
	order.Status = domain.ExecCancelled
	e.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.OrderID),
		slog.String("side", string(order.Side)),
	)
}

// Stats returns the lifetime execution counters.
func (e *AtomicExecutor) Stats() (total, successful int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total, e.successful
}

func (e *AtomicExecutor) failed(yes, no *domain.OrderResult, reason string, start time.Time) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:   false,
		YesOrder:  yes,
		NoOrder:   no,
		Status:    domain.ExecFailed,
		Reason:    reason,
		Timestamp: e.now(),
		Duration:  e.now().Sub(start),
	}
}

func failedOrder(side domain.LegSide, size float64, reason string) domain.OrderResult {
	return domain.OrderResult{
		Success:       false,
		Side:          side,
		RequestedSize: size,
		Status:        domain.ExecFailed,
		Error:         reason,
	}
}

func legSummary(r domain.OrderResult) string {
	if r.Error != "" {
		return r.Error
	}
	if r.Success && r.FillRatio() < 1 {
		return fmt.Sprintf("partial fill %.0f%%", r.FillRatio()*100)
	}
	if r.Success {
		return "OK"
	}
	return string(r.Status)
}
