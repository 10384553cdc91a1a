package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/feed"
	"github.com/alanyoungcy/arbot/internal/notify"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/scanner"
	"github.com/alanyoungcy/arbot/internal/sizing"
)

// executionLockKey serializes executions across processes sharing one wallet.
// The TTL bounds how long a crashed holder can block the others.
const (
	executionLockKey = "execution"
	executionLockTTL = time.Minute
)

// LoopDeps bundles the collaborators of the trading loop. Trades, Opps, Feed,
// and Notifier may be nil; the loop degrades to in-memory operation without
// them.
type LoopDeps struct {
	Scanner  *scanner.MarketScanner
	Sizer    *sizing.PositionSizer
	Gate     *risk.Gate
	Executor *executor.AtomicExecutor
	Venue    domain.VenueClient
	Trades   domain.TradeRecordStore
	Opps     domain.OpportunityStore
	Bus      domain.SignalBus
	Locks    domain.LockManager
	Notifier *notify.Notifier
	Feed     *feed.BookFeed
}

// TradingLoop drives the scan/size/approve/execute cycle on a fixed interval.
// It owns the pause switch exposed over the control API and performs the
// daily and weekly risk counter resets.
type TradingLoop struct {
	cfg      *config.Config
	scanner  *scanner.MarketScanner
	sizer    *sizing.PositionSizer
	gate     *risk.Gate
	exec     *executor.AtomicExecutor
	venue    domain.VenueClient
	trades   domain.TradeRecordStore
	opps     domain.OpportunityStore
	bus      domain.SignalBus
	locks    domain.LockManager
	notifier *notify.Notifier
	feed     *feed.BookFeed
	logger   *slog.Logger

	paused    atomic.Bool
	simulated bool
	execute   bool
}

// NewTradingLoop creates the loop. simulated tags persisted trade records;
// execute false turns the loop into a scan-and-report monitor.
func NewTradingLoop(cfg *config.Config, d LoopDeps, simulated, execute bool, logger *slog.Logger) *TradingLoop {
	return &TradingLoop{
		cfg:       cfg,
		scanner:   d.Scanner,
		sizer:     d.Sizer,
		gate:      d.Gate,
		exec:      d.Executor,
		venue:     d.Venue,
		trades:    d.Trades,
		opps:      d.Opps,
		bus:       d.Bus,
		locks:     d.Locks,
		notifier:  d.Notifier,
		feed:      d.Feed,
		logger:    logger.With(slog.String("component", "loop")),
		simulated: simulated,
		execute:   execute,
	}
}

// Pause stops new cycles from doing work. In-flight executions finish.
func (l *TradingLoop) Pause() { l.paused.Store(true) }

// Resume re-enables cycles after a Pause.
func (l *TradingLoop) Resume() { l.paused.Store(false) }

// Paused reports whether the loop is paused.
func (l *TradingLoop) Paused() bool { return l.paused.Load() }

// Run blocks until the context is cancelled, executing one cycle per scan
// interval. The first cycle runs immediately.
func (l *TradingLoop) Run(ctx context.Context) error {
	interval := l.cfg.Scanner.ScanInterval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}

	scanTicker := time.NewTicker(interval)
	defer scanTicker.Stop()

	// Risk counters reset on UTC day and ISO week boundaries. A coarse
	// ticker is enough; a reset landing a minute late changes nothing.
	resetTicker := time.NewTicker(time.Minute)
	defer resetTicker.Stop()
	now := time.Now().UTC()
	lastDay := now.YearDay()
	_, lastWeek := now.ISOWeek()

	l.logger.InfoContext(ctx, "trading loop started",
		slog.Duration("scan_interval", interval),
		slog.Bool("simulated", l.simulated),
		slog.Bool("execute", l.execute),
	)

	l.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-scanTicker.C:
			l.runCycle(ctx)
		case <-resetTicker.C:
			now := time.Now().UTC()
			if d := now.YearDay(); d != lastDay {
				lastDay = d
				l.gate.ResetDaily()
			}
			if _, w := now.ISOWeek(); w != lastWeek {
				lastWeek = w
				l.gate.ResetWeekly()
			}
		}
	}
}

func (l *TradingLoop) runCycle(ctx context.Context) {
	if l.paused.Load() {
		l.logger.DebugContext(ctx, "cycle skipped: paused")
		return
	}

	opps, err := l.scanner.Scan(ctx)
	if err != nil {
		l.logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
		l.notifyError(ctx, "scan", err)
		return
	}

	// Keep the live book feed pointed at the tokens we currently care about.
	if l.feed != nil {
		l.feed.SetTokens(ctx, watchTokens(opps))
	}

	for _, opp := range opps {
		l.recordOpportunity(ctx, opp)
	}

	if l.execute && len(opps) > 0 {
		if err := l.gate.CanTrade(); err != nil {
			l.logger.DebugContext(ctx, "trading gated", slog.String("reason", err.Error()))
		} else {
			// Opportunities arrive ranked best-first; one execution per
			// cycle keeps exposure growth observable between scans.
			for _, opp := range opps {
				if l.tryExecute(ctx, opp) {
					break
				}
			}
		}
	}

	l.publishStatus(ctx)
}

// recordOpportunity persists, publishes, and notifies one discovery.
func (l *TradingLoop) recordOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) {
	if l.opps != nil {
		rec := domain.OpportunityRecord{
			ID:            opp.ID,
			DiscoveredAt:  opp.DiscoveredAt,
			MarketID:      opp.MarketID,
			MarketName:    opp.MarketName,
			Strategy:      domain.StrategyYesNoArbitrage,
			YesAsk:        opp.YesAsk,
			NoAsk:         opp.NoAsk,
			CombinedPrice: opp.CombinedPrice,
			GrossMargin:   opp.GrossMargin,
			NetMargin:     opp.NetMargin,
			Score:         opp.Score,
		}
		if err := l.opps.Insert(ctx, rec); err != nil {
			l.logger.WarnContext(ctx, "opportunity insert failed",
				slog.String("market_id", opp.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	l.publishEvent(ctx, domain.ChannelOpportunities, "opportunity", opp)

	if l.notifier != nil {
		if err := l.notifier.OpportunityFound(ctx, opp); err != nil {
			l.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
}

// tryExecute attempts one opportunity end to end. It returns true when an
// execution was actually attempted, whatever the outcome, so the cycle stops
// after the first attempt.
func (l *TradingLoop) tryExecute(ctx context.Context, opp domain.ArbitrageOpportunity) bool {
	size := l.sizer.Size(opp, l.gate.DeployedCapital())
	if !l.sizer.Tradable(size) {
		l.logger.DebugContext(ctx, "opportunity below tradable size",
			slog.String("market_id", opp.MarketID),
			slog.Float64("size", size),
		)
		return false
	}

	expected := l.sizer.ExpectedProfit(opp, size)
	if expected < l.cfg.Profit.MinDollarProfit {
		l.logger.DebugContext(ctx, "expected profit below floor",
			slog.String("market_id", opp.MarketID),
			slog.Float64("expected_profit", expected),
		)
		return false
	}

	if err := l.gate.Approve(opp, size); err != nil {
		l.logger.InfoContext(ctx, "risk gate rejected trade",
			slog.String("market_id", opp.MarketID),
			slog.String("reason", err.Error()),
		)
		return false
	}

	unlock, err := l.locks.Acquire(ctx, executionLockKey, executionLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			l.logger.InfoContext(ctx, "execution lock held by another process")
		} else {
			l.logger.WarnContext(ctx, "execution lock acquire failed",
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	defer unlock()

	bal, err := l.venue.GetBalance(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "balance check failed", slog.String("error", err.Error()))
		l.notifyError(ctx, "balance check", err)
		return false
	}
	if bal.Available < size {
		l.logger.InfoContext(ctx, "insufficient balance",
			slog.Float64("available", bal.Available),
			slog.Float64("size", size),
		)
		return false
	}

	l.gate.PositionOpened(size)
	res := l.exec.Execute(ctx, opp, size)
	l.gate.PositionClosed(size)

	l.gate.RecordOutcome(domain.TradeOutcome{
		Timestamp: res.Timestamp,
		Profit:    res.LockedProfit,
		Success:   res.Success,
	})

	l.recordTrade(ctx, opp, size, expected, res)

	if snap := l.gate.Snapshot(); snap.CircuitBreakerActive && snap.CircuitBreakerUntil != nil {
		l.logger.WarnContext(ctx, "circuit breaker tripped",
			slog.Int("consecutive_losses", snap.ConsecutiveLosses),
			slog.Time("until", *snap.CircuitBreakerUntil),
		)
		if l.notifier != nil {
			_ = l.notifier.CircuitBreaker(ctx, snap.ConsecutiveLosses, *snap.CircuitBreakerUntil)
		}
	}
	return true
}

func (l *TradingLoop) recordTrade(ctx context.Context, opp domain.ArbitrageOpportunity, size, expected float64, res domain.ExecutionResult) {
	rec := domain.TradeRecord{
		ID:             uuid.NewString(),
		Timestamp:      res.Timestamp,
		MarketID:       opp.MarketID,
		MarketName:     opp.MarketName,
		Strategy:       domain.StrategyYesNoArbitrage,
		ExpectedProfit: expected,
		ActualProfit:   res.LockedProfit,
		Cost:           res.ActualCost,
		Status:         res.Status,
		Reason:         res.Reason,
		Success:        res.Success,
		Simulated:      l.simulated,
	}

	if res.Success {
		l.logger.InfoContext(ctx, "trade executed",
			slog.String("market_id", opp.MarketID),
			slog.Float64("size", size),
			slog.Float64("locked_profit", res.LockedProfit),
			slog.Duration("duration", res.Duration),
		)
	} else {
		l.logger.WarnContext(ctx, "trade failed",
			slog.String("market_id", opp.MarketID),
			slog.String("status", string(res.Status)),
			slog.String("reason", res.Reason),
		)
	}

	if l.trades != nil {
		if err := l.trades.Insert(ctx, rec); err != nil {
			l.logger.ErrorContext(ctx, "trade record insert failed",
				slog.String("trade_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if l.opps != nil && res.Success {
		if err := l.opps.MarkExecuted(ctx, opp.ID); err != nil {
			l.logger.WarnContext(ctx, "mark opportunity executed failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	l.publishEvent(ctx, domain.ChannelTrades, "trade", rec)

	if l.notifier != nil {
		if res.Success {
			_ = l.notifier.TradeExecuted(ctx, rec)
		} else {
			_ = l.notifier.TradeFailed(ctx, rec)
		}
	}
}

// publishStatus broadcasts the current risk posture for dashboards.
func (l *TradingLoop) publishStatus(ctx context.Context) {
	snap := l.gate.Snapshot()
	total, successful := l.exec.Stats()
	l.publishEvent(ctx, domain.ChannelStatus, "bot_status", map[string]any{
		"mode":                  l.cfg.Mode,
		"paused":                l.paused.Load(),
		"can_trade":             snap.CanTrade,
		"daily_pnl":             snap.DailyPnL,
		"weekly_pnl":            snap.WeeklyPnL,
		"open_positions":        snap.OpenPositions,
		"deployed_capital":      l.gate.DeployedCapital(),
		"executions_total":      total,
		"executions_successful": successful,
	})
}

func (l *TradingLoop) publishEvent(ctx context.Context, channel, eventType string, payload any) {
	data, err := json.Marshal(map[string]any{"type": eventType, "payload": payload})
	if err != nil {
		return
	}
	if err := l.bus.Publish(ctx, channel, data); err != nil {
		l.logger.WarnContext(ctx, "bus publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (l *TradingLoop) notifyError(ctx context.Context, op string, err error) {
	if l.notifier == nil {
		return
	}
	if nerr := l.notifier.Error(ctx, op, err); nerr != nil {
		l.logger.WarnContext(ctx, "notify failed", slog.String("error", nerr.Error()))
	}
}

// watchTokens collects the outcome tokens of the current opportunity set.
func watchTokens(opps []domain.ArbitrageOpportunity) []string {
	seen := make(map[string]bool, len(opps)*2)
	tokens := make([]string, 0, len(opps)*2)
	for _, o := range opps {
		for _, tid := range []string{o.YesTokenID, o.NoTokenID} {
			if tid == "" || seen[tid] {
				continue
			}
			seen[tid] = true
			tokens = append(tokens, tid)
		}
	}
	return tokens
}
