// Package risk implements the pre-trade risk gate: loss caps, an open
// position limit and a consecutive-loss circuit breaker that pauses trading
// for a cool-down period.
package risk

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// Gate tracks realized PnL and open positions and decides whether new trades
// may proceed. All methods are safe for concurrent use.
type Gate struct {
	mu sync.Mutex

	cfg     config.RiskConfig
	capital config.CapitalConfig
	logger  *slog.Logger
	now     func() time.Time

	dailyPnL          float64
	weeklyPnL         float64
	openPositions     int
	deployedCapital   float64
	consecutiveLosses int
	breakerUntil      *time.Time

	// history is a bounded ring of recent trade outcomes, newest last.
	history []domain.TradeOutcome
}

// NewGate creates a risk gate from the risk and capital configuration.
func NewGate(cfg config.RiskConfig, capital config.CapitalConfig, logger *slog.Logger) *Gate {
	return &Gate{
		cfg:     cfg,
		capital: capital,
		logger:  logger.With(slog.String("component", "risk_gate")),
		now:     time.Now,
	}
}

// CanTrade reports whether new trades are currently allowed. It returns nil
// when trading may proceed, or an error wrapping ErrCircuitBreakerActive or
// ErrRiskLimited describing the first failed check. An expired circuit
// breaker is cleared as a side effect.
func (g *Gate) CanTrade() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canTradeLocked()
}

func (g *Gate) canTradeLocked() error {
	now := g.now()

	if g.breakerUntil != nil {
		if now.Before(*g.breakerUntil) {
			return fmt.Errorf("risk: paused until %s: %w", g.breakerUntil.Format(time.RFC3339), domain.ErrCircuitBreakerActive)
		}
		// Cool-down elapsed; clear the breaker and the loss streak.
		g.breakerUntil = nil
		g.consecutiveLosses = 0
		g.logger.Info("circuit breaker cleared")
	}

	// PnL magnitude in either direction counts against the caps: a run-up as
	// large as the loss limit means exposure is no longer what the limits
	// were calibrated for.
	if math.Abs(g.dailyPnL) >= g.cfg.MaxDailyLoss {
		return fmt.Errorf("risk: daily pnl %.2f at cap %.2f: %w", g.dailyPnL, g.cfg.MaxDailyLoss, domain.ErrRiskLimited)
	}
	if math.Abs(g.weeklyPnL) >= g.cfg.MaxWeeklyLoss {
		return fmt.Errorf("risk: weekly pnl %.2f at cap %.2f: %w", g.weeklyPnL, g.cfg.MaxWeeklyLoss, domain.ErrRiskLimited)
	}
	if g.openPositions >= g.cfg.MaxOpenPositions {
		return fmt.Errorf("risk: open positions at cap %d: %w", g.cfg.MaxOpenPositions, domain.ErrRiskLimited)
	}
	return nil
}

// Approve validates a specific sized opportunity immediately before
// execution. It re-runs the gate checks and then bounds the trade itself:
// the net margin must be positive and the notional must stay within the
// configured fraction of total capital.
func (g *Gate) Approve(opp domain.ArbitrageOpportunity, size float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.canTradeLocked(); err != nil {
		return err
	}

	if opp.NetMargin <= 0 {
		return fmt.Errorf("risk: non-positive net margin %.4f: %w", opp.NetMargin, domain.ErrRiskLimited)
	}
	if size <= 0 {
		return fmt.Errorf("risk: non-positive size %.2f: %w", size, domain.ErrRiskLimited)
	}
	maxNotional := g.cfg.MaxPositionFraction * g.capital.TotalCapital
	if size > maxNotional {
		return fmt.Errorf("risk: size %.2f exceeds max notional %.2f: %w", size, maxNotional, domain.ErrRiskLimited)
	}
	return nil
}

// PositionOpened records capital committed to a new position.
func (g *Gate) PositionOpened(size float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openPositions++
	g.deployedCapital += size
}

// PositionClosed releases the capital of a resolved position.
func (g *Gate) PositionClosed(size float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.openPositions > 0 {
		g.openPositions--
	}
	g.deployedCapital -= size
	if g.deployedCapital < 0 {
		g.deployedCapital = 0
	}
}

// DeployedCapital returns the dollar notional currently committed to open
// positions.
func (g *Gate) DeployedCapital() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deployedCapital
}

// RecordOutcome feeds a completed trade's result into the gate: PnL
// accumulators, the loss streak, the bounded history, and the circuit
// breaker when the streak reaches the configured limit.
func (g *Gate) RecordOutcome(outcome domain.TradeOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyPnL += outcome.Profit
	g.weeklyPnL += outcome.Profit

	if outcome.Success && outcome.Profit >= 0 {
		g.consecutiveLosses = 0
	} else {
		g.consecutiveLosses++
	}

	g.history = append(g.history, outcome)
	if max := g.cfg.HistorySize; max > 0 && len(g.history) > max {
		g.history = g.history[len(g.history)-max:]
	}

	if g.breakerUntil == nil && g.consecutiveLosses >= g.cfg.ConsecutiveLossLimit {
		until := g.now().Add(g.cfg.PauseDuration.Duration)
		g.breakerUntil = &until
		g.logger.Warn("circuit breaker tripped",
			slog.Int("consecutive_losses", g.consecutiveLosses),
			slog.Time("until", until),
		)
	}
}

// ResetDaily zeroes the daily PnL accumulator and the loss streak. Called at
// the venue's daily rollover.
func (g *Gate) ResetDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyPnL = 0
	g.consecutiveLosses = 0
}

// ResetWeekly zeroes the weekly PnL accumulator.
func (g *Gate) ResetWeekly() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.weeklyPnL = 0
}

// Snapshot returns a read-only view of the gate's current state for the
// status API and notifications.
func (g *Gate) Snapshot() domain.RiskSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := domain.RiskSnapshot{
		CanTrade:          g.canTradeLocked() == nil,
		DailyPnL:          g.dailyPnL,
		WeeklyPnL:         g.weeklyPnL,
		OpenPositions:     g.openPositions,
		ConsecutiveLosses: g.consecutiveLosses,
		MaxDailyLoss:      g.cfg.MaxDailyLoss,
		MaxWeeklyLoss:     g.cfg.MaxWeeklyLoss,
		MaxOpenPositions:  g.cfg.MaxOpenPositions,
	}
	if g.breakerUntil != nil {
		until := *g.breakerUntil
		snap.CircuitBreakerActive = true
		snap.CircuitBreakerUntil = &until
	}
	return snap
}

// History returns a copy of the recent trade outcomes, oldest first.
func (g *Gate) History() []domain.TradeOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.TradeOutcome, len(g.history))
	copy(out, g.history)
	return out
}
