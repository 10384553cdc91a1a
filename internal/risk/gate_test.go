package risk

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

func testGate() (*Gate, *time.Time) {
	cfg := config.RiskConfig{
		MaxDailyLoss:         50,
		MaxWeeklyLoss:        150,
		MaxOpenPositions:     3,
		ConsecutiveLossLimit: 3,
		MaxPositionFraction:  0.25,
		HistorySize:          10,
	}
	cfg.PauseDuration.Duration = 30 * time.Minute
	capital := config.CapitalConfig{TotalCapital: 100}

	g := NewGate(cfg, capital, slog.New(slog.DiscardHandler))
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }
	return g, &clock
}

func loss(amount float64) domain.TradeOutcome {
	return domain.TradeOutcome{Profit: -amount, Success: false}
}

func win(amount float64) domain.TradeOutcome {
	return domain.TradeOutcome{Profit: amount, Success: true}
}

func TestCircuitBreakerTripsAfterConsecutiveLosses(t *testing.T) {
	g, clock := testGate()

	g.RecordOutcome(loss(1))
	g.RecordOutcome(loss(1))
	if err := g.CanTrade(); err != nil {
		t.Fatalf("two losses should not trip the breaker: %v", err)
	}

	g.RecordOutcome(loss(1))
	err := g.CanTrade()
	if !errors.Is(err, domain.ErrCircuitBreakerActive) {
		t.Fatalf("CanTrade = %v, want ErrCircuitBreakerActive", err)
	}

	snap := g.Snapshot()
	if !snap.CircuitBreakerActive || snap.CircuitBreakerUntil == nil {
		t.Fatal("snapshot should report an active breaker with a deadline")
	}

	// Advance past the cool-down; the breaker clears and the streak resets.
	*clock = clock.Add(31 * time.Minute)
	if err := g.CanTrade(); err != nil {
		t.Fatalf("CanTrade after cool-down = %v, want nil", err)
	}
	if g.Snapshot().ConsecutiveLosses != 0 {
		t.Error("loss streak should reset when the breaker clears")
	}
}

func TestWinResetsLossStreak(t *testing.T) {
	g, _ := testGate()

	g.RecordOutcome(loss(1))
	g.RecordOutcome(loss(1))
	g.RecordOutcome(win(2))
	g.RecordOutcome(loss(1))
	g.RecordOutcome(loss(1))

	if err := g.CanTrade(); err != nil {
		t.Fatalf("streak was broken by a win, CanTrade = %v, want nil", err)
	}
}

func TestDailyLossCapAndRecovery(t *testing.T) {
	g, _ := testGate()

	g.RecordOutcome(loss(30))
	g.RecordOutcome(win(5))
	g.RecordOutcome(loss(25))
	// Daily PnL is -50, at the cap.
	err := g.CanTrade()
	if !errors.Is(err, domain.ErrRiskLimited) {
		t.Fatalf("CanTrade = %v, want ErrRiskLimited at daily cap", err)
	}

	g.ResetDaily()
	if err := g.CanTrade(); err != nil {
		t.Fatalf("CanTrade after daily reset = %v, want nil", err)
	}
	// Weekly accumulator persists through the daily reset.
	if got := g.Snapshot().WeeklyPnL; got != -50 {
		t.Errorf("weekly PnL = %v, want -50", got)
	}
}

func TestPnLMagnitudeTripsCaps(t *testing.T) {
	g, _ := testGate()

	// A run-up as large as the loss cap halts trading just like a drawdown.
	g.RecordOutcome(win(60))
	err := g.CanTrade()
	if !errors.Is(err, domain.ErrRiskLimited) {
		t.Fatalf("CanTrade at +60 daily PnL = %v, want ErrRiskLimited", err)
	}

	g.ResetDaily()
	if err := g.CanTrade(); err != nil {
		t.Fatalf("CanTrade after daily reset = %v, want nil", err)
	}

	// Weekly cap applies the same magnitude rule.
	g.RecordOutcome(win(45))
	g.ResetDaily()
	g.RecordOutcome(win(45))
	g.ResetDaily()
	g.RecordOutcome(win(45))
	g.ResetDaily()
	// Weekly PnL is +195, past the 150 cap; daily is clear.
	if err := g.CanTrade(); !errors.Is(err, domain.ErrRiskLimited) {
		t.Fatalf("CanTrade at +195 weekly PnL = %v, want ErrRiskLimited", err)
	}
	g.ResetWeekly()
	if err := g.CanTrade(); err != nil {
		t.Fatalf("CanTrade after weekly reset = %v, want nil", err)
	}
}

func TestResetDailyClearsLossStreak(t *testing.T) {
	g, _ := testGate()

	g.RecordOutcome(loss(1))
	g.RecordOutcome(loss(1))
	g.ResetDaily()
	g.RecordOutcome(loss(1))

	if err := g.CanTrade(); err != nil {
		t.Fatalf("streak spans a daily reset, CanTrade = %v, want nil", err)
	}
	if got := g.Snapshot().ConsecutiveLosses; got != 1 {
		t.Errorf("consecutive losses after reset = %d, want 1", got)
	}
}

func TestOpenPositionCap(t *testing.T) {
	g, _ := testGate()

	g.PositionOpened(10)
	g.PositionOpened(10)
	g.PositionOpened(10)
	err := g.CanTrade()
	if !errors.Is(err, domain.ErrRiskLimited) {
		t.Fatalf("CanTrade = %v, want ErrRiskLimited at position cap", err)
	}

	g.PositionClosed(10)
	if err := g.CanTrade(); err != nil {
		t.Fatalf("CanTrade after close = %v, want nil", err)
	}
	if got := g.DeployedCapital(); got != 20 {
		t.Errorf("deployed capital = %v, want 20", got)
	}
}

func TestApproveBoundsTheTrade(t *testing.T) {
	g, _ := testGate()
	opp := domain.ArbitrageOpportunity{NetMargin: 0.03}

	if err := g.Approve(opp, 20); err != nil {
		t.Fatalf("Approve(valid) = %v, want nil", err)
	}

	// Notional above 25% of $100 capital.
	if err := g.Approve(opp, 30); !errors.Is(err, domain.ErrRiskLimited) {
		t.Errorf("Approve(oversized) = %v, want ErrRiskLimited", err)
	}

	bad := domain.ArbitrageOpportunity{NetMargin: 0}
	if err := g.Approve(bad, 10); !errors.Is(err, domain.ErrRiskLimited) {
		t.Errorf("Approve(zero margin) = %v, want ErrRiskLimited", err)
	}

	if err := g.Approve(opp, 0); !errors.Is(err, domain.ErrRiskLimited) {
		t.Errorf("Approve(zero size) = %v, want ErrRiskLimited", err)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	g, _ := testGate()
	for i := 0; i < 25; i++ {
		g.RecordOutcome(win(1))
	}
	if got := len(g.History()); got != 10 {
		t.Errorf("history length = %d, want 10", got)
	}
}
