package app

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/executor"
	"github.com/alanyoungcy/arbot/internal/risk"
	"github.com/alanyoungcy/arbot/internal/scanner"
	"github.com/alanyoungcy/arbot/internal/sizing"
)

// fakeVenue serves a single eligible BTC market with books wide enough to
// arbitrage and fills every order in full at the quoted ask.
type fakeVenue struct {
	mu          sync.Mutex
	markets     []domain.Market
	books       map[string]domain.OrderbookSnapshot
	balance     domain.Balance
	failToken   map[string]bool
	marketCalls int
	created     []domain.OrderRequest
}

func (f *fakeVenue) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketCalls++
	return f.markets, nil
}

func (f *fakeVenue) GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	snap, ok := f.books[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeVenue) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	fail := f.failToken[req.TokenID]
	f.mu.Unlock()

	shares := req.Size / req.Price
	if fail {
		return domain.OrderResult{
			Success:       false,
			Side:          req.Side,
			RequestedSize: shares,
			Status:        domain.ExecFailed,
			Error:         "rejected by venue",
		}, nil
	}
	return domain.OrderResult{
		Success:       true,
		OrderID:       "ord-" + req.TokenID,
		Side:          req.Side,
		RequestedSize: shares,
		FilledSize:    shares,
		FillPrice:     req.Price,
		Status:        domain.ExecSuccess,
	}, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error { return nil }

func (f *fakeVenue) GetBalance(ctx context.Context) (domain.Balance, error) {
	return f.balance, nil
}

func (f *fakeVenue) orders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var _ domain.VenueClient = (*fakeVenue)(nil)

type fakeTradeStore struct {
	mu       sync.Mutex
	inserted []domain.TradeRecord
}

func (s *fakeTradeStore) Insert(ctx context.Context, rec domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, rec)
	return nil
}

func (s *fakeTradeStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *fakeTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *fakeTradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeOppStore struct {
	mu       sync.Mutex
	inserted []domain.OpportunityRecord
	executed []string
}

func (s *fakeOppStore) Insert(ctx context.Context, rec domain.OpportunityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, rec)
	return nil
}

func (s *fakeOppStore) MarkExecuted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, id)
	return nil
}

func (s *fakeOppStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.OpportunityRecord, error) {
	return nil, nil
}

func (s *fakeOppStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OpportunityRecord, error) {
	return nil, nil
}

func (s *fakeOppStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = make(map[string][][]byte)
	}
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[channel])
}

type fakeLocks struct {
	mu       sync.Mutex
	err      error
	acquired int
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() {}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testConfig tunes the fee model so a 0.95 combined ask clears every floor.
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Mode = "sim"
	cfg.Profit.PlatformFee = 0.01
	cfg.Profit.GasEstimate = 0.05
	cfg.Profit.SlippageTolerance = 0.005
	cfg.Profit.MinDollarProfit = 0.30
	return &cfg
}

func deepBook(token string, ask, bid float64) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		AssetID: token,
		Bids:    []domain.PriceLevel{{Price: bid, Size: 500}},
		Asks: []domain.PriceLevel{
			{Price: ask, Size: 300},
			{Price: ask + 0.01, Size: 300},
			{Price: ask + 0.02, Size: 300},
		},
	}
}

func arbVenue() *fakeVenue {
	end := time.Now().UTC().Add(10 * time.Minute)
	return &fakeVenue{
		markets: []domain.Market{{
			ID:         "m1",
			Question:   "Will BTC be above $100k in 15 min?",
			Active:     true,
			YesTokenID: "y1",
			NoTokenID:  "n1",
			EndDate:    &end,
		}},
		books: map[string]domain.OrderbookSnapshot{
			"y1": deepBook("y1", 0.47, 0.46),
			"n1": deepBook("n1", 0.48, 0.47),
		},
		balance:   domain.Balance{Total: 1000, Available: 1000},
		failToken: make(map[string]bool),
	}
}

type loopFixture struct {
	loop   *TradingLoop
	venue  *fakeVenue
	trades *fakeTradeStore
	opps   *fakeOppStore
	bus    *fakeBus
	locks  *fakeLocks
}

func newLoopFixture(t *testing.T, execute bool) *loopFixture {
	t.Helper()
	cfg := testConfig()
	venue := arbVenue()
	trades := &fakeTradeStore{}
	opps := &fakeOppStore{}
	bus := &fakeBus{}
	locks := &fakeLocks{}
	logger := discardLogger()

	eval := scanner.NewEvaluator(cfg.Scanner, cfg.Profit, cfg.Capital)
	sc := scanner.NewMarketScanner(venue, nil, eval, cfg.Scanner, logger)
	gate := risk.NewGate(cfg.Risk, cfg.Capital, logger)
	exec := executor.NewAtomicExecutor(venue, cfg.Execution, cfg.Profit, logger)

	loop := NewTradingLoop(cfg, LoopDeps{
		Scanner:  sc,
		Sizer:    sizing.NewPositionSizer(cfg.Capital, cfg.Profit),
		Gate:     gate,
		Executor: exec,
		Venue:    venue,
		Trades:   trades,
		Opps:     opps,
		Bus:      bus,
		Locks:    locks,
	}, true, execute, logger)

	return &loopFixture{loop: loop, venue: venue, trades: trades, opps: opps, bus: bus, locks: locks}
}

func TestRunCycleExecutesOpportunity(t *testing.T) {
	f := newLoopFixture(t, true)

	f.loop.runCycle(context.Background())

	if len(f.opps.inserted) != 1 {
		t.Fatalf("opportunity records = %d, want 1", len(f.opps.inserted))
	}
	rec := f.opps.inserted[0]
	if rec.MarketID != "m1" || rec.Strategy != domain.StrategyYesNoArbitrage {
		t.Errorf("opportunity record = %+v", rec)
	}

	if len(f.trades.inserted) != 1 {
		t.Fatalf("trade records = %d, want 1", len(f.trades.inserted))
	}
	trade := f.trades.inserted[0]
	if !trade.Success || trade.Status != domain.ExecSuccess {
		t.Errorf("trade = %+v, want success", trade)
	}
	if !trade.Simulated {
		t.Error("trade record must carry the simulated flag")
	}
	if trade.ActualProfit <= 0 {
		t.Errorf("actual profit = %v, want > 0", trade.ActualProfit)
	}
	if trade.ExpectedProfit < 0.30 {
		t.Errorf("expected profit = %v, want >= min dollar profit", trade.ExpectedProfit)
	}

	if len(f.opps.executed) != 1 || f.opps.executed[0] != rec.ID {
		t.Errorf("marked executed = %v, want [%s]", f.opps.executed, rec.ID)
	}

	// Both legs were bought.
	if f.venue.orders() != 2 {
		t.Errorf("orders placed = %d, want 2", f.venue.orders())
	}
	if f.locks.acquired != 1 {
		t.Errorf("lock acquisitions = %d, want 1", f.locks.acquired)
	}

	for _, ch := range []string{domain.ChannelOpportunities, domain.ChannelTrades, domain.ChannelStatus} {
		if f.bus.count(ch) == 0 {
			t.Errorf("no events published on %s", ch)
		}
	}
}

func TestRunCyclePausedSkipsScan(t *testing.T) {
	f := newLoopFixture(t, true)
	f.loop.Pause()

	f.loop.runCycle(context.Background())

	if f.venue.marketCalls != 0 {
		t.Errorf("market calls = %d, want 0 while paused", f.venue.marketCalls)
	}
	if len(f.trades.inserted) != 0 {
		t.Errorf("trade records = %d, want 0", len(f.trades.inserted))
	}

	f.loop.Resume()
	f.loop.runCycle(context.Background())
	if f.venue.marketCalls == 0 {
		t.Error("resume did not re-enable scanning")
	}
}

func TestRunCycleMonitorRecordsWithoutTrading(t *testing.T) {
	f := newLoopFixture(t, false)

	f.loop.runCycle(context.Background())

	if len(f.opps.inserted) != 1 {
		t.Fatalf("opportunity records = %d, want 1", len(f.opps.inserted))
	}
	if f.venue.orders() != 0 {
		t.Errorf("orders placed = %d, want 0 in monitor mode", f.venue.orders())
	}
	if len(f.trades.inserted) != 0 {
		t.Errorf("trade records = %d, want 0", len(f.trades.inserted))
	}
}

func TestRunCycleLockHeldSkipsExecution(t *testing.T) {
	f := newLoopFixture(t, true)
	f.locks.err = domain.ErrLockHeld

	f.loop.runCycle(context.Background())

	if f.venue.orders() != 0 {
		t.Errorf("orders placed = %d, want 0 when the lock is held", f.venue.orders())
	}
	if len(f.trades.inserted) != 0 {
		t.Errorf("trade records = %d, want 0", len(f.trades.inserted))
	}
	// Discovery still happens and is still recorded.
	if len(f.opps.inserted) != 1 {
		t.Errorf("opportunity records = %d, want 1", len(f.opps.inserted))
	}
}

func TestRunCycleInsufficientBalanceSkipsExecution(t *testing.T) {
	f := newLoopFixture(t, true)
	f.venue.balance = domain.Balance{Total: 5, Available: 5}

	f.loop.runCycle(context.Background())

	if f.venue.orders() != 0 {
		t.Errorf("orders placed = %d, want 0 with insufficient balance", f.venue.orders())
	}
	if len(f.trades.inserted) != 0 {
		t.Errorf("trade records = %d, want 0", len(f.trades.inserted))
	}
}

func TestRunCycleRecordsFailedExecution(t *testing.T) {
	f := newLoopFixture(t, true)
	f.venue.failToken["n1"] = true

	f.loop.runCycle(context.Background())

	if len(f.trades.inserted) != 1 {
		t.Fatalf("trade records = %d, want 1", len(f.trades.inserted))
	}
	trade := f.trades.inserted[0]
	if trade.Success {
		t.Errorf("trade = %+v, want failure", trade)
	}
	if trade.Reason == "" {
		t.Error("failed trade must carry a reason")
	}
	// A failed attempt is not an executed opportunity.
	if len(f.opps.executed) != 0 {
		t.Errorf("marked executed = %v, want none", f.opps.executed)
	}
}
