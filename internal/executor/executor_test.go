package executor

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// fakeVenue scripts per-token order behavior and records every call.
type fakeVenue struct {
	mu        sync.Mutex
	books     map[string]domain.OrderbookSnapshot
	fillRatio map[string]float64 // token -> fraction of requested shares filled
	failToken map[string]bool    // token -> CreateOrder returns a failed result
	hangToken map[string]bool    // token -> CreateOrder blocks until ctx done
	created   []domain.OrderRequest
	cancelled []string
	orderSeq  int
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		books:     make(map[string]domain.OrderbookSnapshot),
		fillRatio: make(map[string]float64),
		failToken: make(map[string]bool),
		hangToken: make(map[string]bool),
	}
}

func (f *fakeVenue) setBook(token string, ask float64) {
	f.books[token] = domain.OrderbookSnapshot{
		AssetID: token,
		Bids:    []domain.PriceLevel{{Price: ask - 0.01, Size: 1000}},
		Asks:    []domain.PriceLevel{{Price: ask, Size: 1000}},
	}
}

func (f *fakeVenue) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	return nil, nil
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
	hang := f.hangToken[req.TokenID]
	f.created = append(f.created, req)
	f.orderSeq++
	id := "ord-" + req.TokenID
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return domain.OrderResult{}, ctx.Err()
	}

	shares := req.Size / req.Price
	ratio, ok := f.fillRatio[req.TokenID]
	if !ok {
		ratio = 1.0
	}
	if f.failToken[req.TokenID] {
		return domain.OrderResult{
			Success:       false,
			Side:          req.Side,
			RequestedSize: shares,
			Status:        domain.ExecFailed,
			Error:         "rejected by venue",
		}, nil
	}
	status := domain.ExecSuccess
	if ratio < 1 {
		status = domain.ExecPartialFill
	}
	return domain.OrderResult{
		Success:       true,
		OrderID:       id,
		Side:          req.Side,
		RequestedSize: shares,
		FilledSize:    shares * ratio,
		FillPrice:     req.Price,
		Status:        status,
	}, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeVenue) GetBalance(ctx context.Context) (domain.Balance, error) {
	return domain.Balance{Total: 1000, Available: 1000}, nil
}

var _ domain.VenueClient = (*fakeVenue)(nil)

func testExecutor(venue *fakeVenue) *AtomicExecutor {
	cfg := config.ExecutionConfig{MinFillRatio: 0.80}
	cfg.OrderTimeout.Duration = 200 * time.Millisecond
	cfg.CancelTimeout.Duration = 200 * time.Millisecond
	profit := config.ProfitConfig{PlatformFee: 0.02, GasEstimate: 0.05}
	return NewAtomicExecutor(venue, cfg, profit, slog.New(slog.DiscardHandler))
}

func testOpp(marketID string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:         "opp-" + marketID,
		MarketID:   marketID,
		YesTokenID: "yes-" + marketID,
		NoTokenID:  "no-" + marketID,
		YesAsk:     0.47,
		NoAsk:      0.48,
	}
}

func TestExecuteBothLegsFill(t *testing.T) {
	venue := newFakeVenue()
	venue.setBook("yes-m1", 0.47)
	venue.setBook("no-m1", 0.48)

	result := testExecutor(venue).Execute(context.Background(), testOpp("m1"), 20)
	if !result.Success || result.Status != domain.ExecSuccess {
		t.Fatalf("result = %+v, want success", result)
	}

	// $20 per leg buys 42.55 YES shares and 41.67 NO shares. The matched
	// 41.67 shares pay out $1 each; cost is $40; fees are 2% of payout plus
	// two gas payments.
	payout := 20.0 / 0.48
	wantCost := 40.0
	wantProfit := payout - wantCost - (0.02*payout + 0.10)
	if math.Abs(result.ActualCost-wantCost) > 1e-9 {
		t.Errorf("cost = %v, want %v", result.ActualCost, wantCost)
	}
	if math.Abs(result.LockedProfit-wantProfit) > 1e-9 {
		t.Errorf("locked profit = %v, want %v", result.LockedProfit, wantProfit)
	}
	if len(venue.cancelled) != 0 {
		t.Errorf("no cancellations expected, got %v", venue.cancelled)
	}
}

func TestExecutePreflightAbortsStaleOpportunity(t *testing.T) {
	venue := newFakeVenue()
	// Prices moved since discovery: combined is now >= 1.
	venue.setBook("yes-m1", 0.52)
	venue.setBook("no-m1", 0.50)

	result := testExecutor(venue).Execute(context.Background(), testOpp("m1"), 20)
	if result.Success {
		t.Fatal("stale opportunity must not execute")
	}
	if result.Reason != "no longer profitable" {
		t.Errorf("reason = %q, want %q", result.Reason, "no longer profitable")
	}
	if len(venue.created) != 0 {
		t.Errorf("no orders should be placed, got %d", len(venue.created))
	}
	if result.LockedProfit != 0 {
		t.Errorf("locked profit = %v, want 0", result.LockedProfit)
	}
}

func TestExecutePartialFillTriggersCompensation(t *testing.T) {
	venue := newFakeVenue()
	venue.setBook("yes-m1", 0.47)
	venue.setBook("no-m1", 0.48)
	venue.fillRatio["yes-m1"] = 0.5 // below the 0.80 minimum

	result := testExecutor(venue).Execute(context.Background(), testOpp("m1"), 20)
	if result.Success || result.Status != domain.ExecFailed {
		t.Fatalf("result = %+v, want failed", result)
	}
	if result.LockedProfit != 0 {
		t.Errorf("locked profit = %v, want 0", result.LockedProfit)
	}
	if result.Reason == "" {
		t.Error("failed result must carry a reason")
	}

	// The fully-filled NO leg must be cancelled to stop further fills.
	found := false
	for _, id := range venue.cancelled {
		if id == "ord-no-m1" {
			found = true
		}
	}
	if !found {
		t.Errorf("NO leg not cancelled, cancelled = %v", venue.cancelled)
	}
}

func TestExecuteLegTimeout(t *testing.T) {
	venue := newFakeVenue()
	venue.setBook("yes-m1", 0.47)
	venue.setBook("no-m1", 0.48)
	venue.hangToken["yes-m1"] = true

	result := testExecutor(venue).Execute(context.Background(), testOpp("m1"), 20)
	if result.Success {
		t.Fatal("timed-out leg must fail the execution")
	}
	if result.YesOrder == nil || result.YesOrder.Error != "timeout" {
		t.Errorf("yes order = %+v, want timeout error", result.YesOrder)
	}
	if !strings.Contains(result.Reason, "timeout") {
		t.Errorf("reason = %q, want it to mention timeout", result.Reason)
	}
	// The NO leg filled and must be cancelled.
	if len(venue.cancelled) != 1 || venue.cancelled[0] != "ord-no-m1" {
		t.Errorf("cancelled = %v, want [ord-no-m1]", venue.cancelled)
	}
}

func TestExecuteRejectedLeg(t *testing.T) {
	venue := newFakeVenue()
	venue.setBook("yes-m1", 0.47)
	venue.setBook("no-m1", 0.48)
	venue.failToken["no-m1"] = true

	result := testExecutor(venue).Execute(context.Background(), testOpp("m1"), 20)
	if result.Success {
		t.Fatal("rejected leg must fail the execution")
	}
	if !strings.Contains(result.Reason, "rejected by venue") {
		t.Errorf("reason = %q, want the venue rejection surfaced", result.Reason)
	}
}

func TestExecuteNegativeProfitIsNotSuccess(t *testing.T) {
	venue := newFakeVenue()
	// Thin edge: gross profit exists but fees exceed it at this size.
	venue.setBook("yes-m1", 0.495)
	venue.setBook("no-m1", 0.495)

	opp := testOpp("m1")
	result := testExecutor(venue).Execute(context.Background(), opp, 2)
	if result.Success {
		t.Fatalf("fees exceed the edge, got success with profit %v", result.LockedProfit)
	}
	if result.LockedProfit != 0 {
		t.Errorf("locked profit = %v, want 0", result.LockedProfit)
	}
	if !strings.Contains(result.Reason, "negative locked profit") {
		t.Errorf("reason = %q, want negative locked profit", result.Reason)
	}
	// Both legs filled and pay out at resolution; nothing is cancelled.
	if len(venue.cancelled) != 0 {
		t.Errorf("cancelled = %v, want none", venue.cancelled)
	}
}

func TestExecuteDeduplicatesMarket(t *testing.T) {
	venue := newFakeVenue()
	venue.setBook("yes-m1", 0.47)
	venue.setBook("no-m1", 0.48)

	e := testExecutor(venue)
	first := e.Execute(context.Background(), testOpp("m1"), 20)
	if !first.Success {
		t.Fatalf("first execution failed: %s", first.Reason)
	}
	ordersAfterFirst := len(venue.created)

	second := e.Execute(context.Background(), testOpp("m1"), 20)
	if second.Success {
		t.Fatal("immediate re-execution of the same market must be refused")
	}
	if !strings.Contains(second.Reason, "attempted recently") {
		t.Errorf("reason = %q, want dedup reason", second.Reason)
	}
	if len(venue.created) != ordersAfterFirst {
		t.Error("dedup-refused execution must not place orders")
	}

	total, successful := e.Stats()
	if total != 2 || successful != 1 {
		t.Errorf("stats = (%d, %d), want (2, 1)", total, successful)
	}
}
