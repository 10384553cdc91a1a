package scanner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// fakeVenue implements domain.VenueClient with canned markets and books.
type fakeVenue struct {
	markets []domain.Market
	books   map[string]domain.OrderbookSnapshot
	bookErr map[string]error
}

func (f *fakeVenue) GetMarkets(ctx context.Context) ([]domain.Market, error) {
	return f.markets, nil
}

func (f *fakeVenue) GetOrderbook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if err, ok := f.bookErr[tokenID]; ok {
		return domain.OrderbookSnapshot{}, err
	}
	snap, ok := f.books[tokenID]
	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeVenue) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{}, errors.New("not supported")
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	return errors.New("not supported")
}

func (f *fakeVenue) GetBalance(ctx context.Context) (domain.Balance, error) {
	return domain.Balance{}, errors.New("not supported")
}

var _ domain.VenueClient = (*fakeVenue)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func binaryMarket(id, question, yesTok, noTok string, endIn time.Duration) domain.Market {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(endIn)
	return domain.Market{
		ID:         id,
		Question:   question,
		Active:     true,
		YesTokenID: yesTok,
		NoTokenID:  noTok,
		EndDate:    &end,
	}
}

func TestScanFiltersUniverse(t *testing.T) {
	e := testEvaluator()
	venue := &fakeVenue{
		markets: []domain.Market{
			binaryMarket("m1", "Will BTC be above $100k in 15 min?", "y1", "n1", 10*time.Minute),
			binaryMarket("m2", "Will it rain in London tomorrow?", "y2", "n2", 10*time.Minute),
			binaryMarket("m3", "Will ETH close higher this month?", "y3", "n3", 10*time.Minute),
		},
		books: map[string]domain.OrderbookSnapshot{
			"y1": deepBook("y1", 0.47, 0.46),
			"n1": deepBook("n1", 0.48, 0.47),
			"y2": deepBook("y2", 0.47, 0.46),
			"n2": deepBook("n2", 0.48, 0.47),
			"y3": deepBook("y3", 0.47, 0.46),
			"n3": deepBook("n3", 0.48, 0.47),
		},
	}

	s := NewMarketScanner(venue, nil, e, e.scanner, discardLogger())
	opps, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// m2 lacks an asset keyword, m3 lacks a timeframe keyword.
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	if opps[0].MarketID != "m1" {
		t.Errorf("opportunity market = %s, want m1", opps[0].MarketID)
	}
}

func TestScanSkipsInactiveAndNonBinary(t *testing.T) {
	e := testEvaluator()
	inactive := binaryMarket("m1", "Will BTC be above $100k in 15 min?", "y1", "n1", 10*time.Minute)
	inactive.Active = false
	halfPair := binaryMarket("m2", "Will SOL be above $300 in 15 min?", "y2", "", 10*time.Minute)

	venue := &fakeVenue{markets: []domain.Market{inactive, halfPair}}
	s := NewMarketScanner(venue, nil, e, e.scanner, discardLogger())

	opps, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0", len(opps))
	}
}

func TestScanContinuesAfterBookError(t *testing.T) {
	e := testEvaluator()
	venue := &fakeVenue{
		markets: []domain.Market{
			binaryMarket("m1", "Will BTC be above $100k in 15 min?", "y1", "n1", 10*time.Minute),
			binaryMarket("m2", "Will ETH be above $5k in 15 min?", "y2", "n2", 10*time.Minute),
		},
		books: map[string]domain.OrderbookSnapshot{
			"y2": deepBook("y2", 0.47, 0.46),
			"n2": deepBook("n2", 0.48, 0.47),
		},
		bookErr: map[string]error{"y1": errors.New("venue timeout")},
	}

	s := NewMarketScanner(venue, nil, e, e.scanner, discardLogger())
	opps, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 1 || opps[0].MarketID != "m2" {
		t.Fatalf("expected only m2 to survive, got %+v", opps)
	}
}

func TestScanOrdersByScoreDescending(t *testing.T) {
	e := testEvaluator()
	venue := &fakeVenue{
		markets: []domain.Market{
			binaryMarket("narrow", "Will BTC be above $100k in 15 min?", "y1", "n1", 10*time.Minute),
			binaryMarket("wide", "Will ETH be above $5k in 15 min?", "y2", "n2", 10*time.Minute),
		},
		books: map[string]domain.OrderbookSnapshot{
			"y1": deepBook("y1", 0.47, 0.46),
			"n1": deepBook("n1", 0.48, 0.47),
			"y2": deepBook("y2", 0.45, 0.44),
			"n2": deepBook("n2", 0.47, 0.46),
		},
	}

	s := NewMarketScanner(venue, nil, e, e.scanner, discardLogger())
	opps, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opps))
	}
	if opps[0].MarketID != "wide" {
		t.Errorf("first opportunity = %s, want wide (higher score first)", opps[0].MarketID)
	}
}
