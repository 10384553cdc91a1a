package scanner

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// testEvaluator builds an Evaluator whose fee model sums to a 0.02 net cost:
// platform fee 0.01, gas 0.05*2/20 = 0.005, slippage 0.005.
func testEvaluator() *Evaluator {
	sc := config.Defaults().Scanner
	pc := config.Defaults().Profit
	cc := config.Defaults().Capital
	pc.PlatformFee = 0.01
	pc.GasEstimate = 0.05
	pc.SlippageTolerance = 0.005
	cc.MaxSinglePosition = 20

	e := NewEvaluator(sc, pc, cc)
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
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
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testMarket(endIn time.Duration) domain.Market {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(endIn)
	return domain.Market{
		ID:         "0xmkt",
		Question:   "Will BTC be above $100k in 15 min?",
		Active:     true,
		YesTokenID: "yes-token",
		NoTokenID:  "no-token",
		EndDate:    &end,
	}
}

func TestEvaluateProfitableSpread(t *testing.T) {
	e := testEvaluator()
	m := testMarket(10 * time.Minute)

	opp, reason := e.Evaluate(m, deepBook("yes-token", 0.47, 0.46), deepBook("no-token", 0.48, 0.47))
	if opp == nil {
		t.Fatalf("expected opportunity, rejected: %s", reason)
	}
	if math.Abs(opp.CombinedPrice-0.95) > 1e-9 {
		t.Errorf("combined price = %v, want 0.95", opp.CombinedPrice)
	}
	if math.Abs(opp.GrossMargin-0.05) > 1e-9 {
		t.Errorf("gross margin = %v, want 0.05", opp.GrossMargin)
	}
	if math.Abs(opp.NetMargin-0.03) > 1e-9 {
		t.Errorf("net margin = %v, want 0.03", opp.NetMargin)
	}
	if opp.ID == "" {
		t.Error("opportunity ID not assigned")
	}
	if opp.Score <= 0 {
		t.Errorf("score = %v, want > 0", opp.Score)
	}
}

func TestEvaluateRejections(t *testing.T) {
	e := testEvaluator()

	thinYes := deepBook("yes-token", 0.47, 0.46)
	thinYes.Asks = []domain.PriceLevel{{Price: 0.47, Size: 10}}

	wideNo := deepBook("no-token", 0.48, 0.40)

	emptyAsk := deepBook("yes-token", 0.47, 0.46)
	emptyAsk.Asks = nil

	tests := []struct {
		name   string
		market domain.Market
		yes    domain.OrderbookSnapshot
		no     domain.OrderbookSnapshot
		want   string
	}{
		{
			name:   "combined price above cap",
			market: testMarket(10 * time.Minute),
			yes:    deepBook("yes-token", 0.52, 0.51),
			no:     deepBook("no-token", 0.50, 0.49),
			want:   "combined price",
		},
		{
			name:   "gross margin too small",
			market: testMarket(10 * time.Minute),
			yes:    deepBook("yes-token", 0.49, 0.48),
			no:     deepBook("no-token", 0.48, 0.47),
			want:   "net margin",
		},
		{
			name:   "thin yes side",
			market: testMarket(10 * time.Minute),
			yes:    thinYes,
			no:     deepBook("no-token", 0.48, 0.47),
			want:   "side liquidity",
		},
		{
			name:   "wide no spread",
			market: testMarket(10 * time.Minute),
			yes:    deepBook("yes-token", 0.47, 0.46),
			no:     wideNo,
			want:   "no spread",
		},
		{
			name:   "resolving too soon",
			market: testMarket(30 * time.Second),
			yes:    deepBook("yes-token", 0.47, 0.46),
			no:     deepBook("no-token", 0.48, 0.47),
			want:   "time remaining",
		},
		{
			name:   "empty ask side",
			market: testMarket(10 * time.Minute),
			yes:    emptyAsk,
			no:     deepBook("no-token", 0.48, 0.47),
			want:   "missing ask",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp, reason := e.Evaluate(tt.market, tt.yes, tt.no)
			if opp != nil {
				t.Fatalf("expected rejection, got opportunity with net margin %v", opp.NetMargin)
			}
			if !strings.Contains(reason, tt.want) {
				t.Errorf("reason = %q, want it to contain %q", reason, tt.want)
			}
		})
	}
}

func TestEvaluateFallbackResolutionWindow(t *testing.T) {
	e := testEvaluator()
	m := testMarket(10 * time.Minute)
	m.EndDate = nil

	// With no published end time the assumed window (15m default) applies,
	// which clears the 2-minute floor.
	opp, reason := e.Evaluate(m, deepBook("yes-token", 0.47, 0.46), deepBook("no-token", 0.48, 0.47))
	if opp == nil {
		t.Fatalf("expected opportunity under fallback window, rejected: %s", reason)
	}
	if opp.TimeRemaining != e.scanner.AssumedResolutionWindow.Duration {
		t.Errorf("time remaining = %v, want %v", opp.TimeRemaining, e.scanner.AssumedResolutionWindow.Duration)
	}
}

func TestScoreOrdersByNetMargin(t *testing.T) {
	e := testEvaluator()
	m := testMarket(10 * time.Minute)

	wide, _ := e.Evaluate(m, deepBook("yes-token", 0.45, 0.44), deepBook("no-token", 0.47, 0.46))
	narrow, _ := e.Evaluate(m, deepBook("yes-token", 0.47, 0.46), deepBook("no-token", 0.48, 0.47))
	if wide == nil || narrow == nil {
		t.Fatal("expected both evaluations to produce opportunities")
	}
	if wide.Score <= narrow.Score {
		t.Errorf("wider margin should score higher: %v <= %v", wide.Score, narrow.Score)
	}
}

func TestScorePrefersMoreTimeBuffer(t *testing.T) {
	e := testEvaluator()
	yes := deepBook("yes-token", 0.47, 0.46)
	no := deepBook("no-token", 0.48, 0.47)

	short, _ := e.Evaluate(testMarket(3*time.Minute), yes, no)
	long, _ := e.Evaluate(testMarket(12*time.Minute), yes, no)
	if short == nil || long == nil {
		t.Fatal("expected both evaluations to produce opportunities")
	}
	if long.Score <= short.Score {
		t.Errorf("longer time buffer should score higher: %v <= %v", long.Score, short.Score)
	}
}

func TestEvaluateRejectsCombinedAtOrAboveDollar(t *testing.T) {
	e := testEvaluator()
	e.scanner.MaxCombinedPrice = 1.5 // a permissive cap must not admit a no-margin pair
	m := testMarket(10 * time.Minute)

	opp, reason := e.Evaluate(m, deepBook("yes-token", 0.52, 0.51), deepBook("no-token", 0.48, 0.47))
	if opp != nil {
		t.Fatalf("expected rejection at combined price 1.00, got opportunity")
	}
	if !strings.Contains(reason, "no margin") {
		t.Errorf("reason = %q, want it to mention no margin", reason)
	}
}
