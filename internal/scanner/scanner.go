package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// MarketScanner fetches active markets from the venue, filters them down to
// the configured asset/timeframe universe, and runs the Evaluator over each
// one's paired orderbooks.
type MarketScanner struct {
	venue     domain.VenueClient
	books     domain.OrderbookCache
	markets   domain.MarketCache
	evaluator *Evaluator
	cfg       config.ScannerConfig
	logger    *slog.Logger
}

// NewMarketScanner creates a MarketScanner. The orderbook cache is optional;
// pass nil to always hit the venue REST API.
func NewMarketScanner(
	venue domain.VenueClient,
	books domain.OrderbookCache,
	evaluator *Evaluator,
	cfg config.ScannerConfig,
	logger *slog.Logger,
) *MarketScanner {
	return &MarketScanner{
		venue:     venue,
		books:     books,
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scanner")),
	}
}

// WithMarketCache makes the scanner publish each eligible market's metadata
// to the cache, keeping the token-to-market index warm for consumers that
// only see token IDs.
func (s *MarketScanner) WithMarketCache(mc domain.MarketCache) *MarketScanner {
	s.markets = mc
	return s
}

// Scan runs one full pass: list markets, filter, evaluate, and return the
// surviving opportunities sorted by descending score. A failure on a single
// market is logged and skipped; only a failure to list markets at all is
// returned as an error.
func (s *MarketScanner) Scan(ctx context.Context) ([]domain.ArbitrageOpportunity, error) {
	markets, err := s.venue.GetMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner: get markets: %w", err)
	}

	var opps []domain.ArbitrageOpportunity
	eligible := 0
	for _, m := range markets {
		if !s.isEligible(m) {
			continue
		}
		eligible++

		if s.markets != nil {
			if cacheErr := s.markets.Set(ctx, m); cacheErr != nil {
				s.logger.WarnContext(ctx, "market cache write failed",
					slog.String("market_id", m.ID),
					slog.String("error", cacheErr.Error()),
				)
			}
		}

		opp, reason, err := s.evaluateMarket(ctx, m)
		if err != nil {
			s.logger.WarnContext(ctx, "market evaluation failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if opp == nil {
			s.logger.DebugContext(ctx, "market rejected",
				slog.String("market_id", m.ID),
				slog.String("reason", reason),
			)
			continue
		}
		opps = append(opps, *opp)
	}

	sort.Slice(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })

	s.logger.InfoContext(ctx, "scan complete",
		slog.Int("markets", len(markets)),
		slog.Int("eligible", eligible),
		slog.Int("opportunities", len(opps)),
	)
	return opps, nil
}

// isEligible filters a market down to the configured universe: active binary
// markets whose question mentions one of the asset keywords and one of the
// timeframe keywords.
func (s *MarketScanner) isEligible(m domain.Market) bool {
	if !m.Active || !m.IsBinary() {
		return false
	}
	q := strings.ToLower(m.Question)
	if !containsAny(q, s.cfg.AssetKeywords) {
		return false
	}
	return containsAny(q, s.cfg.TimeframeKeywords)
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// evaluateMarket fetches both legs' orderbooks (cache first, venue on miss)
// and runs the evaluator. It returns a nil opportunity with a rejection
// reason when the market does not qualify.
func (s *MarketScanner) evaluateMarket(ctx context.Context, m domain.Market) (*domain.ArbitrageOpportunity, string, error) {
	yesBook, err := s.fetchBook(ctx, m.YesTokenID)
	if err != nil {
		return nil, "", fmt.Errorf("yes book %q: %w", m.YesTokenID, err)
	}
	noBook, err := s.fetchBook(ctx, m.NoTokenID)
	if err != nil {
		return nil, "", fmt.Errorf("no book %q: %w", m.NoTokenID, err)
	}

	opp, reason := s.evaluator.Evaluate(m, yesBook, noBook)
	return opp, reason, nil
}

// fetchBook returns the orderbook for a token, preferring the cache warmed
// by the websocket feed and falling back to the venue REST API. Snapshots
// fetched from the venue are written back to the cache on a best-effort
// basis.
func (s *MarketScanner) fetchBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	if s.books != nil {
		if snap, err := s.books.GetSnapshot(ctx, tokenID); err == nil {
			return snap, nil
		}
	}

	snap, err := s.venue.GetOrderbook(ctx, tokenID)
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}

	if s.books != nil {
		if cacheErr := s.books.SetSnapshot(ctx, tokenID, snap); cacheErr != nil {
			s.logger.WarnContext(ctx, "orderbook cache write failed",
				slog.String("token_id", tokenID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return snap, nil
}
