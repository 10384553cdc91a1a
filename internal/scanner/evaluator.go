// Package scanner discovers YES/NO arbitrage opportunities on binary
// prediction markets: when the best YES ask plus the best NO ask sum to less
// than $1.00, buying both legs locks in the difference at resolution.
package scanner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// Evaluator applies the profitability and quality filters to a single
// market's YES and NO orderbooks and produces an ArbitrageOpportunity when
// every filter passes.
type Evaluator struct {
	scanner config.ScannerConfig
	profit  config.ProfitConfig
	capital config.CapitalConfig
	now     func() time.Time
}

// NewEvaluator creates an Evaluator from the scanner, profitability and
// capital configuration sections.
func NewEvaluator(sc config.ScannerConfig, pc config.ProfitConfig, cc config.CapitalConfig) *Evaluator {
	return &Evaluator{
		scanner: sc,
		profit:  pc,
		capital: cc,
		now:     time.Now,
	}
}

// NetCost returns the total fee overhead subtracted from the gross margin:
// the platform fee (charged once on the combined position), two gas payments
// (one per leg) normalized by the maximum position size, and the slippage
// buffer.
func (e *Evaluator) NetCost() float64 {
	gasPerDollar := 0.0
	if e.capital.MaxSinglePosition > 0 {
		gasPerDollar = e.profit.GasEstimate * 2 / e.capital.MaxSinglePosition
	}
	return e.profit.PlatformFee + gasPerDollar + e.profit.SlippageTolerance
}

// Evaluate checks one market's paired orderbooks against every filter. It
// returns the opportunity and an empty reason when the market qualifies, or
// a nil opportunity and a human-readable rejection reason otherwise.
func (e *Evaluator) Evaluate(m domain.Market, yesBook, noBook domain.OrderbookSnapshot) (*domain.ArbitrageOpportunity, string) {
	yesAsk := yesBook.BestAsk()
	noAsk := noBook.BestAsk()
	if yesAsk <= 0 || noAsk <= 0 {
		return nil, "missing ask on one or both sides"
	}

	combined := yesAsk + noAsk
	if combined >= 1.0 {
		return nil, fmt.Sprintf("combined price %.4f leaves no margin", combined)
	}
	if combined > e.scanner.MaxCombinedPrice {
		return nil, fmt.Sprintf("combined price %.4f above max %.4f", combined, e.scanner.MaxCombinedPrice)
	}

	gross := 1.0 - combined
	if gross < e.profit.MinGrossMargin {
		return nil, fmt.Sprintf("gross margin %.4f below min %.4f", gross, e.profit.MinGrossMargin)
	}

	net := gross - e.NetCost()
	if net < e.profit.MinNetMargin {
		return nil, fmt.Sprintf("net margin %.4f below min %.4f", net, e.profit.MinNetMargin)
	}

	depth := e.scanner.LiquidityDepth
	yesLiq := yesBook.AskLiquidity(depth)
	noLiq := noBook.AskLiquidity(depth)
	if yesLiq < e.scanner.MinLiquidity || noLiq < e.scanner.MinLiquidity {
		return nil, fmt.Sprintf("side liquidity %.2f/%.2f below min %.2f", yesLiq, noLiq, e.scanner.MinLiquidity)
	}
	if yesLiq+noLiq < e.scanner.MinCombinedLiquidity {
		return nil, fmt.Sprintf("combined liquidity %.2f below min %.2f", yesLiq+noLiq, e.scanner.MinCombinedLiquidity)
	}

	if s := yesBook.Spread(); s > e.scanner.MaxSpread {
		return nil, fmt.Sprintf("yes spread %.4f above max %.4f", s, e.scanner.MaxSpread)
	}
	if s := noBook.Spread(); s > e.scanner.MaxSpread {
		return nil, fmt.Sprintf("no spread %.4f above max %.4f", s, e.scanner.MaxSpread)
	}

	now := e.now()
	remaining := m.TimeRemaining(now, e.scanner.AssumedResolutionWindow.Duration)
	if remaining < e.scanner.MinTimeRemaining.Duration {
		return nil, fmt.Sprintf("time remaining %s below min %s", remaining, e.scanner.MinTimeRemaining.Duration)
	}

	opp := &domain.ArbitrageOpportunity{
		ID:            uuid.NewString(),
		MarketID:      m.ID,
		MarketName:    m.Question,
		YesTokenID:    m.YesTokenID,
		NoTokenID:     m.NoTokenID,
		YesAsk:        yesAsk,
		NoAsk:         noAsk,
		CombinedPrice: combined,
		GrossMargin:   gross,
		NetMargin:     net,
		YesLiquidity:  yesLiq,
		NoLiquidity:   noLiq,
		TimeRemaining: remaining,
		DiscoveredAt:  now,
	}
	opp.Score = e.score(opp)
	return opp, ""
}

// score ranks opportunities for execution priority. Higher net margin
// dominates, then more time buffer before resolution, then deeper books.
func (e *Evaluator) score(opp *domain.ArbitrageOpportunity) float64 {
	return e.profit.ProfitWeight*opp.NetMargin +
		e.profit.TimeWeight*opp.TimeRemaining.Minutes() +
		e.profit.LiquidityWeight*opp.MinLiquidity()
}
