// Package sizing computes the dollar notional to commit to an arbitrage
// opportunity, bounded by per-position caps, visible book depth and the
// overall capital deployment limit.
package sizing

import (
	"math"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

// exceptionalMarginFactor: a net margin more than twice the configured floor
// unlocks the larger exceptional-opportunity ceiling.
const exceptionalMarginFactor = 2.0

// exceptionalCapitalFraction is the fraction of total capital an exceptional
// opportunity may use when it exceeds the normal per-position cap.
const exceptionalCapitalFraction = 0.25

// liquiditySafetyFactor discounts the visible depth so the order does not
// consume the entire book.
const liquiditySafetyFactor = 0.9

// PositionSizer computes position sizes from the capital and profitability
// configuration.
type PositionSizer struct {
	capital config.CapitalConfig
	profit  config.ProfitConfig
}

// NewPositionSizer creates a PositionSizer.
func NewPositionSizer(cc config.CapitalConfig, pc config.ProfitConfig) *PositionSizer {
	return &PositionSizer{capital: cc, profit: pc}
}

// Size returns the dollar notional to commit to opp given the capital
// currently deployed in open positions. The result is bounded above by the
// per-position ceiling, by a safety fraction of the thinner book side, and
// by the remaining deployable capital; it never goes below zero. Callers
// should skip results under the minimum tradable size.
func (p *PositionSizer) Size(opp domain.ArbitrageOpportunity, deployedCapital float64) float64 {
	ceiling := p.capital.MaxSinglePosition
	if opp.NetMargin > exceptionalMarginFactor*p.profit.MinNetMargin {
		ceiling = math.Max(ceiling, exceptionalCapitalFraction*p.capital.TotalCapital)
	}

	size := ceiling
	size = math.Min(size, liquiditySafetyFactor*opp.MinLiquidity())

	available := p.capital.TotalCapital*p.capital.MaxDeploymentRatio - deployedCapital
	size = math.Min(size, available)

	return math.Max(size, 0)
}

// Tradable reports whether a computed size clears the minimum tradable
// notional.
func (p *PositionSizer) Tradable(size float64) bool {
	return size >= p.capital.MinTradableSize
}

// ExpectedProfit returns the dollar profit locked in if both legs fill at
// the quoted asks for the given notional.
func (p *PositionSizer) ExpectedProfit(opp domain.ArbitrageOpportunity, size float64) float64 {
	return opp.NetMargin * size
}
