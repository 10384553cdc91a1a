package domain

import "time"

// ArbitrageOpportunity is a point-in-time observation that buying both
// outcome tokens of a market costs less than the guaranteed $1.00 payout.
// It is a snapshot, not a live object: the executor must re-validate it
// against fresh orderbook data before acting, because book state can change
// between discovery and execution.
type ArbitrageOpportunity struct {
	ID            string
	MarketID      string
	MarketName    string
	YesTokenID    string
	NoTokenID     string
	YesAsk        float64
	NoAsk         float64
	CombinedPrice float64 // YesAsk + NoAsk, always < 1.0 when emitted
	GrossMargin   float64 // 1.0 - CombinedPrice
	NetMargin     float64 // GrossMargin minus the fee model
	YesLiquidity  float64 // dollar notional over the top ask levels
	NoLiquidity   float64
	TimeRemaining time.Duration // until market resolution
	Score         float64       // ranking priority, higher executes first
	DiscoveredAt  time.Time
}

// MinLiquidity returns the shallower of the two sides' ask liquidity.
func (o ArbitrageOpportunity) MinLiquidity() float64 {
	if o.YesLiquidity < o.NoLiquidity {
		return o.YesLiquidity
	}
	return o.NoLiquidity
}
