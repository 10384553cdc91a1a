package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for one outcome
// token. Bids are ordered best (highest) first, asks best (lowest) first.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or 0 when the bid side is empty.
func (s OrderbookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when the ask side is empty.
func (s OrderbookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// AskLiquidity sums price*size over the top depth ask levels, i.e. the
// dollar notional visible for buying.
func (s OrderbookSnapshot) AskLiquidity(depth int) float64 {
	var total float64
	for i, lvl := range s.Asks {
		if i >= depth {
			break
		}
		total += lvl.Price * lvl.Size
	}
	return total
}

// Spread returns the relative bid-ask spread (best_ask - best_bid)/best_ask.
// It returns 1.0 when either side is empty, the maximum possible spread.
func (s OrderbookSnapshot) Spread() float64 {
	bid, ask := s.BestBid(), s.BestAsk()
	if bid == 0 || ask == 0 {
		return 1.0
	}
	return (ask - bid) / ask
}
