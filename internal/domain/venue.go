package domain

import "context"

// Balance is the venue account balance in dollars.
type Balance struct {
	Total     float64
	Available float64
}

// OrderRequest describes a single limit buy order for one outcome token.
// Size is the dollar notional to spend; the venue converts it to shares at
// the limit price.
type OrderRequest struct {
	TokenID string
	Side    LegSide
	Size    float64
	Price   float64
}

// VenueClient is the abstract exchange capability the core trades through.
// Implementations exist for the live venue and for simulation; the scanner
// and executor are unaware of which is in effect. Every method is a network
// call that can fail or time out, so every call site treats it as fallible.
type VenueClient interface {
	GetMarkets(ctx context.Context) ([]Market, error)
	GetOrderbook(ctx context.Context, tokenID string) (OrderbookSnapshot, error)
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetBalance(ctx context.Context) (Balance, error)
}
