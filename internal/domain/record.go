package domain

import "time"

// StrategyYesNoArbitrage is the strategy tag written to persisted records.
const StrategyYesNoArbitrage = "yes_no_arbitrage"

// TradeRecord is the persisted outcome of one execution attempt.
type TradeRecord struct {
	ID             string
	Timestamp      time.Time
	MarketID       string
	MarketName     string
	Strategy       string
	ExpectedProfit float64
	ActualProfit   float64
	Cost           float64
	Status         ExecStatus
	Reason         string
	Success        bool
	Simulated      bool
}

// OpportunityRecord is the persisted form of a discovered opportunity,
// whether or not it was ultimately executed.
type OpportunityRecord struct {
	ID            string
	DiscoveredAt  time.Time
	MarketID      string
	MarketName    string
	Strategy      string
	YesAsk        float64
	NoAsk         float64
	CombinedPrice float64
	GrossMargin   float64
	NetMargin     float64
	Score         float64
	Executed      bool
}
