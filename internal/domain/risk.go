package domain

import "time"

// TradeOutcome is one entry in the risk gate's bounded trade history.
type TradeOutcome struct {
	Timestamp time.Time
	Profit    float64
	Success   bool
}

// RiskSnapshot is a read-only view of the risk gate's internal state,
// exposed for the dashboard and notifier. Components never hold a live
// reference to the underlying state.
type RiskSnapshot struct {
	CanTrade             bool
	DailyPnL             float64
	WeeklyPnL            float64
	OpenPositions        int
	ConsecutiveLosses    int
	CircuitBreakerActive bool
	CircuitBreakerUntil  *time.Time
	MaxDailyLoss         float64
	MaxWeeklyLoss        float64
	MaxOpenPositions     int
}
