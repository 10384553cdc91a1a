package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrDataUnavailable marks a failed market or orderbook fetch. Scans
	// skip the affected market and continue.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrStaleOpportunity is returned by the executor's preflight when the
	// opportunity is no longer profitable. No orders have been placed.
	ErrStaleOpportunity = errors.New("opportunity no longer profitable")

	// ErrRiskLimited marks a trade denied by the risk gate. This is routine
	// throttling, not a fault.
	ErrRiskLimited = errors.New("risk limit exceeded")

	// ErrCircuitBreakerActive marks trading paused after consecutive losses.
	ErrCircuitBreakerActive = errors.New("circuit breaker active")

	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrLockHeld      = errors.New("lock already held")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
)
