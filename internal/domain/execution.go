package domain

import "time"

// LegSide identifies which outcome token a leg buys.
type LegSide string

const (
	LegYes LegSide = "YES"
	LegNo  LegSide = "NO"
)

// ExecStatus is the terminal state of an order leg or a whole execution.
type ExecStatus string

const (
	ExecSuccess     ExecStatus = "success"
	ExecPartialFill ExecStatus = "partial_fill"
	ExecFailed      ExecStatus = "failed"
	ExecCancelled   ExecStatus = "cancelled"
)

// OrderResult is the terminal outcome of a single order leg.
type OrderResult struct {
	Success       bool
	OrderID       string
	Side          LegSide
	RequestedSize float64 // shares requested
	FilledSize    float64 // shares filled, <= RequestedSize
	FillPrice     float64
	Status        ExecStatus
	Error         string
}

// FillRatio returns FilledSize/RequestedSize, or 0 when nothing was
// requested.
func (r OrderResult) FillRatio() float64 {
	if r.RequestedSize == 0 {
		return 0
	}
	return r.FilledSize / r.RequestedSize
}

// ExecutionResult is the terminal outcome of one dual-leg arbitrage
// execution. Only ExecSuccess carries a non-negative LockedProfit; every
// other status carries zero profit and a non-empty Reason identifying which
// leg failed and why.
type ExecutionResult struct {
	Success      bool
	YesOrder     *OrderResult
	NoOrder      *OrderResult
	LockedProfit float64
	ActualCost   float64
	Status       ExecStatus
	Reason       string
	Timestamp    time.Time
	Duration     time.Duration
}
