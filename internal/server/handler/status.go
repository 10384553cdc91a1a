package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// RiskReporter exposes the risk gate's read-only state.
type RiskReporter interface {
	Snapshot() domain.RiskSnapshot
	DeployedCapital() float64
}

// ExecReporter exposes execution counters.
type ExecReporter interface {
	Stats() (total, successful int)
}

// Controller exposes the trading loop's pause switch.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
}

// StatusHandler serves the aggregate bot status for the dashboard.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	risk      RiskReporter
	exec      ExecReporter
	control   Controller
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, startedAt time.Time, risk RiskReporter, exec ExecReporter, control Controller) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		risk:      risk,
		exec:      exec,
		control:   control,
	}
}

// GetStatus responds with the mode, uptime, pause state, risk snapshot, and
// execution counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.risk.Snapshot()
	total, successful := h.exec.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"strategy":       domain.StrategyYesNoArbitrage,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"paused":         h.control.Paused(),
		"risk": map[string]any{
			"can_trade":              snap.CanTrade,
			"daily_pnl":              snap.DailyPnL,
			"weekly_pnl":             snap.WeeklyPnL,
			"open_positions":         snap.OpenPositions,
			"deployed_capital":       h.risk.DeployedCapital(),
			"consecutive_losses":     snap.ConsecutiveLosses,
			"circuit_breaker_active": snap.CircuitBreakerActive,
			"circuit_breaker_until":  snap.CircuitBreakerUntil,
		},
		"executions": map[string]any{
			"total":      total,
			"successful": successful,
		},
	})
}
