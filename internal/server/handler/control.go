package handler

import (
	"log/slog"
	"net/http"
)

// ControlHandler serves operator pause/resume commands for the trading loop.
type ControlHandler struct {
	control Controller
	logger  *slog.Logger
}

// NewControlHandler creates a ControlHandler.
func NewControlHandler(control Controller, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{control: control, logger: logger}
}

// Pause stops the loop from opening new positions. In-flight executions are
// not interrupted.
// POST /api/control/pause
func (h *ControlHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control.Pause()
	h.logger.InfoContext(r.Context(), "handler: trading paused by operator")
	writeJSON(w, http.StatusOK, map[string]any{"paused": true})
}

// Resume re-enables trading.
// POST /api/control/resume
func (h *ControlHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control.Resume()
	h.logger.InfoContext(r.Context(), "handler: trading resumed by operator")
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}
