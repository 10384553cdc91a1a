package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// TradeLister is the narrow store surface the handler requires.
type TradeLister interface {
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error)
}

// TradeHandler serves trade-history queries.
type TradeHandler struct {
	store  TradeLister
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(store TradeLister, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{store: store, logger: logger}
}

// ListTrades returns recent trade records, newest first.
// GET /api/trades?limit=50&offset=0&since=2026-08-01
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	// Modes without persistence serve an empty history.
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"trades": []domain.TradeRecord{}})
		return
	}

	trades, err := h.store.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
