package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// OpportunityLister is the narrow store surface the handler requires.
type OpportunityLister interface {
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.OpportunityRecord, error)
}

// OpportunityHandler serves discovered-opportunity queries.
type OpportunityHandler struct {
	store  OpportunityLister
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(store OpportunityLister, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{store: store, logger: logger}
}

// ListOpportunities returns recent opportunities, newest first.
// GET /api/opportunities?limit=50&offset=0&since=2026-08-01
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	// Modes without persistence serve an empty history.
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"opportunities": []domain.OpportunityRecord{}})
		return
	}

	opps, err := h.store.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.OpportunityRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}
