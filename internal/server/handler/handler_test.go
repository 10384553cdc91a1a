package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

type fakeRisk struct {
	snap     domain.RiskSnapshot
	deployed float64
}

func (f *fakeRisk) Snapshot() domain.RiskSnapshot { return f.snap }
func (f *fakeRisk) DeployedCapital() float64      { return f.deployed }

type fakeExec struct{ total, successful int }

func (f *fakeExec) Stats() (int, int) { return f.total, f.successful }

type fakeControl struct{ paused atomic.Bool }

func (f *fakeControl) Pause()       { f.paused.Store(true) }
func (f *fakeControl) Resume()      { f.paused.Store(false) }
func (f *fakeControl) Paused() bool { return f.paused.Load() }

type fakeTradeStore struct {
	trades []domain.TradeRecord
	err    error
	opts   domain.ListOpts
}

func (f *fakeTradeStore) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	f.opts = opts
	return f.trades, f.err
}

type fakeOppStore struct {
	opps []domain.OpportunityRecord
	err  error
}

func (f *fakeOppStore) ListRecent(context.Context, domain.ListOpts) ([]domain.OpportunityRecord, error) {
	return f.opps, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetStatus(t *testing.T) {
	risk := &fakeRisk{
		snap: domain.RiskSnapshot{
			CanTrade:          true,
			DailyPnL:          -3.5,
			OpenPositions:     2,
			ConsecutiveLosses: 1,
		},
		deployed: 40,
	}
	h := NewStatusHandler("sim", time.Now().Add(-time.Minute), risk, &fakeExec{total: 7, successful: 5}, &fakeControl{})

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Mode   string `json:"mode"`
		Paused bool   `json:"paused"`
		Risk   struct {
			CanTrade        bool    `json:"can_trade"`
			DailyPnL        float64 `json:"daily_pnl"`
			DeployedCapital float64 `json:"deployed_capital"`
		} `json:"risk"`
		Executions struct {
			Total      int `json:"total"`
			Successful int `json:"successful"`
		} `json:"executions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Mode != "sim" || body.Paused {
		t.Errorf("mode=%q paused=%v, want sim/false", body.Mode, body.Paused)
	}
	if !body.Risk.CanTrade || body.Risk.DailyPnL != -3.5 || body.Risk.DeployedCapital != 40 {
		t.Errorf("unexpected risk section: %+v", body.Risk)
	}
	if body.Executions.Total != 7 || body.Executions.Successful != 5 {
		t.Errorf("executions = %+v, want 7/5", body.Executions)
	}
}

func TestListTradesEmptyIsJSONArray(t *testing.T) {
	h := NewTradeHandler(&fakeTradeStore{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string][]domain.TradeRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["trades"] == nil {
		t.Error("trades should decode as an empty array, not null")
	}
}

func TestListTradesStoreError(t *testing.T) {
	h := NewTradeHandler(&fakeTradeStore{err: errors.New("boom")}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListTradesQueryParams(t *testing.T) {
	store := &fakeTradeStore{}
	h := NewTradeHandler(store, discardLogger())

	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet,
		"/api/trades?limit=9999&offset=10&since=2026-08-01", nil))

	if store.opts.Limit != 500 {
		t.Errorf("limit = %d, want clamped to 500", store.opts.Limit)
	}
	if store.opts.Offset != 10 {
		t.Errorf("offset = %d, want 10", store.opts.Offset)
	}
	if store.opts.Since == nil || !store.opts.Since.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v, want 2026-08-01", store.opts.Since)
	}
}

func TestListOpportunities(t *testing.T) {
	h := NewOpportunityHandler(&fakeOppStore{opps: []domain.OpportunityRecord{
		{ID: "opp-1", MarketID: "m1", NetMargin: 0.02},
	}}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string][]domain.OpportunityRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body["opportunities"]) != 1 || body["opportunities"][0].ID != "opp-1" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestControlPauseResume(t *testing.T) {
	ctrl := &fakeControl{}
	h := NewControlHandler(ctrl, discardLogger())

	rec := httptest.NewRecorder()
	h.Pause(rec, httptest.NewRequest(http.MethodPost, "/api/control/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", rec.Code)
	}
	if !ctrl.Paused() {
		t.Error("controller should be paused after Pause")
	}

	rec = httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodPost, "/api/control/resume", nil))
	if ctrl.Paused() {
		t.Error("controller should not be paused after Resume")
	}
}
