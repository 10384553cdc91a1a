package polymarket

import (
	"testing"

	"github.com/alanyoungcy/arbot/internal/domain"
)

func TestAPIMarketTokenMapping(t *testing.T) {
	m := APIMarket{
		ID:           "0xabc",
		Question:     "Will BTC be above $100k in 15 min?",
		Active:       true,
		ClobTokenIDs: `["111","222"]`,
		Outcomes:     `["Yes","No"]`,
		Volume:       "1234.5",
		EndDateISO:   "2026-03-01T12:15:00Z",
	}

	dm := m.ToDomainMarket()
	if dm.YesTokenID != "111" || dm.NoTokenID != "222" {
		t.Errorf("tokens = %s/%s, want 111/222", dm.YesTokenID, dm.NoTokenID)
	}
	if !dm.Active || !dm.IsBinary() {
		t.Error("market should be active and binary")
	}
	if dm.Volume != 1234.5 {
		t.Errorf("volume = %v, want 1234.5", dm.Volume)
	}
	if dm.EndDate == nil {
		t.Fatal("end date not parsed")
	}

	// Outcomes listed No-first swap the token assignment.
	m.Outcomes = `["No","Yes"]`
	dm = m.ToDomainMarket()
	if dm.YesTokenID != "222" || dm.NoTokenID != "111" {
		t.Errorf("tokens = %s/%s, want swapped 222/111", dm.YesTokenID, dm.NoTokenID)
	}

	// String-typed active flag from the API.
	var fb flexBool
	if err := fb.UnmarshalJSON([]byte(`"true"`)); err != nil || !bool(fb) {
		t.Errorf("flexBool(\"true\") = %v, %v", fb, err)
	}

	// Closed markets are never active.
	m.Closed = true
	if m.ToDomainMarket().Active {
		t.Error("closed market must not be active")
	}
}

func TestAPIBookOrdering(t *testing.T) {
	b := APIBook{
		AssetID: "111",
		// Asks arrive worst-first, bids arrive worst-first.
		Asks: []APIPriceLevel{
			{Price: "0.49", Size: "100"},
			{Price: "0.47", Size: "50"},
			{Price: "0.48", Size: "75"},
		},
		Bids: []APIPriceLevel{
			{Price: "0.44", Size: "100"},
			{Price: "0.46", Size: "50"},
		},
		Timestamp: "1767268800000",
	}

	snap := b.ToDomainSnapshot()
	if snap.BestAsk() != 0.47 {
		t.Errorf("best ask = %v, want 0.47", snap.BestAsk())
	}
	if snap.BestBid() != 0.46 {
		t.Errorf("best bid = %v, want 0.46", snap.BestBid())
	}
	if snap.Asks[1].Price != 0.48 || snap.Asks[2].Price != 0.49 {
		t.Errorf("asks not sorted ascending: %+v", snap.Asks)
	}
	if snap.Timestamp.IsZero() {
		t.Error("timestamp not parsed")
	}
}

func TestAPIOrderResultMapping(t *testing.T) {
	matched := APIOrderResult{
		Success:      true,
		OrderID:      "ord-1",
		Status:       "matched",
		MakingAmount: "20",
		TakingAmount: "42.55",
	}
	r := matched.ToDomainOrderResult(domain.LegYes, 42.55)
	if !r.Success || r.Status != domain.ExecSuccess {
		t.Errorf("result = %+v, want matched success", r)
	}
	if r.FilledSize != 42.55 {
		t.Errorf("filled = %v, want 42.55", r.FilledSize)
	}
	if r.FillPrice < 0.46 || r.FillPrice > 0.48 {
		t.Errorf("fill price = %v, want about 0.47", r.FillPrice)
	}

	rejected := APIOrderResult{Success: false, ErrorMsg: "not enough balance"}
	r = rejected.ToDomainOrderResult(domain.LegNo, 10)
	if r.Success || r.Status != domain.ExecFailed || r.Error == "" {
		t.Errorf("result = %+v, want failed with error", r)
	}

	resting := APIOrderResult{Success: true, OrderID: "ord-2", Status: "live"}
	r = resting.ToDomainOrderResult(domain.LegNo, 10)
	if r.Status != domain.ExecPartialFill {
		t.Errorf("status = %v, want partial_fill for resting order", r.Status)
	}
}
