package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`       // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	ClobTokenIDs  string   `json:"clobTokenIds"`   // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume        string   `json:"volume"`
	EndDateISO    string   `json:"endDateIso"`
	UpdatedAt     string   `json:"updatedAt"`
	EnableOrderBook bool   `json:"enableOrderBook"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market. The first
// CLOB token ID maps to the "Yes" outcome and the second to "No"; when the
// outcomes array disagrees with that order the tokens are swapped to match.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:       m.ID,
		Question: m.Question,
		Slug:     m.Slug,
		Active:   bool(m.Active) && !m.Closed,
	}

	var tokenIDs []string
	_ = json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs)
	var outcomes []string
	_ = json.Unmarshal([]byte(m.Outcomes), &outcomes)

	if len(tokenIDs) == 2 {
		dm.YesTokenID, dm.NoTokenID = tokenIDs[0], tokenIDs[1]
		if len(outcomes) == 2 && strings.EqualFold(outcomes[0], "No") {
			dm.YesTokenID, dm.NoTokenID = tokenIDs[1], tokenIDs[0]
		}
	}

	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		dm.Volume = v
	}
	if m.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			dm.EndDate = &t
		}
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		dm.UpdatedAt = t
	}

	return dm
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is the REST orderbook response from GET /book.
type APIBook struct {
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// APIPriceLevel is a single bid/ask level with string-encoded numbers.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainSnapshot converts an APIBook to a domain.OrderbookSnapshot. The
// CLOB API returns bids ascending and asks descending, so both sides are
// reordered best-first.
func (b *APIBook) ToDomainSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{AssetID: b.AssetID}

	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
	}
	sortLevels(snap.Bids, false)
	sortLevels(snap.Asks, true)

	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ts)
	} else {
		snap.Timestamp = time.Now()
	}
	return snap
}

// sortLevels orders levels best-first: ascending price for asks, descending
// for bids. Insertion sort; books are a handful of levels.
func sortLevels(levels []domain.PriceLevel, ascending bool) {
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0; j-- {
			swap := levels[j].Price < levels[j-1].Price
			if !ascending {
				swap = levels[j].Price > levels[j-1].Price
			}
			if !swap {
				break
			}
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg,omitempty"`
	OrderID      string `json:"orderID,omitempty"`
	Status       string `json:"status,omitempty"`
	MakingAmount string `json:"makingAmount,omitempty"` // collateral spent
	TakingAmount string `json:"takingAmount,omitempty"` // shares received
}

// ToDomainOrderResult converts an APIOrderResult for a buy of the requested
// share quantity. A "matched" status means the order crossed immediately;
// anything else that succeeded is resting and counts as a partial fill until
// cancelled or matched.
func (r *APIOrderResult) ToDomainOrderResult(side domain.LegSide, requestedShares float64) domain.OrderResult {
	result := domain.OrderResult{
		Success:       r.Success,
		OrderID:       r.OrderID,
		Side:          side,
		RequestedSize: requestedShares,
		Error:         r.ErrorMsg,
	}

	making, _ := strconv.ParseFloat(r.MakingAmount, 64)
	taking, _ := strconv.ParseFloat(r.TakingAmount, 64)
	if taking > 0 {
		result.FilledSize = taking
		result.FillPrice = making / taking
	}

	switch {
	case !r.Success:
		result.Status = domain.ExecFailed
	case r.Status == "matched":
		result.Status = domain.ExecSuccess
	default:
		result.Status = domain.ExecPartialFill
	}
	return result
}

// APIBalance is the response from GET /balance-allowance.
type APIBalance struct {
	Balance string `json:"balance"`
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// BookMessage is a full orderbook snapshot delivered over WebSocket. It has
// the same shape as the REST book response plus an event type.
type BookMessage struct {
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []APIPriceLevel `json:"bids"`
	Asks      []APIPriceLevel `json:"asks"`
	Timestamp string          `json:"timestamp"`
	Hash      string          `json:"hash"`
}

// ToDomainSnapshot converts a BookMessage to a domain.OrderbookSnapshot.
func (b *BookMessage) ToDomainSnapshot() domain.OrderbookSnapshot {
	book := APIBook{
		AssetID:   b.AssetID,
		Market:    b.Market,
		Bids:      b.Bids,
		Asks:      b.Asks,
		Timestamp: b.Timestamp,
	}
	return book.ToDomainSnapshot()
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}
