package domain

import "time"

// Market is an immutable snapshot of a binary prediction market, refreshed
// each scan cycle. The two outcome tokens are guaranteed to pay out a
// combined $1.00 at resolution.
type Market struct {
	ID         string
	Question   string
	Slug       string
	Active     bool
	YesTokenID string
	NoTokenID  string
	Volume     float64
	// EndDate is the declared or estimated resolution time. Nil when the
	// venue does not publish one; callers fall back to an assumed window.
	EndDate   *time.Time
	UpdatedAt time.Time
}

// IsBinary reports whether the market resolves to an explicit yes/no token
// pair. Markets without both token IDs cannot be arbitraged.
func (m Market) IsBinary() bool {
	return m.YesTokenID != "" && m.NoTokenID != ""
}

// TimeRemaining returns the time until resolution, clamped at zero. When the
// market carries no end date, fallback is returned instead.
func (m Market) TimeRemaining(now time.Time, fallback time.Duration) time.Duration {
	if m.EndDate == nil {
		return fallback
	}
	rem := m.EndDate.Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}
