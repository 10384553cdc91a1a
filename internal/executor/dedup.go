package executor

import (
	"sync"
	"time"
)

// Dedup prevents the same market from being executed more than once within a
// configurable time-to-live window. Opportunities for a market that was just
// traded (or just failed) are skipped until the window elapses. It is safe
// for concurrent use.
type Dedup struct {
	seen map[string]time.Time // marketID -> last attempt time
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup instance that considers a market a duplicate if
// an execution was attempted within the given ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate returns true if an execution for marketID was attempted within
// the TTL window. If the market has not been seen (or has expired), it is
// recorded and false is returned.
func (d *Dedup) IsDuplicate(marketID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if lastSeen, ok := d.seen[marketID]; ok {
		if now.Sub(lastSeen) < d.ttl {
			return true
		}
	}

	d.seen[marketID] = now
	return false
}

// Cleanup removes entries that have expired beyond the TTL. This should be
// called periodically to prevent unbounded memory growth.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
