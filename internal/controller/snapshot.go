package controller

import (
	"time"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

// Snapshot is an immutable copy of the controller state. Its maps and slices
// are never modified after publication and must be treated as read-only.
type Snapshot struct {
	Version       uint64               `json:"version"`
	Running       bool                 `json:"running"`
	Watchlist     []string             `json:"watchlist"`
	Quotes        domain.QuoteSet      `json:"quotes"`
	StaleSymbols  []string             `json:"staleSymbols,omitempty"`
	News          []domain.NewsItem    `json:"news"`
	LastRefresh   time.Time            `json:"lastRefresh"`
	SearchTerm    string               `json:"searchTerm"`
	SearchResults []domain.SymbolMatch `json:"searchResults"`
	Selected      *domain.StockDetail  `json:"selected,omitempty"`
	LastError     *ErrorReport         `json:"lastError,omitempty"`
}

// IsStale reports whether symbol's quote is a retained value from an earlier
// refresh because its latest fetch failed.
func (s Snapshot) IsStale(symbol string) bool {
	for _, sym := range s.StaleSymbols {
		if sym == symbol {
			return true
		}
	}
	return false
}

// ErrorReport describes the most recent failed news, search or selection
// request. It is cleared when the same operation next succeeds.
type ErrorReport struct {
	Op      string         `json:"op"`
	Symbol  string         `json:"symbol,omitempty"`
	Reason  gateway.Reason `json:"reason"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() Snapshot {
	return *c.current.Load()
}

// Subscribe registers a subscriber and returns its ID and channel. The
// current snapshot is queued immediately. When the subscriber falls behind,
// the oldest queued snapshot is dropped so the newest is always delivered.
func (c *Controller) Subscribe(bufSize int) (int, <-chan Snapshot) {
	if bufSize < 1 {
		bufSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Snapshot, bufSize)
	ch <- *c.current.Load()
	c.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (c *Controller) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
}

// buildLocked assembles a snapshot from the current fields. Fields are
// shared, not copied: every mutation assigns a fresh value instead of
// writing into the old one.
func (c *Controller) buildLocked() Snapshot {
	return Snapshot{
		Version:       c.version,
		Running:       c.run != nil,
		Watchlist:     orEmpty(c.watchlist),
		Quotes:        c.quotes,
		StaleSymbols:  c.stale,
		News:          orEmpty(c.news),
		LastRefresh:   c.lastRefresh,
		SearchTerm:    c.searchTerm,
		SearchResults: orEmpty(c.searchResults),
		Selected:      c.selected,
		LastError:     c.lastError,
	}
}

// publishLocked stores a new snapshot and queues it to every subscriber.
// Callers hold c.mu, which keeps publication order equal to mutation order.
func (c *Controller) publishLocked() {
	c.version++
	snap := c.buildLocked()
	c.current.Store(&snap)

	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: drop the oldest queued snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
