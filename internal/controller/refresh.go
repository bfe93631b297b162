package controller

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

// refreshRun is one Start..Stop lifetime of the polling loop. Results are
// applied only while the run is still the controller's current run.
type refreshRun struct {
	watchlist []string
	interval  time.Duration
	cancel    context.CancelFunc
}

// RefreshHandle controls a running refresh loop.
type RefreshHandle struct {
	c   *Controller
	run *refreshRun
}

// Stop cancels the loop started with this handle. It is a no-op when the
// loop was already stopped or replaced by a later Start.
func (h *RefreshHandle) Stop() {
	h.c.stopRun(h.run)
}

type quoteResult struct {
	symbol string
	quote  domain.Quote
	err    error
}

// Start resets quotes and news, refreshes them immediately and then every
// interval until Stop. Starting while running replaces the previous loop.
func (c *Controller) Start(ctx context.Context, watchlist []string, interval time.Duration) (*RefreshHandle, error) {
	symbols := normalizeWatchlist(watchlist)
	if len(symbols) == 0 {
		return nil, ErrEmptyWatchlist
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &refreshRun{watchlist: symbols, interval: interval, cancel: cancel}

	c.mu.Lock()
	if c.run != nil {
		c.stopLocked()
	}
	c.run = run
	c.watchlist = symbols
	c.quotes = domain.QuoteSet{}
	c.stale = nil
	c.news = nil
	c.lastRefresh = time.Time{}
	c.publishLocked()
	c.mu.Unlock()

	c.log.Info("refresh loop started", "symbols", strings.Join(symbols, ","), "interval", interval)
	go c.loop(runCtx, run)

	return &RefreshHandle{c: c, run: run}, nil
}

// Stop cancels the refresh loop and clears the selection. Results of work in
// flight are discarded when they arrive. Calling Stop when idle is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return
	}
	c.stopLocked()
}

func (c *Controller) stopRun(run *refreshRun) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		return
	}
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.run.cancel()
	c.run = nil
	c.selectSeq++
	c.selected = nil
	c.publishLocked()
	c.log.Info("refresh loop stopped")
}

// loop runs one refresh immediately and then one per tick. Refreshes never
// overlap: ticks that fire during a slow refresh are coalesced by the ticker.
// When the context passed to Start ends, the run is stopped as if by Stop.
func (c *Controller) loop(ctx context.Context, run *refreshRun) {
	defer c.stopRun(run)

	c.refresh(ctx, run)

	ticker := time.NewTicker(run.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx, run)
		}
	}
}

// refresh fetches every watch-list quote and the general news concurrently.
// Quotes are merged per symbol once all have settled; news is applied as
// soon as it arrives. It returns when both are done.
func (c *Controller) refresh(ctx context.Context, run *refreshRun) {
	if ctx.Err() != nil {
		return
	}
	c.log.Debug("refresh cycle", "symbols", len(run.watchlist))

	newsDone := make(chan struct{})
	go func() {
		defer close(newsDone)
		items, err := c.gw.GeneralNews(ctx)
		c.applyNews(ctx, run, items, err)
	}()

	results := make([]quoteResult, len(run.watchlist))
	var g errgroup.Group
	for i, sym := range run.watchlist {
		g.Go(func() error {
			q, err := c.gw.Quote(ctx, sym)
			results[i] = quoteResult{symbol: sym, quote: q, err: err}
			// Per-symbol failures are merged below, never abort the batch.
			return nil
		})
	}
	_ = g.Wait()
	c.applyQuotes(run, results)

	<-newsDone
}

// applyQuotes builds the next QuoteSet: fresh values where the fetch
// succeeded, the previous value where it failed.
func (c *Controller) applyQuotes(run *refreshRun, results []quoteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		c.log.Debug("discarding quotes from stopped refresh")
		return
	}

	next := make(domain.QuoteSet, len(results))
	var stale []string
	fresh := 0
	for _, r := range results {
		if r.err == nil {
			next[r.symbol] = r.quote
			fresh++
			continue
		}
		c.log.Warn("quote refresh failed",
			"symbol", r.symbol,
			"reason", gateway.ReasonOf(r.err).String(),
			"error", r.err,
		)
		if prev, ok := c.quotes[r.symbol]; ok {
			next[r.symbol] = prev
			stale = append(stale, r.symbol)
		}
	}

	if fresh == 0 && slices.Equal(stale, c.stale) {
		return
	}
	c.quotes = next
	c.stale = stale
	if fresh > 0 {
		c.lastRefresh = c.opts.Now()
	}
	c.publishLocked()
}

func (c *Controller) applyNews(ctx context.Context, run *refreshRun, items []domain.NewsItem, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		c.log.Debug("discarding news from stopped refresh")
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("news refresh failed", "error", err)
		c.setErrorLocked(OpNews, "", err)
		c.publishLocked()
		return
	}
	c.news = truncate(items, c.opts.NewsLimit)
	c.clearErrorLocked(OpNews)
	c.publishLocked()
}

// normalizeWatchlist trims symbols and drops blanks and duplicates, keeping
// the first-seen order.
func normalizeWatchlist(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
