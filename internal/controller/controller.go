// Package controller implements the market data view-model: it owns quotes,
// news, search and selection state, drives them from a gateway.Gateway and
// publishes immutable snapshots to subscribers.
//
// All state lives behind one mutex. Every mutation replaces the affected
// field wholesale and publishes a new Snapshot before the lock is released,
// so subscribers observe mutations in order and never see a torn state.
// Asynchronous results are tagged with the run, search or selection
// generation current when they were issued and are dropped on arrival if a
// later operation of the same kind superseded them.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

var (
	ErrEmptyWatchlist  = errors.New("watchlist is empty")
	ErrInvalidInterval = errors.New("refresh interval must be positive")
)

// Operation names used in error reports.
const (
	OpNews   = "news"
	OpSearch = "search"
	OpSelect = "select"
)

// Options tunes the controller. Zero fields take the defaults noted.
type Options struct {
	NewsLimit        int           // general news cap, default 6
	SearchLimit      int           // search result cap, default 5
	MinSearchLength  int           // shorter terms never hit the gateway, default 2
	DetailNewsLimit  int           // company news cap on the detail, default 5
	DetailNewsWindow time.Duration // company news lookback, default 7 days
	Now              func() time.Time
	Logger           *slog.Logger
}

func (o *Options) withDefaults() {
	if o.NewsLimit <= 0 {
		o.NewsLimit = 6
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 5
	}
	if o.MinSearchLength <= 0 {
		o.MinSearchLength = 2
	}
	if o.DetailNewsLimit <= 0 {
		o.DetailNewsLimit = 5
	}
	if o.DetailNewsWindow <= 0 {
		o.DetailNewsWindow = 7 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Controller is the market data view-model.
type Controller struct {
	gw   gateway.Gateway
	opts Options
	log  *slog.Logger

	mu            sync.Mutex
	run           *refreshRun
	watchlist     []string
	quotes        domain.QuoteSet
	stale         []string
	news          []domain.NewsItem
	lastRefresh   time.Time
	searchTerm    string
	searchResults []domain.SymbolMatch
	selected      *domain.StockDetail
	lastError     *ErrorReport
	searchSeq     uint64
	selectSeq     uint64
	version       uint64

	nextSubID int
	subs      map[int]chan Snapshot

	current atomic.Pointer[Snapshot]
}

// New creates a controller reading from gw. The controller is idle until
// Start; Search and SelectSymbol work without a running refresh loop.
func New(gw gateway.Gateway, opts Options) *Controller {
	opts.withDefaults()
	c := &Controller{
		gw:     gw,
		opts:   opts,
		log:    opts.Logger.With("component", "controller"),
		quotes: domain.QuoteSet{},
		subs:   make(map[int]chan Snapshot),
	}
	snap := c.buildLocked()
	c.current.Store(&snap)
	return c
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

// Search records term as the current search term and, when it is long
// enough, queries the gateway. It returns once the result has been applied
// or discarded. Only the most recently issued search may change the results.
func (c *Controller) Search(ctx context.Context, term string) {
	c.mu.Lock()
	c.searchSeq++
	seq := c.searchSeq
	c.searchTerm = term
	if len([]rune(term)) < c.opts.MinSearchLength {
		c.searchResults = nil
		c.publishLocked()
		c.mu.Unlock()
		return
	}
	c.publishLocked()
	c.mu.Unlock()

	matches, err := c.gw.SearchSymbols(ctx, term)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.searchSeq {
		c.log.Debug("discarding superseded search", "term", term)
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("search failed", "term", term, "error", err)
		c.setErrorLocked(OpSearch, "", err)
		c.publishLocked()
		return
	}
	c.searchResults = truncate(matches, c.opts.SearchLimit)
	c.clearErrorLocked(OpSearch)
	c.publishLocked()
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// SelectSymbol closes the search and loads the quote, profile and recent
// news for symbol concurrently. The detail replaces the current selection
// only if all three succeed and no later SelectSymbol or ClearSelection was
// issued in the meantime; otherwise the selection is left as it was.
func (c *Controller) SelectSymbol(ctx context.Context, symbol string) {
	symbol = strings.TrimSpace(symbol)

	c.mu.Lock()
	c.searchSeq++
	c.searchTerm = ""
	c.searchResults = nil
	c.selectSeq++
	seq := c.selectSeq
	c.publishLocked()
	c.mu.Unlock()

	var (
		detail *domain.StockDetail
		err    error
	)
	if symbol == "" {
		err = gateway.Fail(OpSelect, "", gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	} else {
		detail, err = c.fetchDetail(ctx, symbol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.selectSeq {
		c.log.Debug("discarding superseded selection", "symbol", symbol)
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("selection failed", "symbol", symbol, "error", err)
		c.setErrorLocked(OpSelect, symbol, err)
		c.publishLocked()
		return
	}
	c.selected = detail
	c.clearErrorLocked(OpSelect)
	c.publishLocked()
}

// ClearSelection drops the current selection and any selection in flight.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectSeq++
	if c.selected == nil {
		return
	}
	c.selected = nil
	c.publishLocked()
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func (c *Controller) setErrorLocked(op, symbol string, err error) {
	report := &ErrorReport{
		Op:      op,
		Symbol:  symbol,
		Reason:  gateway.ReasonOf(err),
		Message: err.Error(),
		At:      c.opts.Now(),
	}
	var f *gateway.Failure
	if report.Symbol == "" && errors.As(err, &f) {
		report.Symbol = f.Symbol
	}
	c.lastError = report
}

func (c *Controller) clearErrorLocked(op string) {
	if c.lastError != nil && c.lastError.Op == op {
		c.lastError = nil
	}
}

// truncate copies at most n leading items of s into a new slice.
func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
