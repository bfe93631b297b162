// Package alpaca implements gateway.Gateway over the Alpaca market data and
// trading APIs. Quotes come from snapshots, news from the news endpoint, and
// symbol search and profiles from the tradable asset list.
package alpaca

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
	"marketdash/internal/util"
)

// MarketData is the subset of *marketdata.Client used by the gateway.
type MarketData interface {
	GetSnapshot(symbol string, req marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error)
	GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

// Trading is the subset of *alpacaapi.Client used by the gateway.
type Trading interface {
	GetAssets(req alpacaapi.GetAssetsRequest) ([]alpacaapi.Asset, error)
	GetAsset(symbol string) (*alpacaapi.Asset, error)
}

// Config configures a Client.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // trading API
	DataURL   string // market data API
	Feed      string // "iex" or "sip"
	Retries   int
	NewsLimit int
}

// Client is an Alpaca-backed gateway.
type Client struct {
	md        MarketData
	assets    *assetIndex
	feed      string
	retries   int
	newsLimit int
	log       *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New creates an Alpaca gateway from credentials.
func New(cfg Config) *Client {
	mdOpts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		mdOpts.BaseURL = cfg.DataURL
	}
	trOpts := alpacaapi.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		trOpts.BaseURL = cfg.BaseURL
	}
	return NewWithClients(marketdata.NewClient(mdOpts), alpacaapi.NewClient(trOpts), cfg)
}

// NewWithClients creates a gateway over existing API clients.
func NewWithClients(md MarketData, tr Trading, cfg Config) *Client {
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 20
	}
	return &Client{
		md:        md,
		assets:    newAssetIndex(tr, time.Hour),
		feed:      cfg.Feed,
		retries:   cfg.Retries,
		newsLimit: cfg.NewsLimit,
		log:       slog.Default().With("gateway", "alpaca"),
	}
}

// Quote implements gateway.Gateway. The latest trade price is the current
// price when present, otherwise the daily bar close.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if symbol == "" {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	var snap *marketdata.Snapshot
	err := c.call(ctx, "quote", symbol, func() error {
		s, err := withContext(ctx, func() (*marketdata.Snapshot, error) {
			return c.md.GetSnapshot(symbol, marketdata.GetSnapshotRequest{Feed: c.feed})
		})
		snap = s
		return err
	})
	if err != nil {
		return domain.Quote{}, err
	}
	q, ok := quoteFromSnapshot(snap)
	if !ok {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonInvalidSymbol, errors.New("no snapshot data"))
	}
	return q, nil
}

// GeneralNews implements gateway.Gateway with an unfiltered news query.
func (c *Client) GeneralNews(ctx context.Context) ([]domain.NewsItem, error) {
	return c.news(ctx, "general_news", "", marketdata.GetNewsRequest{
		TotalLimit: c.newsLimit,
		Sort:       marketdata.SortDesc,
	})
}

// CompanyNews implements gateway.Gateway. The window covers the whole UTC
// calendar days of from and to.
func (c *Client) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	if symbol == "" {
		return nil, gateway.Fail("company_news", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	start, end := dayWindow(from, to)
	return c.news(ctx, "company_news", symbol, marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      start,
		End:        end,
		TotalLimit: c.newsLimit,
		Sort:       marketdata.SortDesc,
	})
}

func (c *Client) news(ctx context.Context, op, symbol string, req marketdata.GetNewsRequest) ([]domain.NewsItem, error) {
	var raw []marketdata.News
	err := c.call(ctx, op, symbol, func() error {
		n, err := withContext(ctx, func() ([]marketdata.News, error) {
			return c.md.GetNews(req)
		})
		raw = n
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.NewsItem, 0, len(raw))
	for _, n := range raw {
		out = append(out, convertNews(n))
	}
	return out, nil
}

// SearchSymbols implements gateway.Gateway over the active asset list.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	var out []domain.SymbolMatch
	err := c.call(ctx, "search", "", func() error {
		m, err := c.assets.search(ctx, query, 20)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompanyProfile implements gateway.Gateway. Alpaca has no company
// fundamentals, so the profile carries only the asset name and exchange.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	if symbol == "" {
		return nil, gateway.Fail("profile", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	var asset *alpacaapi.Asset
	err := c.call(ctx, "profile", symbol, func() error {
		a, err := c.assets.get(ctx, symbol)
		asset = a
		return err
	})
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, nil
	}
	return &domain.CompanyProfile{
		Ticker:   asset.Symbol,
		Name:     asset.Name,
		Exchange: string(asset.Exchange),
		Currency: "USD",
		Country:  "US",
	}, nil
}

func (c *Client) call(ctx context.Context, op, symbol string, fn func() error) error {
	err := util.RetryIf(ctx, c.retries+1, 250*time.Millisecond, gateway.IsRetryable, func() error {
		if err := fn(); err != nil {
			f := classify(op, symbol, err)
			if gateway.IsRetryable(f) {
				c.log.Debug("retrying request", "op", op, "symbol", symbol, "error", f)
			}
			return f
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var f *gateway.Failure
	if errors.As(err, &f) {
		return f
	}
	return gateway.Fail(op, symbol, gateway.ReasonUnknown, err)
}

func classify(op, symbol string, err error) *gateway.Failure {
	var apiErr *alpacaapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return gateway.Fail(op, symbol, gateway.ReasonFromStatus(apiErr.StatusCode), err)
	}
	return gateway.Fail(op, symbol, gateway.ReasonUnknown, err)
}

// withContext runs fn, returning early with ctx's error if ctx ends first.
// The Alpaca SDK takes no context, so an abandoned call finishes in the
// background and its result is dropped.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func quoteFromSnapshot(s *marketdata.Snapshot) (domain.Quote, bool) {
	if s == nil || (s.DailyBar == nil && s.LatestTrade == nil) {
		return domain.Quote{}, false
	}
	var q domain.Quote
	if b := s.DailyBar; b != nil {
		q.Open = b.Open
		q.High = b.High
		q.Low = b.Low
		q.Current = b.Close
		q.Volume = int64(b.Volume)
		q.Timestamp = b.Timestamp.UTC()
	}
	if t := s.LatestTrade; t != nil && t.Price > 0 {
		q.Current = t.Price
		q.Timestamp = t.Timestamp.UTC()
	}
	if p := s.PrevDailyBar; p != nil {
		q.PreviousClose = p.Close
	}
	return q, true
}

func convertNews(n marketdata.News) domain.NewsItem {
	return domain.NewsItem{
		ID:          strconv.Itoa(n.ID),
		Headline:    n.Headline,
		Summary:     StripHTML(n.Summary),
		Source:      newsSource(n.Author),
		URL:         n.URL,
		Image:       pickImage(n.Images),
		PublishedAt: n.CreatedAt.UTC(),
	}
}

// newsSource labels a story by its byline. Alpaca's feed is syndicated from
// Benzinga, which is used when the author is missing.
func newsSource(author string) string {
	if author = strings.TrimSpace(author); author != "" {
		return author
	}
	return "Benzinga"
}

// pickImage prefers the small rendition, then thumb, then any.
func pickImage(images []marketdata.NewsImage) string {
	for _, size := range []string{"small", "thumb"} {
		for _, img := range images {
			if img.Size == size && img.URL != "" {
				return img.URL
			}
		}
	}
	for _, img := range images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// dayWindow widens [from, to] to cover both UTC calendar days entirely.
func dayWindow(from, to time.Time) (time.Time, time.Time) {
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second)
	return start, end
}
