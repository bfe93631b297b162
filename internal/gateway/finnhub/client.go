// Package finnhub implements gateway.Gateway over the Finnhub REST API.
package finnhub

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	fh "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
	"marketdash/internal/util"
)

// DefaultBaseURL is the public Finnhub v1 endpoint.
const DefaultBaseURL = "https://finnhub.io/api/v1"

// Config configures a Client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Retries    int           // extra attempts for network failures
	RetryDelay time.Duration // first backoff delay
	HTTPClient *http.Client  // overrides Timeout when set
}

// Client is a Finnhub-backed gateway.
type Client struct {
	api        *fh.DefaultApiService
	retries    int
	retryDelay time.Duration
	log        *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a Finnhub gateway. The API key is sent as the X-Finnhub-Token
// header on every request.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	fcfg := fh.NewConfiguration()
	fcfg.Servers = fh.ServerConfigurations{{URL: strings.TrimRight(cfg.BaseURL, "/")}}
	fcfg.HTTPClient = httpClient
	fcfg.AddDefaultHeader("X-Finnhub-Token", cfg.APIKey)

	return &Client{
		api:        fh.NewAPIClient(fcfg).DefaultApi,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		log:        slog.Default().With("gateway", "finnhub"),
	}
}

// Quote implements gateway.Gateway. Finnhub answers unknown symbols with an
// all-zero quote, which is reported as ReasonInvalidSymbol. The quote
// endpoint's model carries no timestamp, so Timestamp is left zero.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	if symbol == "" {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	var q fh.Quote
	err := c.call(ctx, "quote", symbol, func() (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		q, resp, err = c.api.Quote(ctx).Symbol(symbol).Execute()
		return resp, err
	})
	if err != nil {
		return domain.Quote{}, err
	}
	if q.GetC() == 0 && q.GetPc() == 0 {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonInvalidSymbol, errors.New("no quote data"))
	}
	return domain.Quote{
		Current:       f64(q.GetC()),
		Open:          f64(q.GetO()),
		High:          f64(q.GetH()),
		Low:           f64(q.GetL()),
		PreviousClose: f64(q.GetPc()),
	}, nil
}

// GeneralNews implements gateway.Gateway using the "general" category.
func (c *Client) GeneralNews(ctx context.Context) ([]domain.NewsItem, error) {
	var items []fh.MarketNews
	err := c.call(ctx, "general_news", "", func() (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		items, resp, err = c.api.MarketNews(ctx).Category("general").Execute()
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return convertNews(items), nil
}

// SearchSymbols implements gateway.Gateway.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SymbolMatch{}, nil
	}
	var lookup fh.SymbolLookup
	err := c.call(ctx, "search", "", func() (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		lookup, resp, err = c.api.SymbolSearch(ctx).Q(query).Execute()
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	result := lookup.GetResult()
	out := make([]domain.SymbolMatch, 0, len(result))
	for i := range result {
		r := &result[i]
		out = append(out, domain.SymbolMatch{
			Symbol:      r.GetSymbol(),
			Description: r.GetDescription(),
			Type:        r.GetType(),
		})
	}
	return out, nil
}

// CompanyProfile implements gateway.Gateway. Finnhub returns an empty object
// for symbols without a profile (ETFs, indices), which maps to nil.
func (c *Client) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	if symbol == "" {
		return nil, gateway.Fail("profile", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	var p fh.CompanyProfile2
	err := c.call(ctx, "profile", symbol, func() (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		p, resp, err = c.api.CompanyProfile2(ctx).Symbol(symbol).Execute()
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	if p.GetName() == "" && p.GetTicker() == "" {
		return nil, nil
	}
	return &domain.CompanyProfile{
		Ticker:               p.GetTicker(),
		Name:                 p.GetName(),
		LogoURL:              p.GetLogo(),
		Industry:             p.GetFinnhubIndustry(),
		Exchange:             p.GetExchange(),
		IPODate:              p.GetIpo(),
		MarketCapitalization: f64(p.GetMarketCapitalization()),
		Country:              p.GetCountry(),
		Currency:             p.GetCurrency(),
		WebURL:               p.GetWeburl(),
	}, nil
}

// CompanyNews implements gateway.Gateway. from and to are sent as UTC
// calendar dates.
func (c *Client) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	if symbol == "" {
		return nil, gateway.Fail("company_news", symbol, gateway.ReasonInvalidSymbol, gateway.ErrEmptySymbol)
	}
	var items []fh.CompanyNews
	err := c.call(ctx, "company_news", symbol, func() (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		items, resp, err = c.api.CompanyNews(ctx).
			Symbol(symbol).
			From(from.UTC().Format(gateway.DateLayout)).
			To(to.UTC().Format(gateway.DateLayout)).
			Execute()
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return convertNews(items), nil
}

// call runs fn with retries on network-class failures and converts any
// error into a *gateway.Failure.
func (c *Client) call(ctx context.Context, op, symbol string, fn func() (*http.Response, error)) error {
	err := util.RetryIf(ctx, c.retries+1, c.retryDelay, gateway.IsRetryable, func() error {
		resp, err := fn()
		if err == nil {
			return nil
		}
		f := classify(op, symbol, resp, err)
		if gateway.IsRetryable(f) {
			c.log.Debug("retrying request", "op", op, "symbol", symbol, "error", f)
		}
		return f
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

func classify(op, symbol string, resp *http.Response, err error) *gateway.Failure {
	if resp != nil && resp.StatusCode >= 300 {
		return gateway.Fail(op, symbol, gateway.ReasonFromStatus(resp.StatusCode), gateway.StatusError(resp.StatusCode, err.Error()))
	}
	return gateway.Fail(op, symbol, gateway.ReasonUnknown, err)
}

type newsRecord interface {
	GetId() int64
	GetHeadline() string
	GetSummary() string
	GetSource() string
	GetUrl() string
	GetImage() string
	GetDatetime() int64
}

func convertNews[T any, PT interface {
	*T
	newsRecord
}](in []T) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(in))
	for i := range in {
		n := PT(&in[i])
		out = append(out, domain.NewsItem{
			ID:          strconv.FormatInt(n.GetId(), 10),
			Headline:    n.GetHeadline(),
			Summary:     n.GetSummary(),
			Source:      n.GetSource(),
			URL:         n.GetUrl(),
			Image:       n.GetImage(),
			PublishedAt: unixTime(n.GetDatetime()),
		})
	}
	return out
}

// f64 widens a float32 API value, rounding away float32 noise past four
// decimals.
func f64(v float32) float64 {
	return math.Round(float64(v)*1e4) / 1e4
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
