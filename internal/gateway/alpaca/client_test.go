package alpaca

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdash/internal/gateway"
)

type fakeMarketData struct {
	snapshot func(symbol string) (*marketdata.Snapshot, error)
	news     func(req marketdata.GetNewsRequest) ([]marketdata.News, error)
}

func (f *fakeMarketData) GetSnapshot(symbol string, _ marketdata.GetSnapshotRequest) (*marketdata.Snapshot, error) {
	return f.snapshot(symbol)
}

func (f *fakeMarketData) GetNews(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
	return f.news(req)
}

type fakeTrading struct {
	assetsCalls atomic.Int32
	assets      []alpacaapi.Asset
	asset       func(symbol string) (*alpacaapi.Asset, error)
}

func (f *fakeTrading) GetAssets(alpacaapi.GetAssetsRequest) ([]alpacaapi.Asset, error) {
	f.assetsCalls.Add(1)
	return f.assets, nil
}

func (f *fakeTrading) GetAsset(symbol string) (*alpacaapi.Asset, error) {
	return f.asset(symbol)
}

func testAssets() []alpacaapi.Asset {
	return []alpacaapi.Asset{
		{Symbol: "AAPL", Name: "Apple Inc. Common Stock", Class: "us_equity", Exchange: "NASDAQ"},
		{Symbol: "APLE", Name: "Apple Hospitality REIT, Inc. Common Stock", Class: "us_equity", Exchange: "NYSE"},
		{Symbol: "AAP", Name: "Advance Auto Parts Inc.", Class: "us_equity", Exchange: "NYSE"},
		{Symbol: "MSFT", Name: "Microsoft Corporation Common Stock", Class: "us_equity", Exchange: "NASDAQ"},
		{Symbol: "A", Name: "Agilent Technologies Inc.", Class: "us_equity", Exchange: "NYSE"},
	}
}

func TestQuoteFromSnapshot(t *testing.T) {
	ts := time.Date(2024, 3, 15, 19, 59, 0, 0, time.UTC)
	md := &fakeMarketData{snapshot: func(symbol string) (*marketdata.Snapshot, error) {
		assert.Equal(t, "AAPL", symbol)
		return &marketdata.Snapshot{
			LatestTrade:  &marketdata.Trade{Price: 172.62, Timestamp: ts},
			DailyBar:     &marketdata.Bar{Open: 171.17, High: 172.62, Low: 170.29, Close: 172.5, Volume: 121752699, Timestamp: ts.Truncate(24 * time.Hour)},
			PrevDailyBar: &marketdata.Bar{Close: 173.0},
		}, nil
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	q, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 172.62, q.Current)
	assert.Equal(t, 171.17, q.Open)
	assert.Equal(t, 172.62, q.High)
	assert.Equal(t, 170.29, q.Low)
	assert.Equal(t, 173.0, q.PreviousClose)
	assert.Equal(t, int64(121752699), q.Volume)
	assert.Equal(t, ts, q.Timestamp)
}

func TestQuoteFallsBackToDailyClose(t *testing.T) {
	q, ok := quoteFromSnapshot(&marketdata.Snapshot{
		DailyBar: &marketdata.Bar{Open: 10, High: 11, Low: 9, Close: 10.5},
	})
	require.True(t, ok)
	assert.Equal(t, 10.5, q.Current)
	assert.Equal(t, 0.0, q.PreviousClose)
	assert.Equal(t, 0.0, q.ChangePercent())
}

func TestQuoteEmptySnapshot(t *testing.T) {
	md := &fakeMarketData{snapshot: func(string) (*marketdata.Snapshot, error) {
		return &marketdata.Snapshot{}, nil
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	_, err := c.Quote(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Equal(t, gateway.ReasonInvalidSymbol, gateway.ReasonOf(err))
}

func TestQuoteAPIErrorStatus(t *testing.T) {
	var calls atomic.Int32
	md := &fakeMarketData{snapshot: func(string) (*marketdata.Snapshot, error) {
		calls.Add(1)
		return nil, &alpacaapi.APIError{StatusCode: 429, Message: "too many requests"}
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{Retries: 2})

	_, err := c.Quote(context.Background(), "SPY")
	require.Error(t, err)
	assert.Equal(t, gateway.ReasonRateLimited, gateway.ReasonOf(err))
	assert.Equal(t, int32(1), calls.Load())

	var f *gateway.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "quote", f.Op)
	assert.Equal(t, "SPY", f.Symbol)
}

func TestQuoteContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	md := &fakeMarketData{snapshot: func(string) (*marketdata.Snapshot, error) {
		<-release
		return nil, errors.New("late")
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Quote(ctx, "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneralNews(t *testing.T) {
	created := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	md := &fakeMarketData{news: func(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
		assert.Empty(t, req.Symbols)
		assert.Equal(t, 20, req.TotalLimit)
		assert.Equal(t, marketdata.SortDesc, req.Sort)
		return []marketdata.News{{
			ID:        37000000,
			Headline:  "Stocks rally",
			Summary:   "<p>Indexes &amp; futures <b>rose</b>.</p>",
			Author:    "Jane Doe",
			URL:       "https://news/1",
			CreatedAt: created,
			Images: []marketdata.NewsImage{
				{Size: "large", URL: "https://img/large.jpg"},
				{Size: "small", URL: "https://img/small.jpg"},
			},
		}}, nil
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	items, err := c.GeneralNews(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "37000000", items[0].ID)
	assert.Equal(t, "Indexes & futures rose .", items[0].Summary)
	assert.Equal(t, "https://img/small.jpg", items[0].Image)
	assert.Equal(t, "Jane Doe", items[0].Source)
	assert.Equal(t, created, items[0].PublishedAt)
}

func TestNewsSourceFallsBackWithoutAuthor(t *testing.T) {
	md := &fakeMarketData{news: func(marketdata.GetNewsRequest) ([]marketdata.News, error) {
		return []marketdata.News{{ID: 1, Headline: "Fed holds", Author: "  "}}, nil
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	items, err := c.GeneralNews(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Benzinga", items[0].Source)
	assert.Equal(t, "", items[0].Image)
}

func TestCompanyNewsWindow(t *testing.T) {
	md := &fakeMarketData{news: func(req marketdata.GetNewsRequest) ([]marketdata.News, error) {
		assert.Equal(t, []string{"MSFT"}, req.Symbols)
		assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), req.Start)
		assert.Equal(t, time.Date(2024, 3, 16, 23, 59, 59, 0, time.UTC), req.End)
		return nil, nil
	}}
	c := NewWithClients(md, &fakeTrading{}, Config{})

	to := time.Date(2024, 3, 15, 22, 0, 0, 0, time.FixedZone("EST", -5*3600))
	items, err := c.CompanyNews(context.Background(), "MSFT", to.Add(-7*24*time.Hour), to)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchSymbolsRanking(t *testing.T) {
	tr := &fakeTrading{assets: testAssets()}
	c := NewWithClients(&fakeMarketData{}, tr, Config{})

	got, err := c.SearchSymbols(context.Background(), "aap")
	require.NoError(t, err)
	syms := make([]string, len(got))
	for i, m := range got {
		syms[i] = m.Symbol
	}
	assert.Equal(t, []string{"AAP", "AAPL"}, syms)

	got, err = c.SearchSymbols(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "APLE", got[1].Symbol)
	assert.Equal(t, "us_equity", got[0].Type)

	assert.Equal(t, int32(1), tr.assetsCalls.Load(), "asset list should be loaded once")
}

func TestSearchSymbolsEmptyQuery(t *testing.T) {
	tr := &fakeTrading{assets: testAssets()}
	c := NewWithClients(&fakeMarketData{}, tr, Config{})

	got, err := c.SearchSymbols(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), tr.assetsCalls.Load())
}

func TestAssetIndexReloadsAfterTTL(t *testing.T) {
	tr := &fakeTrading{assets: testAssets()}
	x := newAssetIndex(tr, time.Hour)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	x.now = func() time.Time { return now }

	_, err := x.search(context.Background(), "A", 5)
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	_, err = x.search(context.Background(), "A", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tr.assetsCalls.Load())

	now = now.Add(time.Hour)
	_, err = x.search(context.Background(), "A", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tr.assetsCalls.Load())
}

func TestCompanyProfile(t *testing.T) {
	tr := &fakeTrading{asset: func(symbol string) (*alpacaapi.Asset, error) {
		if symbol == "NOPE" {
			return nil, &alpacaapi.APIError{StatusCode: 404, Message: "asset not found"}
		}
		return &alpacaapi.Asset{Symbol: symbol, Name: "Microsoft Corporation Common Stock", Exchange: "NASDAQ"}, nil
	}}
	c := NewWithClients(&fakeMarketData{}, tr, Config{})

	p, err := c.CompanyProfile(context.Background(), "MSFT")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "MSFT", p.Ticker)
	assert.Equal(t, "Microsoft Corporation Common Stock", p.Name)
	assert.Equal(t, "NASDAQ", p.Exchange)

	_, err = c.CompanyProfile(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, gateway.ReasonInvalidSymbol, gateway.ReasonOf(err))
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"a &lt; b &amp;&amp; c", "a < b && c"},
		{"  spaced\n\tout  ", "spaced out"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
