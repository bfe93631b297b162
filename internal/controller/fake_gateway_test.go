package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

// fakeGateway is a gateway.Gateway whose behaviour is set per test through
// function fields. Unset functions return empty successful results.
type fakeGateway struct {
	quoteFn       func(ctx context.Context, symbol string) (domain.Quote, error)
	newsFn        func(ctx context.Context) ([]domain.NewsItem, error)
	searchFn      func(ctx context.Context, query string) ([]domain.SymbolMatch, error)
	profileFn     func(ctx context.Context, symbol string) (*domain.CompanyProfile, error)
	companyNewsFn func(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error)

	quoteCalls  atomic.Int32
	newsCalls   atomic.Int32
	searchCalls atomic.Int32
	detailCalls atomic.Int32
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	f.quoteCalls.Add(1)
	if f.quoteFn == nil {
		return domain.Quote{}, nil
	}
	return f.quoteFn(ctx, symbol)
}

func (f *fakeGateway) GeneralNews(ctx context.Context) ([]domain.NewsItem, error) {
	f.newsCalls.Add(1)
	if f.newsFn == nil {
		return nil, nil
	}
	return f.newsFn(ctx)
}

func (f *fakeGateway) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	f.searchCalls.Add(1)
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, query)
}

func (f *fakeGateway) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	f.detailCalls.Add(1)
	if f.profileFn == nil {
		return nil, nil
	}
	return f.profileFn(ctx, symbol)
}

func (f *fakeGateway) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	f.detailCalls.Add(1)
	if f.companyNewsFn == nil {
		return nil, nil
	}
	return f.companyNewsFn(ctx, symbol, from, to)
}

// gate blocks callers per key until released.
type gate struct {
	mu sync.Mutex
	ch map[string]chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(map[string]chan struct{})}
}

func (g *gate) get(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.ch[key]
	if !ok {
		ch = make(chan struct{})
		g.ch[key] = ch
	}
	return ch
}

// wait blocks until key is released or ctx is done.
func (g *gate) wait(ctx context.Context, key string) error {
	select {
	case <-g.get(key):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) release(key string) {
	close(g.get(key))
}

// quoteBook is a concurrency-safe symbol -> quote/error table.
type quoteBook struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote
	fail   map[string]bool
}

func newQuoteBook() *quoteBook {
	return &quoteBook{quotes: make(map[string]domain.Quote), fail: make(map[string]bool)}
}

func (b *quoteBook) set(symbol string, current, prevClose float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[symbol] = domain.Quote{Current: current, PreviousClose: prevClose}
}

func (b *quoteBook) setFail(symbol string, fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[symbol] = fail
}

func (b *quoteBook) quote(_ context.Context, symbol string) (domain.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[symbol] {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonNetwork, errors.New("connection reset"))
	}
	q, ok := b.quotes[symbol]
	if !ok {
		return domain.Quote{}, gateway.Fail("quote", symbol, gateway.ReasonInvalidSymbol, nil)
	}
	return q, nil
}
