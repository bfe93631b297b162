// Package cache provides a Redis-backed caching decorator for gateway.Gateway.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

// Gateway decorates a gateway.Gateway with Redis caching of symbol search
// results and company profiles. Quotes and news always pass through: they
// change on every refresh and must not be served stale.
//
// Concurrent identical lookups share one upstream call. A nil Redis client
// keeps the sharing and disables the cache.
type Gateway struct {
	inner     gateway.Gateway
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	sf        singleflight.Group
}

var _ gateway.Gateway = (*Gateway)(nil)

// New wraps inner. If ttl is 0 it defaults to 10 minutes. If namespace is
// empty it uses "marketdash".
func New(rdb *redis.Client, ttl time.Duration, inner gateway.Gateway, namespace string) *Gateway {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if namespace == "" {
		namespace = "marketdash"
	}
	return &Gateway{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (g *Gateway) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	return g.inner.Quote(ctx, symbol)
}

func (g *Gateway) GeneralNews(ctx context.Context) ([]domain.NewsItem, error) {
	return g.inner.GeneralNews(ctx)
}

func (g *Gateway) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error) {
	return g.inner.CompanyNews(ctx, symbol, from, to)
}

// SearchSymbols caches results per case-folded query.
func (g *Gateway) SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	norm := strings.ToLower(strings.TrimSpace(query))
	if norm == "" {
		return g.inner.SearchSymbols(ctx, query)
	}
	return lookup(ctx, g, "search", "", g.key("search", norm), func(ctx context.Context) ([]domain.SymbolMatch, error) {
		return g.inner.SearchSymbols(ctx, query)
	})
}

// CompanyProfile caches profiles per symbol, including the absence of one.
func (g *Gateway) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	if symbol == "" {
		return g.inner.CompanyProfile(ctx, symbol)
	}
	return lookup(ctx, g, "profile", symbol, g.key("profile", strings.ToUpper(symbol)), func(ctx context.Context) (*domain.CompanyProfile, error) {
		return g.inner.CompanyProfile(ctx, symbol)
	})
}

// lookup reads key from Redis, falling back to fetch and storing its result.
// Errors are never cached. Redis failures degrade to a direct fetch.
func lookup[T any](ctx context.Context, g *Gateway, op, symbol, key string, fetch func(context.Context) (T, error)) (T, error) {
	if g.rdb != nil {
		if b, err := g.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var out T
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
			_ = g.rdb.Del(ctx, key).Err()
		}
	}

	// The shared call outlives any single caller's cancellation.
	ch := g.sf.DoChan(key, func() (any, error) {
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		if g.rdb != nil {
			if b, err := json.Marshal(v); err == nil {
				_ = g.rdb.Set(context.WithoutCancel(ctx), key, b, g.ttl).Err()
			}
		}
		return v, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			var zero T
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, gateway.Fail(op, symbol, gateway.ReasonNetwork, ctx.Err())
	}
}

func (g *Gateway) key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", g.namespace, kind, safe(id))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
