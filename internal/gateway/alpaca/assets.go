package alpaca

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"marketdash/internal/domain"
)

// assetIndex caches the active US equity list for symbol search. The list is
// reloaded once it is older than ttl.
type assetIndex struct {
	tr  Trading
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	assets   []alpacaapi.Asset
	loadedAt time.Time
}

func newAssetIndex(tr Trading, ttl time.Duration) *assetIndex {
	return &assetIndex{tr: tr, ttl: ttl, now: time.Now}
}

func (x *assetIndex) list(ctx context.Context) ([]alpacaapi.Asset, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.assets != nil && x.now().Sub(x.loadedAt) < x.ttl {
		return x.assets, nil
	}
	assets, err := withContext(ctx, func() ([]alpacaapi.Asset, error) {
		return x.tr.GetAssets(alpacaapi.GetAssetsRequest{
			Status:     "active",
			AssetClass: "us_equity",
		})
	})
	if err != nil {
		return nil, err
	}
	x.assets = assets
	x.loadedAt = x.now()
	return assets, nil
}

func (x *assetIndex) get(ctx context.Context, symbol string) (*alpacaapi.Asset, error) {
	return withContext(ctx, func() (*alpacaapi.Asset, error) {
		return x.tr.GetAsset(symbol)
	})
}

func (x *assetIndex) search(ctx context.Context, query string, limit int) ([]domain.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SymbolMatch{}, nil
	}
	assets, err := x.list(ctx)
	if err != nil {
		return nil, err
	}
	return rankAssets(assets, query, limit), nil
}

// rankAssets orders matches as exact symbol, then symbol prefix, then name
// substring. Ties sort by shorter symbol, then alphabetically.
func rankAssets(assets []alpacaapi.Asset, query string, limit int) []domain.SymbolMatch {
	upper := strings.ToUpper(query)
	lower := strings.ToLower(query)

	type ranked struct {
		asset *alpacaapi.Asset
		rank  int
	}
	var hits []ranked
	for i := range assets {
		a := &assets[i]
		switch {
		case a.Symbol == upper:
			hits = append(hits, ranked{a, 0})
		case strings.HasPrefix(a.Symbol, upper):
			hits = append(hits, ranked{a, 1})
		case strings.Contains(strings.ToLower(a.Name), lower):
			hits = append(hits, ranked{a, 2})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if len(a.asset.Symbol) != len(b.asset.Symbol) {
			return len(a.asset.Symbol) < len(b.asset.Symbol)
		}
		return a.asset.Symbol < b.asset.Symbol
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]domain.SymbolMatch, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.SymbolMatch{
			Symbol:      h.asset.Symbol,
			Description: h.asset.Name,
			Type:        string(h.asset.Class),
		})
	}
	return out
}
