// Package gateway defines the market data capability consumed by the
// view-model controller and the typed failure every implementation returns.
package gateway

import (
	"context"
	"time"

	"marketdash/internal/domain"
)

// DateLayout is the calendar-date format used for news windows.
const DateLayout = "2006-01-02"

// Gateway is a market data source. Implementations own their endpoint and
// credentials and return *Failure on every error.
type Gateway interface {
	// Quote returns the latest quote for symbol.
	Quote(ctx context.Context, symbol string) (domain.Quote, error)

	// GeneralNews returns market-wide headlines, newest first.
	GeneralNews(ctx context.Context) ([]domain.NewsItem, error)

	// SearchSymbols returns symbols matching a free-text query in relevance
	// order.
	SearchSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error)

	// CompanyProfile returns descriptive company data. A nil profile with a
	// nil error means the source has none for symbol.
	CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error)

	// CompanyNews returns headlines for symbol published between the
	// calendar dates of from and to, both inclusive.
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]domain.NewsItem, error)
}
