// Package domain defines the market data types shared by the gateways, the
// view-model controller and the presentation layers.
package domain

import (
	"math"
	"sort"
	"time"
)

// Quote is a point-in-time price summary for one symbol.
type Quote struct {
	Current       float64   `json:"current"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previousClose"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// Change returns Current - PreviousClose.
func (q Quote) Change() float64 {
	return q.Current - q.PreviousClose
}

// ChangePercent returns the change relative to the previous close in
// percent. A zero previous close yields 0 rather than NaN or Inf.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	pct := q.Change() / q.PreviousClose * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return pct
}

// IsUp reports whether the quote is at or above the previous close.
func (q Quote) IsUp() bool {
	return q.Change() >= 0
}

// QuoteSet maps ticker symbol to its latest quote.
type QuoteSet map[string]Quote

// Clone returns a shallow copy of the set. A nil set clones to an empty one.
func (s QuoteSet) Clone() QuoteSet {
	out := make(QuoteSet, len(s))
	for sym, q := range s {
		out[sym] = q
	}
	return out
}

// Symbols returns the symbols in the set, sorted.
func (s QuoteSet) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// NewsItem is a single headline from a news feed. Image is empty when the
// upstream has no picture for the story.
type NewsItem struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Image       string    `json:"image,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// SymbolMatch is one symbol search hit.
type SymbolMatch struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
}

// CompanyProfile carries descriptive company fields as returned upstream.
// MarketCapitalization is in millions of the listing currency.
type CompanyProfile struct {
	Ticker               string  `json:"ticker,omitempty"`
	Name                 string  `json:"name"`
	LogoURL              string  `json:"logoUrl,omitempty"`
	Industry             string  `json:"industry,omitempty"`
	Exchange             string  `json:"exchange,omitempty"`
	IPODate              string  `json:"ipoDate,omitempty"`
	MarketCapitalization float64 `json:"marketCapitalization,omitempty"`
	Description          string  `json:"description,omitempty"`
	Country              string  `json:"country,omitempty"`
	Currency             string  `json:"currency,omitempty"`
	WebURL               string  `json:"webUrl,omitempty"`
}

// StockDetail is the assembled view of a selected symbol.
type StockDetail struct {
	Symbol     string          `json:"symbol"`
	Quote      Quote           `json:"quote"`
	Profile    *CompanyProfile `json:"profile,omitempty"`
	RecentNews []NewsItem      `json:"recentNews"`
}
