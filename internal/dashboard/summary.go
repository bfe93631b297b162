package dashboard

import (
	"fmt"
	"math"
	"strings"

	"marketdash/internal/controller"
)

// Row is one watch-list symbol in the market summary table.
type Row struct {
	Symbol        string
	HasQuote      bool
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        int64
	Up            bool
	Stale         bool
}

// SummaryRows returns one row per watch-list symbol in watch-list order.
// Symbols without a quote yet are included with HasQuote false.
func SummaryRows(s controller.Snapshot) []Row {
	rows := make([]Row, 0, len(s.Watchlist))
	for _, sym := range s.Watchlist {
		row := Row{Symbol: sym, Stale: s.IsStale(sym)}
		if q, ok := s.Quotes[sym]; ok {
			row.HasQuote = true
			row.Price = q.Current
			row.Change = q.Change()
			row.ChangePercent = q.ChangePercent()
			row.Volume = q.Volume
			row.Up = q.IsUp()
		}
		rows = append(rows, row)
	}
	return rows
}

// Point is one bar of the performance chart.
type Point struct {
	Symbol  string
	Percent float64
}

// ChartPoints returns the change percentage of every quoted watch-list
// symbol in watch-list order.
func ChartPoints(s controller.Snapshot) []Point {
	var pts []Point
	for _, sym := range s.Watchlist {
		if q, ok := s.Quotes[sym]; ok {
			pts = append(pts, Point{Symbol: sym, Percent: q.ChangePercent()})
		}
	}
	return pts
}

// RenderBars draws points as horizontal bars around a zero axis. Each line is
// "SYM  <negative half>|<positive half> +1.23%" and bars are scaled to the
// largest absolute change. width is the total bar area in cells.
func RenderBars(points []Point, width int) []string {
	if len(points) == 0 {
		return nil
	}
	if width < 4 {
		width = 4
	}
	half := width / 2

	label := 0
	maxAbs := 0.0
	for _, p := range points {
		label = max(label, len([]rune(p.Symbol)))
		maxAbs = math.Max(maxAbs, math.Abs(p.Percent))
	}

	lines := make([]string, 0, len(points))
	for _, p := range points {
		n := 0
		if maxAbs > 0 {
			n = int(math.Round(math.Abs(p.Percent) / maxAbs * float64(half)))
		}
		if n == 0 && p.Percent != 0 {
			n = 1
		}
		left := strings.Repeat(" ", half)
		right := strings.Repeat(" ", half)
		if p.Percent < 0 {
			left = strings.Repeat(" ", half-n) + strings.Repeat("█", n)
		} else {
			right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
		}
		lines = append(lines, fmt.Sprintf("%s %s│%s %s",
			padOrTrunc(p.Symbol, label), left, right, FormatPercent(p.Percent)))
	}
	return lines
}

// TickerLine renders the scrolling ticker: every quoted watch-list symbol as
// "SYM $price +x.xx%", joined and repeated, starting offset runes in and
// exactly width runes long.
func TickerLine(s controller.Snapshot, offset, width int) string {
	if width <= 0 {
		return ""
	}
	var parts []string
	for _, sym := range s.Watchlist {
		q, ok := s.Quotes[sym]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", sym, FormatPrice(q.Current), FormatPercent(q.ChangePercent())))
	}
	if len(parts) == 0 {
		return strings.Repeat(" ", width)
	}
	loop := []rune(strings.Join(parts, "   ·   ") + "   ·   ")
	if offset < 0 {
		offset = offset%len(loop) + len(loop)
	}
	start := offset % len(loop)

	out := make([]rune, width)
	for i := range out {
		out[i] = loop[(start+i)%len(loop)]
	}
	return string(out)
}
