package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"marketdash/internal/dashboard"
	"marketdash/internal/domain"
)

// Styles.
var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	errorBarStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	tickerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("236"))
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1).Width(18)
)

func changeStyle(up bool) lipgloss.Style {
	if up {
		return gainStyle
	}
	return lossStyle
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := "stopped"
	if m.snap.Running {
		status = "live"
	}
	updated := "waiting for first refresh"
	if !m.snap.LastRefresh.IsZero() {
		updated = "updated " + dashboard.FormatAgo(m.snap.LastRefresh, m.now)
	}
	headerText := fmt.Sprintf(" MarketDash    %s    %s    %s ",
		strings.Join(m.snap.Watchlist, " "), updated, status)
	headerBar := headerStyle.Render(padOrTrunc(headerText, m.width))

	ticker := tickerStyle.Render(dashboard.TickerLine(m.snap, m.tickerOffset, m.width))

	var footerBar string
	if e := m.snap.LastError; e != nil {
		text := fmt.Sprintf(" ! %s failed (%s): %s", e.Op, e.Reason, e.Message)
		footerBar = errorBarStyle.Render(padOrTrunc(text, m.width))
	} else {
		footerLeft := " q quit  / search  1-9 select  esc close  pgup/dn scroll"
		if m.searching {
			footerLeft = " type to search  up/dn choose  enter select  esc cancel"
		}
		footerRight := fmt.Sprintf("%.0f%% ", m.viewport.ScrollPercent()*100)
		gap := max(m.width-len(footerLeft)-len(footerRight), 0)
		footerBar = footerStyle.Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))
	}

	return headerBar + "\n" + ticker + "\n" + m.viewport.View() + "\n" + footerBar
}

func (m model) renderContent() string {
	var b strings.Builder

	if m.searching || m.snap.SearchTerm != "" {
		m.renderSearch(&b)
	}

	rows := dashboard.SummaryRows(m.snap)
	renderCards(&b, rows)

	if d := m.snap.Selected; d != nil {
		m.renderDetail(&b, d)
	}

	renderSection(&b, "PERFORMANCE", m.width)
	if lines := dashboard.RenderBars(dashboard.ChartPoints(m.snap), max(m.width-20, 10)); len(lines) > 0 {
		for i, line := range lines {
			up := dashboard.ChartPoints(m.snap)[i].Percent >= 0
			b.WriteString("  " + changeStyle(up).Render(line) + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("  (no quotes yet)") + "\n")
	}

	renderSection(&b, "MARKET SUMMARY", m.width)
	renderSummary(&b, rows)

	renderSection(&b, "MARKET NEWS", m.width)
	m.renderNews(&b)

	return b.String()
}

func renderSection(b *strings.Builder, title string, width int) {
	b.WriteString("\n")
	b.WriteString(sectionStyle.Width(width).Render("  " + title))
	b.WriteString("\n")
}

func (m model) renderSearch(b *strings.Builder) {
	b.WriteString(m.search.View())
	b.WriteString("\n")
	results := m.snap.SearchResults
	switch {
	case len([]rune(m.snap.SearchTerm)) < 2:
		b.WriteString(dimStyle.Render("   type at least 2 characters") + "\n")
	case len(results) == 0:
		b.WriteString(dimStyle.Render("   no matches") + "\n")
	}
	for i, r := range results {
		line := fmt.Sprintf("   %-8s %-40s %s", r.Symbol, r.Description, r.Type)
		if m.searching && i == m.cursor {
			b.WriteString(cursorStyle.Render(padOrTrunc(line, m.width)))
		} else {
			b.WriteString(symbolStyle.Render(fmt.Sprintf("   %-8s", r.Symbol)))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %-40s %s", r.Description, r.Type)))
		}
		b.WriteString("\n")
	}
}

func renderCards(b *strings.Builder, rows []dashboard.Row) {
	if len(rows) == 0 {
		return
	}
	cards := make([]string, 0, len(rows))
	for i, r := range rows {
		var body string
		if !r.HasQuote {
			body = dimStyle.Render("loading...")
		} else {
			body = priceStyle.Render(dashboard.FormatPrice(r.Price)) + "\n" +
				changeStyle(r.Up).Render(dashboard.FormatChange(r.Change)+" "+dashboard.FormatPercent(r.ChangePercent))
		}
		title := symbolStyle.Render(r.Symbol) + dimStyle.Render(fmt.Sprintf(" [%d]", i+1))
		if r.Stale {
			title += staleStyle.Render(" *")
		}
		cards = append(cards, cardStyle.Render(title+"\n"+body))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n")
}

func (m model) renderDetail(b *strings.Builder, d *domain.StockDetail) {
	width := m.width
	title := d.Symbol
	if p := d.Profile; p != nil && p.Name != "" {
		title += "  " + p.Name
	}
	renderSection(b, title, width)

	q := d.Quote
	b.WriteString(fmt.Sprintf("  %s  %s\n",
		priceStyle.Bold(true).Render(dashboard.FormatPrice(q.Current)),
		changeStyle(q.IsUp()).Render(dashboard.FormatChange(q.Change())+" ("+dashboard.FormatPercent(q.ChangePercent())+")")))

	cells := [][2]string{
		{"Open", dashboard.FormatPrice(q.Open)},
		{"High", dashboard.FormatPrice(q.High)},
		{"Low", dashboard.FormatPrice(q.Low)},
		{"Prev Close", dashboard.FormatPrice(q.PreviousClose)},
		{"Volume", dashboard.FormatVolume(q.Volume)},
	}
	if p := d.Profile; p != nil {
		cells = append(cells,
			[2]string{"Market Cap", dashboard.FormatMarketCap(p.MarketCapitalization)},
			[2]string{"Exchange", orDash(p.Exchange)},
			[2]string{"Industry", orDash(p.Industry)},
			[2]string{"IPO", orDash(p.IPODate)},
		)
	}
	for i := 0; i < len(cells); i += 3 {
		b.WriteString(" ")
		for _, c := range cells[i:min(i+3, len(cells))] {
			b.WriteString(colHeaderStyle.Render(fmt.Sprintf(" %-11s", c[0])))
			b.WriteString(priceStyle.Render(fmt.Sprintf("%-16s", c[1])))
		}
		b.WriteString("\n")
	}
	if p := d.Profile; p != nil && p.WebURL != "" {
		b.WriteString(dimStyle.Render("  "+p.WebURL) + "\n")
	}

	b.WriteString("\n" + colHeaderStyle.Render("  Recent news") + "\n")
	if len(d.RecentNews) == 0 {
		b.WriteString(dimStyle.Render("  (none in the last week)") + "\n")
	}
	for _, n := range d.RecentNews {
		b.WriteString("  • " + padOrTrunc(n.Headline, max(width-30, 20)))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s, %s", n.Source, dashboard.FormatAgo(n.PublishedAt, m.now))))
		b.WriteString("\n")
	}
}

func renderSummary(b *strings.Builder, rows []dashboard.Row) {
	b.WriteString(colHeaderStyle.Render(fmt.Sprintf("  %-8s %12s %10s %9s %9s", "Symbol", "Price", "Change", "Change%", "Volume")))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(symbolStyle.Render(fmt.Sprintf("  %-8s", r.Symbol)))
		if !r.HasQuote {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" %12s %10s %9s %9s", "-", "-", "-", "-")))
			b.WriteString("\n")
			continue
		}
		b.WriteString(priceStyle.Render(fmt.Sprintf(" %12s", dashboard.FormatPrice(r.Price))))
		st := changeStyle(r.Up)
		b.WriteString(st.Render(fmt.Sprintf(" %10s %9s", dashboard.FormatChange(r.Change), dashboard.FormatPercent(r.ChangePercent))))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" %9s", dashboard.FormatVolume(r.Volume))))
		if r.Stale {
			b.WriteString(staleStyle.Render("  stale"))
		}
		b.WriteString("\n")
	}
}

func (m model) renderNews(b *strings.Builder) {
	news := m.snap.News
	if len(news) == 0 {
		b.WriteString(dimStyle.Render("  (no headlines)") + "\n")
		return
	}
	for _, n := range news {
		b.WriteString("  " + priceStyle.Bold(true).Render(padOrTrunc(n.Headline, max(m.width-4, 20))) + "\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s", n.Source, dashboard.FormatAgo(n.PublishedAt, m.now))) + "\n")
		if n.Summary != "" {
			b.WriteString("  " + padOrTrunc(n.Summary, max(m.width-4, 20)) + "\n")
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:max(width, 0)])
	}
	return s + strings.Repeat(" ", width-len(r))
}
