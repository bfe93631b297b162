// Package dashboard turns controller snapshots into display-ready rows,
// chart bars and formatted strings shared by the terminal UI and the CLI.
package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats a price as $1,234.56, or "-" for zero and non-finite
// values.
func FormatPrice(p float64) string {
	if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	return "$" + commaFloat(p)
}

// FormatChange formats an absolute change with an explicit sign: "+1.23".
func FormatChange(d float64) string {
	if d < 0 {
		return "-" + commaFloat(-d)
	}
	return "+" + commaFloat(d)
}

// FormatPercent formats a percentage with an explicit sign: "+1.23%".
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		p = 0
	}
	if p < 0 {
		return fmt.Sprintf("-%.2f%%", -p)
	}
	return fmt.Sprintf("+%.2f%%", p)
}

// FormatMarketCap formats a capitalization given in millions of dollars.
func FormatMarketCap(millions float64) string {
	switch {
	case millions <= 0:
		return "-"
	case millions >= 1e6:
		return fmt.Sprintf("$%.2fT", millions/1e6)
	case millions >= 1e3:
		return fmt.Sprintf("$%.1fB", millions/1e3)
	default:
		return fmt.Sprintf("$%.1fM", millions)
	}
}

// FormatVolume formats a share count with B/M/K suffixes.
func FormatVolume(v int64) string {
	f := float64(v)
	switch {
	case v <= 0:
		return "-"
	case f >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	default:
		return FormatInt(v)
	}
}

// FormatAgo renders the age of t relative to now: "just now", "5 minutes
// ago", "2 hours ago", "3 days ago". Beyond a week it falls back to the date.
func FormatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// commaFloat formats a non-negative value with two decimals and thousands
// separators.
func commaFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	whole, frac, _ := strings.Cut(s, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)
	return FormatInt(n) + "." + frac
}

// padOrTrunc pads s with spaces or truncates it to exactly width runes.
func padOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
