package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"marketdash/internal/config"
	"marketdash/internal/dashboard"
	"marketdash/internal/domain"
)

func newQuoteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print the latest quote for each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closer, err := o.gateway()
			if err != nil {
				return err
			}
			defer closer()

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tCHANGE%\tOPEN\tHIGH\tLOW\tPREV CLOSE")
			symbols := config.ParseSymbols(strings.Join(args, ","))
			var failed int
			for _, sym := range symbols {
				q, err := gw.Quote(cmd.Context(), sym)
				if err != nil {
					failed++
					fmt.Fprintf(w, "%s\terror: %v\n", sym, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", sym,
					dashboard.FormatPrice(q.Current),
					dashboard.FormatChange(q.Change()),
					dashboard.FormatPercent(q.ChangePercent()),
					dashboard.FormatPrice(q.Open),
					dashboard.FormatPrice(q.High),
					dashboard.FormatPrice(q.Low),
					dashboard.FormatPrice(q.PreviousClose))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d quotes failed", failed, len(symbols))
			}
			return nil
		},
	}
}

func newNewsCmd(o *options) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "news",
		Short: "Print general market headlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closer, err := o.gateway()
			if err != nil {
				return err
			}
			defer closer()

			items, err := gw.GeneralNews(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			printNews(cmd.OutOrStdout(), items, time.Now())
			return nil
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 10, "maximum headlines to print (0 for all)")
	return c
}

func newSearchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM...",
		Short: "Search symbols by ticker or company name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closer, err := o.gateway()
			if err != nil {
				return err
			}
			defer closer()

			matches, err := gw.SearchSymbols(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "SYMBOL\tDESCRIPTION\tTYPE")
			for _, m := range matches {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Symbol, m.Description, m.Type)
			}
			return w.Flush()
		},
	}
}

func newProfileCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile SYMBOL",
		Short: "Print the company profile for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closer, err := o.gateway()
			if err != nil {
				return err
			}
			defer closer()

			sym := strings.ToUpper(args[0])
			p, err := gw.CompanyProfile(cmd.Context(), sym)
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no profile available\n", sym)
				return nil
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func printProfile(out io.Writer, p *domain.CompanyProfile) {
	w := newTable(out)
	fmt.Fprintf(w, "Name\t%s\n", p.Name)
	fmt.Fprintf(w, "Ticker\t%s\n", p.Ticker)
	fmt.Fprintf(w, "Exchange\t%s\n", p.Exchange)
	if p.Industry != "" {
		fmt.Fprintf(w, "Industry\t%s\n", p.Industry)
	}
	if p.MarketCapitalization > 0 {
		fmt.Fprintf(w, "Market Cap\t%s\n", dashboard.FormatMarketCap(p.MarketCapitalization))
	}
	if p.IPODate != "" {
		fmt.Fprintf(w, "IPO\t%s\n", p.IPODate)
	}
	if p.WebURL != "" {
		fmt.Fprintf(w, "Web\t%s\n", p.WebURL)
	}
	w.Flush()
}

func printNews(out io.Writer, items []domain.NewsItem, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no headlines")
		return
	}
	for _, n := range items {
		fmt.Fprintf(out, "%s\n  %s · %s\n", n.Headline, n.Source, dashboard.FormatAgo(n.PublishedAt, now))
		if n.URL != "" {
			fmt.Fprintf(out, "  %s\n", n.URL)
		}
	}
}
