package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"marketdash/internal/controller"
	"marketdash/internal/dashboard"
	"marketdash/pkg/marketdash"
)

func newSnapshotCmd(o *options) *cobra.Command {
	var (
		server string
		watch  bool
		asJSON bool
	)
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the dashboard state of a running marketdash-server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := marketdash.NewClient(server)
			out := cmd.OutOrStdout()

			if !watch {
				snap, err := client.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				return printSnapshot(out, *snap, asJSON)
			}

			ch, err := client.Stream(cmd.Context())
			if err != nil {
				return err
			}
			for snap := range ch {
				if err := printSnapshot(out, snap, asJSON); err != nil {
					return err
				}
				if !asJSON {
					fmt.Fprintln(out)
				}
			}
			o.logger.Debug("stream closed")
			return cmd.Context().Err()
		},
	}
	c.Flags().StringVar(&server, "server", "http://localhost:8080", "marketdash-server base URL")
	c.Flags().BoolVarP(&watch, "watch", "w", false, "stream snapshots until interrupted")
	c.Flags().BoolVar(&asJSON, "json", false, "print raw JSON snapshots")
	return c
}

func printSnapshot(out io.Writer, s controller.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		return enc.Encode(s)
	}

	status := "stopped"
	if s.Running {
		status = "running"
	}
	refreshed := "never"
	if !s.LastRefresh.IsZero() {
		refreshed = dashboard.FormatAgo(s.LastRefresh, time.Now())
	}
	fmt.Fprintf(out, "version %d  %s  refreshed %s\n", s.Version, status, refreshed)

	w := newTable(out)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tCHANGE%\tVOLUME\t")
	for _, r := range dashboard.SummaryRows(s) {
		if !r.HasQuote {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t\n", r.Symbol)
			continue
		}
		flag := ""
		if r.Stale {
			flag = "stale"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Symbol,
			dashboard.FormatPrice(r.Price),
			dashboard.FormatChange(r.Change),
			dashboard.FormatPercent(r.ChangePercent),
			dashboard.FormatVolume(r.Volume),
			flag)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if s.Selected != nil {
		fmt.Fprintf(out, "\nselected: %s %s\n", s.Selected.Symbol, dashboard.FormatPrice(s.Selected.Quote.Current))
	}
	if s.SearchTerm != "" {
		fmt.Fprintf(out, "search %q: %d results\n", s.SearchTerm, len(s.SearchResults))
	}
	if e := s.LastError; e != nil {
		fmt.Fprintf(out, "last error: %s %s: %s\n", e.Op, e.Symbol, e.Message)
	}
	if len(s.News) > 0 {
		fmt.Fprintln(out, "\nHeadlines")
		for _, n := range s.News {
			fmt.Fprintf(out, "  %s (%s)\n", n.Headline, n.Source)
		}
	}
	return nil
}
