package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marketdash/internal/app"
	"marketdash/internal/controller"
	"marketdash/internal/dashboard"
	"marketdash/internal/domain"
)

func newDetailCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detail SYMBOL",
		Short: "Assemble and print the full detail view for a symbol",
		Long: `Assemble and print the full detail view for a symbol

The quote, company profile and recent company news are fetched together; if
any of them fails nothing is printed and the failure is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, closer, err := o.gateway()
			if err != nil {
				return err
			}
			defer closer()

			sym := strings.ToUpper(strings.TrimSpace(args[0]))
			ctrl := controller.New(gw, app.ControllerOptions(o.cfg, o.logger))
			ctrl.SelectSymbol(cmd.Context(), sym)

			snap := ctrl.Snapshot()
			if snap.Selected == nil {
				if e := snap.LastError; e != nil && e.Op == controller.OpSelect {
					return fmt.Errorf("%s: %s (%s)", e.Symbol, e.Message, e.Reason)
				}
				return errors.New("selection did not complete")
			}
			printDetail(cmd.OutOrStdout(), snap.Selected, time.Now())
			return nil
		},
	}
}

func printDetail(out io.Writer, d *domain.StockDetail, now time.Time) {
	q := d.Quote
	name := d.Symbol
	if d.Profile != nil && d.Profile.Name != "" {
		name = fmt.Sprintf("%s  %s", d.Symbol, d.Profile.Name)
	}
	fmt.Fprintln(out, name)
	fmt.Fprintf(out, "%s  %s (%s)\n\n",
		dashboard.FormatPrice(q.Current),
		dashboard.FormatChange(q.Change()),
		dashboard.FormatPercent(q.ChangePercent()))

	w := newTable(out)
	fmt.Fprintf(w, "Open\t%s\n", dashboard.FormatPrice(q.Open))
	fmt.Fprintf(w, "High\t%s\n", dashboard.FormatPrice(q.High))
	fmt.Fprintf(w, "Low\t%s\n", dashboard.FormatPrice(q.Low))
	fmt.Fprintf(w, "Prev Close\t%s\n", dashboard.FormatPrice(q.PreviousClose))
	if q.Volume > 0 {
		fmt.Fprintf(w, "Volume\t%s\n", dashboard.FormatVolume(q.Volume))
	}
	w.Flush()

	if d.Profile != nil {
		fmt.Fprintln(out)
		printProfile(out, d.Profile)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recent news")
	printNews(out, d.RecentNews, now)
}
