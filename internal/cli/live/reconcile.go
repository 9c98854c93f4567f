package live

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/config"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/monitor"
)

func NewReconcile(rc *clicfg.RootConfig) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Show the position each instrument would start the monitor in",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			insts, err := instruments(cfg, symbol)
			if err != nil {
				return err
			}
			bar, err := config.TimeframeDuration(cfg.Timeframe)
			if err != nil {
				return err
			}
			client, err := rc.Exchange()
			if err != nil {
				return err
			}
			src := positionSource(cfg, client, insts)
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx := context.Background()
			now := time.Now()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "SYMBOL\tBAR\tTREND\tAGE\tSLOPE\tSIDE\tENTRY\tGUARD\n")
			for _, in := range insts {
				candles, err := client.Candles(ctx, in.Symbol, cfg.Timeframe, now.Add(-cfg.HistoryDuration()), now)
				if err != nil {
					log.Error().Err(err).Str("instrument", in.Symbol).Msg("fetch candles")
					fmt.Fprintf(tw, "%s\terror: %v\n", in.Symbol, err)
					continue
				}
				r, err := monitor.Reconcile(ctx, in, monitor.ClosedBars(candles, now, bar), src)
				if err != nil {
					fmt.Fprintf(tw, "%s\terror: %v\n", in.Symbol, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\t%g\t%s\n",
					r.Symbol, r.Bar.Time.In(loc).Format("2006-01-02 15:04"), r.Bar.Direction,
					r.Age, r.Bar.Slope, r.State.Side, r.State.EntryPrice, r.State.LastTraded)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only reconcile this instrument")
	return cmd
}
