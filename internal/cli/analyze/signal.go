// Package analyze holds the indicator inspection commands.
package analyze

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/indicators"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/monitor"
	"github.com/rustyeddy/trendline/pricing"
)

func NewSignal(rc *clicfg.RootConfig) *cobra.Command {
	var (
		symbol  string
		csvPath string
		bars    int
	)

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Print the last derived bars with trend, slope and age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			if bars <= 0 {
				return fmt.Errorf("--bars must be positive")
			}
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			ic, err := rc.Instrument(symbol)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			candles, err := closedCandles(rc, csvPath, ic.Symbol)
			if err != nil {
				return err
			}
			derived, err := indicators.Derive(candles, ic.IndicatorParams())
			if err != nil {
				return err
			}
			ages := indicators.TrendAges(derived)

			first := len(derived) - bars
			if first < 0 {
				first = 0
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TIME\tCLOSE\tTREND LINE\tTREND\tAGE\tHMA\tSLOPE\tSIGNAL\n")
			for i := first; i < len(derived); i++ {
				d := derived[i]
				label, _ := monitor.Signal(d.Direction, d.Slope, ic.SlopeThreshold, ages[i])
				fmt.Fprintf(tw, "%s\t%g\t%.2f\t%s\t%d\t%.4f\t%.2f\t%s\n",
					d.Time.In(loc).Format("2006-01-02 15:04"), d.Close, d.TrendLine,
					d.Direction, ages[i], d.HMA, d.Slope, label)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Instrument symbol")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read candles from a CSV file instead of the exchange")
	cmd.Flags().IntVarP(&bars, "bars", "n", 10, "Number of bars to print")
	return cmd
}

// closedCandles returns the whole CSV, or the configured history from the
// exchange without the bar that is still forming.
func closedCandles(rc *clicfg.RootConfig, csvPath, symbol string) ([]pricing.Candle, error) {
	if csvPath != "" {
		c, _, err := rc.Candles(context.Background(), csvPath, symbol, time.Time{}, time.Time{})
		return c, err
	}
	cfg, err := rc.Config()
	if err != nil {
		return nil, err
	}
	bar, err := config.TimeframeDuration(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c, _, err := rc.Candles(context.Background(), "", symbol, now.Add(-cfg.HistoryDuration()), now)
	if err != nil {
		return nil, err
	}
	return monitor.ClosedBars(c, now, bar), nil
}
