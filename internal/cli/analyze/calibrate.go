package analyze

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/indicators"
	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
)

func NewCalibrate(rc *clicfg.RootConfig) *cobra.Command {
	var (
		symbol  string
		csvPath string
		atStr   string
		target  float64
		pct     float64
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Find the slope scaling that maps a bar's HMA change to a target angle",
		Long: `Computes tan(target)/pct, where pct is the HMA percentage change at the
reference bar. Pass --pct directly, or let the command derive it from
candles at --at (default: the last closed bar).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pct") {
				if symbol == "" {
					return fmt.Errorf("--symbol or --pct is required")
				}
				ic, err := rc.Instrument(symbol)
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

				i := len(derived) - 1
				if atStr != "" {
					at, err := clicfg.ParseTime(atStr)
					if err != nil {
						return fmt.Errorf("bad --at: %w", err)
					}
					i = -1
					for k, d := range derived {
						if d.Time.Equal(at) {
							i = k
							break
						}
					}
					if i < 0 {
						return fmt.Errorf("no bar at %s", at)
					}
				}
				if i < 1 {
					return fmt.Errorf("reference bar has no predecessor")
				}
				pct = indicators.PctChange(derived[i-1].HMA, derived[i].HMA)
				if math.IsNaN(pct) {
					return fmt.Errorf("HMA is not warmed up at %s", derived[i].Time)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bar %s: HMA %.4f -> %.4f (change %.6f)\n",
					derived[i].Time.Format("2006-01-02 15:04"), derived[i-1].HMA, derived[i].HMA, pct)
				fmt.Fprintf(cmd.OutOrStdout(), "current scaling %g gives %.2f degrees\n",
					ic.SlopeScaling, indicators.SlopeDegrees(derived[i-1].HMA, derived[i].HMA, ic.SlopeScaling))
			}

			scaling, err := indicators.CalibrateScaling(pct, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slope_scaling for %g degrees: %.2f\n", target, scaling)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Instrument symbol")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read candles from a CSV file instead of the exchange")
	cmd.Flags().StringVar(&atStr, "at", "", "Reference bar time (default: last bar)")
	cmd.Flags().Float64Var(&target, "target", 26, "Target angle in degrees")
	cmd.Flags().Float64Var(&pct, "pct", 0, "HMA percentage change to calibrate against")
	return cmd
}
