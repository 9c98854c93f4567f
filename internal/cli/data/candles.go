package data

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/pricing"
)

func New(rc *clicfg.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Download and inspect candle data",
	}
	cmd.AddCommand(newCandlesCmd(rc))
	return cmd
}

func newCandlesCmd(rc *clicfg.RootConfig) *cobra.Command {
	var (
		symbol     string
		resolution string
		startStr   string
		endStr     string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "candles",
		Short: "Fetch candles from the exchange and write them as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			if resolution == "" {
				resolution = cfg.Timeframe
			}
			start, end, err := rc.Window(startStr, endStr)
			if err != nil {
				return err
			}
			client, err := rc.Exchange()
			if err != nil {
				return err
			}

			candles, err := client.Candles(context.Background(), symbol, resolution, start, end)
			if err != nil {
				return err
			}
			if err := pricing.Validate(candles); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := pricing.WriteCSV(w, candles); err != nil {
				return err
			}
			log.Info().Str("symbol", symbol).Str("resolution", resolution).Int("candles", len(candles)).Msg("candles written")
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Instrument symbol")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Candle resolution (default: configured timeframe)")
	cmd.Flags().StringVar(&startStr, "start", "", "Start time (default: end minus configured history)")
	cmd.Flags().StringVar(&endStr, "end", "", "End time (default: now)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output CSV file (default stdout)")
	return cmd
}
