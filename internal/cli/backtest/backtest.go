package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/journal"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/pricing"
)

func New(rc *clicfg.RootConfig) *cobra.Command {
	var (
		symbol   string
		csvPath  string
		startStr string
		endStr   string
		fromStr  string

		reportPath string
		record     bool

		// overrides of the configured instrument
		takeProfit     float64
		slopeThreshold float64
		quantity       float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy over historical candles",
		Long: `Derives Supertrend and HMA slope over the candles, replays the position
state machine bar by bar and prints a markdown report of the trades.

Candles come from --csv (time,open,high,low,close,volume) or from the
exchange over --start/--end. Bars before --from only warm up the
indicators; trading starts at --from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			ic, err := rc.Instrument(symbol)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("take-profit") {
				ic.TakeProfit = &takeProfit
			}
			if cmd.Flags().Changed("slope-threshold") {
				ic.SlopeThreshold = slopeThreshold
			}
			if cmd.Flags().Changed("quantity") {
				ic.Quantity = quantity
			}

			var start, end, from time.Time
			if csvPath == "" {
				if start, end, err = rc.Window(startStr, endStr); err != nil {
					return err
				}
			} else {
				if startStr != "" {
					if start, err = clicfg.ParseTime(startStr); err != nil {
						return fmt.Errorf("bad --start: %w", err)
					}
				}
				if endStr != "" {
					if end, err = clicfg.ParseTime(endStr); err != nil {
						return fmt.Errorf("bad --end: %w", err)
					}
				}
			}
			if fromStr != "" {
				if from, err = clicfg.ParseTime(fromStr); err != nil {
					return fmt.Errorf("bad --from: %w", err)
				}
			}

			candles, dataset, err := rc.Candles(context.Background(), csvPath, ic.Symbol, start, end)
			if err != nil {
				return err
			}

			res, err := Run(ic.Symbol, candles, Options{
				Indicators: ic.IndicatorParams(),
				Ledger: ledger.Options{
					Params:   ic.PositionParams(),
					Quantity: ic.Quantity,
					From:     from,
				},
			})
			if err != nil {
				return err
			}
			res.Run.Timeframe = cfg.Timeframe
			res.Run.Dataset = dataset

			if record {
				j, err := rc.Journal()
				if err != nil {
					return err
				}
				defer j.Close()
				if err := journal.Record(j, &res.Run, res.Trades); err != nil {
					return err
				}
				log.Info().Str("run", res.Run.ID).Int("trades", len(res.Trades)).Msg("journaled")
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			if reportPath != "" {
				if err := journal.WriteReportFile(reportPath, res.Run, res.Trades, loc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: %d trades, %d wins, %d losses, win rate %.1f%%, total %.2f points. Report: %s\n",
					ic.Symbol, res.Summary.Trades, res.Summary.Wins, res.Summary.Losses,
					res.Summary.WinRate, res.Summary.TotalPoints, reportPath)
				return nil
			}
			return journal.WriteReport(cmd.OutOrStdout(), res.Run, res.Trades, loc)
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "Instrument symbol (e.g. ETHUSD)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Read candles from a CSV file instead of the exchange")
	cmd.Flags().StringVar(&startStr, "start", "", "First candle time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&endStr, "end", "", "End of the candle range, exclusive for CSV input")
	cmd.Flags().StringVar(&fromStr, "from", "", "Only trade bars at or after this time")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the markdown report to this file")
	cmd.Flags().BoolVar(&record, "journal", false, "Record the run and its trades in the configured journal")
	cmd.Flags().Float64Var(&takeProfit, "take-profit", 0, "Override take-profit distance (0 disables)")
	cmd.Flags().Float64Var(&slopeThreshold, "slope-threshold", 0, "Override slope threshold in degrees")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "Override position quantity")

	return cmd
}

type Options struct {
	Indicators indicators.Params
	Ledger     ledger.Options
}

// Result is one finished backtest.
type Result struct {
	Run     journal.Run
	Trades  []ledger.TradeRecord
	Summary ledger.Summary
}

// Run derives indicators over candles and replays them.
func Run(symbol string, candles []pricing.Candle, opts Options) (Result, error) {
	derived, err := indicators.Derive(candles, opts.Indicators)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", symbol, err)
	}
	trades := ledger.Replay(symbol, derived, opts.Ledger)
	sum := ledger.Summarize(trades)

	run := journal.Run{
		Instrument:      symbol,
		TrendPeriod:     opts.Indicators.TrendPeriod,
		TrendMultiplier: opts.Indicators.TrendMultiplier,
		HMAPeriod:       opts.Indicators.HMAPeriod,
		SlopeScaling:    opts.Indicators.SlopeScaling,
		SlopeThreshold:  opts.Ledger.Params.SlopeThreshold,
		TakeProfit:      opts.Ledger.Params.TakeProfit,
		Quantity:        opts.Ledger.Quantity,
		Start:           candles[0].Time,
		End:             candles[len(candles)-1].Time,
		From:            opts.Ledger.From,
	}
	run.ApplySummary(sum)
	if opts.Ledger.From.After(run.Start) {
		run.Notes = append(run.Notes, fmt.Sprintf("%d bars before the trading start only warmed up the indicators",
			len(pricing.Between(candles, time.Time{}, opts.Ledger.From))))
	}

	log.Debug().Str("instrument", symbol).Int("candles", len(candles)).Int("trades", len(trades)).Msg("backtest done")
	return Result{Run: run, Trades: trades, Summary: sum}, nil
}
