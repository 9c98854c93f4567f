// Package journalcmd implements "trendline journal", queries over the
// SQLite trade journal.
package journalcmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	clicfg "github.com/rustyeddy/trendline/internal/cli/config"
	"github.com/rustyeddy/trendline/journal"
	"github.com/rustyeddy/trendline/ledger"
)

func New(rc *clicfg.RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query journaled backtest runs and trades",
	}
	cmd.AddCommand(newTradesCmd(rc), newRunCmd(rc), newTradeCmd(rc))
	return cmd
}

func newTradesCmd(rc *clicfg.RootConfig) *cobra.Command {
	var (
		runID    string
		sinceStr string
		untilStr string
	)
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List trades of a run, or trades closed in a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := rc.SQLite()
			if err != nil {
				return err
			}
			defer j.Close()

			var trades []ledger.TradeRecord
			if runID != "" {
				trades, err = j.ListTradesByRun(runID)
			} else {
				until := time.Now().UTC()
				if untilStr != "" {
					if until, err = clicfg.ParseTime(untilStr); err != nil {
						return fmt.Errorf("bad --until: %w", err)
					}
				}
				since := until.Add(-24 * time.Hour)
				if sinceStr != "" {
					if since, err = clicfg.ParseTime(sinceStr); err != nil {
						return fmt.Errorf("bad --since: %w", err)
					}
				}
				trades, err = j.ListTradesClosedBetween(since, until)
			}
			if err != nil {
				return err
			}
			return printTrades(cmd.OutOrStdout(), trades)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID")
	cmd.Flags().StringVar(&sinceStr, "since", "", "Closed at or after (default: 24h before --until)")
	cmd.Flags().StringVar(&untilStr, "until", "", "Closed before (default: now)")
	return cmd
}

func newTradeCmd(rc *clicfg.RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "trade <id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := rc.SQLite()
			if err != nil {
				return err
			}
			defer j.Close()
			t, err := j.GetTrade(args[0])
			if err != nil {
				return err
			}
			return printTrades(cmd.OutOrStdout(), []ledger.TradeRecord{t})
		},
	}
}

func newRunCmd(rc *clicfg.RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Render the report of a journaled run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			j, err := rc.SQLite()
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(args[0])
			if err != nil {
				return err
			}
			trades, err := j.ListTradesByRun(run.ID)
			if err != nil {
				return err
			}
			return journal.WriteReport(cmd.OutOrStdout(), run, trades, loc)
		},
	}
}

func printTrades(w io.Writer, trades []ledger.TradeRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tINSTRUMENT\tSIDE\tENTRY\tENTRY TIME\tEXIT\tEXIT TIME\tPNL\tREASON\tSTATUS\n")
	for _, t := range trades {
		exit := "-"
		if !t.ExitTime.IsZero() {
			exit = t.ExitTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%g\t%s\t%+.2f\t%s\t%s\n",
			t.ID, t.Instrument, t.Side, t.EntryPrice, t.EntryTime.Format("2006-01-02 15:04"),
			t.ExitPrice, exit, t.PnL, t.Reason, t.Status)
	}
	return tw.Flush()
}
