package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/trendline/ledger"
)

var (
	tradeHeader = []string{"trade_id", "run_id", "instrument", "side", "quantity", "entry_price", "exit_price",
		"peak_price", "entry_time", "exit_time", "pnl_per_unit", "pnl", "run_up", "reason", "status"}
	runHeader = []string{"run_id", "created", "instrument", "timeframe", "dataset", "from", "trades", "wins",
		"losses", "win_rate", "total_points", "total_pnl", "avg_run_up"}
)

// CSV writes runs and trades to two CSV files.
type CSV struct {
	trades *csv.Writer
	runs   *csv.Writer
	tf, rf *os.File
}

func NewCSV(tradesPath, runsPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(runsPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSV{
		trades: csv.NewWriter(tf),
		runs:   csv.NewWriter(rf),
		tf:     tf,
		rf:     rf,
	}
	if err := j.write(j.trades, tradeHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.runs, runHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordRun(r Run) error {
	return j.write(j.runs, []string{
		r.ID,
		ts(r.Created),
		r.Instrument,
		r.Timeframe,
		r.Dataset,
		ts(r.From),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		f(r.WinRate),
		f(r.TotalPoints),
		f(r.TotalPnL),
		f(r.AvgRunUp),
	})
}

func (j *CSV) RecordTrade(runID string, t ledger.TradeRecord) error {
	return j.write(j.trades, []string{
		t.ID,
		runID,
		t.Instrument,
		string(t.Side),
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.PeakPrice),
		ts(t.EntryTime),
		ts(t.ExitTime),
		f(t.PnLPerUnit),
		f(t.PnL),
		f(t.RunUp),
		string(t.Reason),
		string(t.Status),
	})
}

func (j *CSV) Close() error {
	j.trades.Flush()
	j.runs.Flush()
	terr := j.trades.Error()
	rerr := j.runs.Error()

	if err := j.tf.Close(); err != nil && terr == nil {
		terr = err
	}
	if err := j.rf.Close(); err != nil && rerr == nil {
		rerr = err
	}
	if terr != nil {
		return terr
	}
	return rerr
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// ts formats t as RFC3339 in UTC, or "" for the zero time.
func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
