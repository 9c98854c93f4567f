package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/trendline/ledger"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, instrument, timeframe, dataset,
		 trend_period, trend_multiplier, hma_period, slope_scaling, slope_threshold, take_profit, quantity,
		 start_time, end_time, from_time,
		 trades, wins, losses, win_rate, total_points, total_pnl, avg_run_up)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Created.UTC(), r.Instrument, r.Timeframe, r.Dataset,
		r.TrendPeriod, r.TrendMultiplier, r.HMAPeriod, r.SlopeScaling, r.SlopeThreshold, r.TakeProfit, r.Quantity,
		nullTime(r.Start), nullTime(r.End), nullTime(r.From),
		r.Trades, r.Wins, r.Losses, r.WinRate, r.TotalPoints, r.TotalPnL, r.AvgRunUp,
	)
	return err
}

func (j *SQLite) RecordTrade(runID string, t ledger.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, side, quantity, entry_price, exit_price, peak_price,
		 entry_time, exit_time, pnl_per_unit, pnl, run_up, reason, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, runID, t.Instrument, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice, t.PeakPrice,
		t.EntryTime.UTC(), nullTime(t.ExitTime), t.PnLPerUnit, t.PnL, t.RunUp, string(t.Reason), string(t.Status),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
