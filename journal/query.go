package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/position"
)

const tradeColumns = `trade_id, instrument, side, quantity, entry_price, exit_price, peak_price,
	entry_time, exit_time, pnl_per_unit, pnl, run_up, reason, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (ledger.TradeRecord, error) {
	var (
		rec    ledger.TradeRecord
		side   string
		reason string
		status string
		exit   sql.NullTime
	)
	err := s.Scan(
		&rec.ID,
		&rec.Instrument,
		&side,
		&rec.Quantity,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.PeakPrice,
		&rec.EntryTime,
		&exit,
		&rec.PnLPerUnit,
		&rec.PnL,
		&rec.RunUp,
		&reason,
		&status,
	)
	if err != nil {
		return ledger.TradeRecord{}, err
	}
	rec.Side = position.Side(side)
	rec.Reason = ledger.Reason(reason)
	rec.Status = ledger.Status(status)
	rec.EntryTime = rec.EntryTime.UTC()
	if exit.Valid {
		rec.ExitTime = exit.Time.UTC()
	}
	return rec, nil
}

func (j *SQLite) listTrades(query string, args ...any) ([]ledger.TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (ledger.TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return rec, err
}

// ListTradesByRun returns the trades of one run in entry order.
func (j *SQLite) ListTradesByRun(runID string) ([]ledger.TradeRecord, error) {
	return j.listTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE run_id = ?
		ORDER BY entry_time ASC, trade_id ASC`, runID)
}

// ListTradesClosedBetween returns closed trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]ledger.TradeRecord, error) {
	return j.listTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, trade_id ASC`, start.UTC(), end.UTC())
}

// GetRun returns a run by ID.
func (j *SQLite) GetRun(runID string) (Run, error) {
	var (
		r                Run
		start, end, from sql.NullTime
	)
	err := j.db.QueryRow(`
		SELECT run_id, created, instrument, timeframe, dataset,
		 trend_period, trend_multiplier, hma_period, slope_scaling, slope_threshold, take_profit, quantity,
		 start_time, end_time, from_time,
		 trades, wins, losses, win_rate, total_points, total_pnl, avg_run_up
		FROM runs WHERE run_id = ?`, runID).Scan(
		&r.ID, &r.Created, &r.Instrument, &r.Timeframe, &r.Dataset,
		&r.TrendPeriod, &r.TrendMultiplier, &r.HMAPeriod, &r.SlopeScaling, &r.SlopeThreshold, &r.TakeProfit, &r.Quantity,
		&start, &end, &from,
		&r.Trades, &r.Wins, &r.Losses, &r.WinRate, &r.TotalPoints, &r.TotalPnL, &r.AvgRunUp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return Run{}, err
	}
	r.Created = r.Created.UTC()
	if start.Valid {
		r.Start = start.Time.UTC()
	}
	if end.Valid {
		r.End = end.Time.UTC()
	}
	if from.Valid {
		r.From = from.Time.UTC()
	}
	return r, nil
}
