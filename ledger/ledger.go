// Package ledger replays derived candles through the position state machine
// and keeps the resulting trade records. The same replay drives backtests
// and startup reconciliation.
package ledger

import (
	"sort"
	"time"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/position"
)

type Status string

const (
	Open   Status = "OPEN"
	Closed Status = "CLOSED"
)

// Reason records why a trade ended.
type Reason string

const (
	ReasonTakeProfit    Reason = "TAKE_PROFIT"
	ReasonTrendReversal Reason = "TREND_REVERSAL"
	ReasonMarkToMarket  Reason = "MARK_TO_MARKET"
)

// TradeRecord is one entry/exit pair. An OPEN record is marked to market at
// the last close and has a zero ExitTime.
type TradeRecord struct {
	ID         string        `json:"id,omitempty"`
	Instrument string        `json:"instrument"`
	Side       position.Side `json:"side"`
	Quantity   float64       `json:"quantity"`

	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PeakPrice  float64   `json:"peak_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`

	PnLPerUnit float64 `json:"pnl_per_unit"`
	PnL        float64 `json:"pnl"`
	RunUp      float64 `json:"run_up"`

	Reason Reason `json:"reason"`
	Status Status `json:"status"`
}

func (t TradeRecord) Win() bool { return t.PnLPerUnit > 0 }

// Options control a replay.
type Options struct {
	Params   position.Params
	Quantity float64

	// From, when set, restricts trading to bars at or after From. Earlier
	// bars still advance the trend age.
	From time.Time
}

// Replay feeds derived through a fresh, flat machine in replay mode and
// returns one record per trade in entry order. Bars that are still warming
// up are skipped by the machine. Replaying the same input yields the same
// records.
func Replay(instrument string, derived []indicators.DerivedCandle, opts Options) []TradeRecord {
	m := position.NewMachine(instrument, opts.Params, false)
	var ages indicators.AgeTracker
	var trades []TradeRecord

	for _, bar := range derived {
		age := ages.Update(bar.Direction)
		if !opts.From.IsZero() && bar.Time.Before(opts.From) {
			continue
		}
		for _, ev := range m.Step(bar, age) {
			if ev.Decision.IsExit() {
				trades = append(trades, closedRecord(ev, opts.Quantity))
			}
		}
	}

	if st := m.State(); st.Open() && len(derived) > 0 {
		last := derived[len(derived)-1].Close
		pnl := st.PnL(last)
		trades = append(trades, TradeRecord{
			Instrument: instrument,
			Side:       st.Side,
			Quantity:   opts.Quantity,
			EntryPrice: st.EntryPrice,
			ExitPrice:  last,
			PeakPrice:  st.PeakPrice,
			EntryTime:  st.EntryTime,
			PnLPerUnit: pnl,
			PnL:        pnl * opts.Quantity,
			RunUp:      st.RunUp(),
			Reason:     ReasonMarkToMarket,
			Status:     Open,
		})
	}
	return trades
}

func closedRecord(ev position.Event, qty float64) TradeRecord {
	side := ev.Decision.Side()
	reason := ReasonTrendReversal
	if ev.Decision.IsTakeProfit() {
		reason = ReasonTakeProfit
	}

	return TradeRecord{
		Instrument: ev.Instrument,
		Side:       side,
		Quantity:   qty,
		EntryPrice: ev.EntryPrice,
		ExitPrice:  ev.Price,
		PeakPrice:  ev.PeakPrice,
		EntryTime:  ev.EntryTime,
		ExitTime:   ev.Time,
		PnLPerUnit: ev.PnL,
		PnL:        ev.PnL * qty,
		RunUp:      ev.RunUp,
		Reason:     reason,
		Status:     Closed,
	}
}

// Current returns the open trade at the end of trades, if any.
func Current(trades []TradeRecord) (TradeRecord, bool) {
	if n := len(trades); n > 0 && trades[n-1].Status == Open {
		return trades[n-1], true
	}
	return TradeRecord{}, false
}

// EnteredSince returns the trades entered at or after t.
func EnteredSince(trades []TradeRecord, t time.Time) []TradeRecord {
	var out []TradeRecord
	for _, tr := range trades {
		if !tr.EntryTime.Before(t) {
			out = append(out, tr)
		}
	}
	return out
}

// SortNewestFirst orders trades by entry time, most recent first. Ties keep
// their instrument order.
func SortNewestFirst(trades []TradeRecord) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].EntryTime.After(trades[j].EntryTime)
	})
}

// Summary aggregates closed trades. Open trades are only counted.
type Summary struct {
	Trades int `json:"trades"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	// WinRate is the percentage of closed trades with a positive PnL.
	WinRate     float64 `json:"win_rate"`
	TotalPoints float64 `json:"total_points"`
	TotalPnL    float64 `json:"total_pnl"`
	AvgRunUp    float64 `json:"avg_run_up"`
	TakeProfits int     `json:"take_profits"`
}

func Summarize(trades []TradeRecord) Summary {
	var s Summary
	var runUp float64
	for _, t := range trades {
		s.Trades++
		if t.Status == Open {
			s.Open++
			continue
		}
		s.Closed++
		if t.Win() {
			s.Wins++
		} else {
			s.Losses++
		}
		if t.Reason == ReasonTakeProfit {
			s.TakeProfits++
		}
		s.TotalPoints += t.PnLPerUnit
		s.TotalPnL += t.PnL
		runUp += t.RunUp
	}
	if s.Closed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closed) * 100
		s.AvgRunUp = runUp / float64(s.Closed)
	}
	return s
}
