// Package journal persists backtest runs and their trades, and renders
// backtest reports.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/id"
	"github.com/rustyeddy/trendline/ledger"
)

// Run describes one backtest of one instrument.
type Run struct {
	ID         string
	Created    time.Time
	Instrument string
	Timeframe  string
	Dataset    string

	// Indicator and trading parameters
	TrendPeriod     int
	TrendMultiplier float64
	HMAPeriod       int
	SlopeScaling    float64
	SlopeThreshold  float64
	TakeProfit      float64
	Quantity        float64

	// Candle range and the first bar that was allowed to trade.
	Start time.Time
	End   time.Time
	From  time.Time

	// Results
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64
	TotalPoints float64
	TotalPnL    float64
	AvgRunUp    float64

	Notes []string
}

// ApplySummary copies replay results onto the run.
func (r *Run) ApplySummary(s ledger.Summary) {
	r.Trades = s.Trades
	r.Wins = s.Wins
	r.Losses = s.Losses
	r.WinRate = s.WinRate
	r.TotalPoints = s.TotalPoints
	r.TotalPnL = s.TotalPnL
	r.AvgRunUp = s.AvgRunUp
}

type Journal interface {
	RecordRun(Run) error
	RecordTrade(runID string, t ledger.TradeRecord) error
	Close() error
}

// Record assigns IDs to the run and to every trade that lacks one, then
// writes them to j. Trade IDs carry the entry time.
func Record(j Journal, run *Run, trades []ledger.TradeRecord) error {
	if run.ID == "" {
		run.ID = id.New()
	}
	if run.Created.IsZero() {
		run.Created = time.Now().UTC()
	}
	if err := j.RecordRun(*run); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	for i := range trades {
		if trades[i].ID == "" {
			trades[i].ID = id.At(trades[i].EntryTime)
		}
		if err := j.RecordTrade(run.ID, trades[i]); err != nil {
			return fmt.Errorf("record trade %s: %w", trades[i].ID, err)
		}
	}
	return nil
}
