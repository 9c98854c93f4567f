// Package position holds the per-instrument position state machine. It
// consumes derived candles bar by bar and emits entry, trailing-exit and
// take-profit events.
package position

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/indicators"
)

type Side string

const (
	Flat  Side = "FLAT"
	Long  Side = "LONG"
	Short Side = "SHORT"

	// Unset is only used for LastTraded: nothing traded yet and no
	// suppression in force.
	Unset Side = "UNSET"
)

// SideOf maps a trend direction to the position side that trades it.
func SideOf(d indicators.Direction) Side {
	switch d {
	case indicators.Bullish:
		return Long
	case indicators.Bearish:
		return Short
	default:
		return Flat
	}
}

// Opposes reports whether direction d runs against side s.
func (s Side) Opposes(d indicators.Direction) bool {
	return (s == Long && d == indicators.Bearish) || (s == Short && d == indicators.Bullish)
}

type Decision string

const (
	None            Decision = "NONE"
	EnterLong       Decision = "ENTER_LONG"
	EnterShort      Decision = "ENTER_SHORT"
	ExitLong        Decision = "EXIT_LONG"
	ExitShort       Decision = "EXIT_SHORT"
	TakeProfitLong  Decision = "TAKE_PROFIT_LONG"
	TakeProfitShort Decision = "TAKE_PROFIT_SHORT"
)

func (d Decision) IsEntry() bool { return d == EnterLong || d == EnterShort }

func (d Decision) IsExit() bool {
	return d == ExitLong || d == ExitShort || d == TakeProfitLong || d == TakeProfitShort
}

func (d Decision) IsTakeProfit() bool { return d == TakeProfitLong || d == TakeProfitShort }

// Side is the position side the decision opens or closes.
func (d Decision) Side() Side {
	switch d {
	case EnterLong, ExitLong, TakeProfitLong:
		return Long
	case EnterShort, ExitShort, TakeProfitShort:
		return Short
	default:
		return Flat
	}
}

// Params are the per-instrument trading rules.
type Params struct {
	// SlopeThreshold is the minimum absolute HMA slope in degrees for an entry.
	SlopeThreshold float64 `json:"slope_threshold" yaml:"slope_threshold"`

	// TakeProfit is the fixed price distance from entry that closes a
	// position. Zero disables take-profit.
	TakeProfit float64 `json:"take_profit" yaml:"take_profit"`
}

func (p Params) Validate() error {
	if p.SlopeThreshold <= 0 || p.SlopeThreshold >= 90 {
		return fmt.Errorf("slope threshold must be in (0, 90), got %g", p.SlopeThreshold)
	}
	if p.TakeProfit < 0 {
		return fmt.Errorf("take profit must be >= 0, got %g", p.TakeProfit)
	}
	return nil
}

// State is the position of one instrument.
type State struct {
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`

	// PeakPrice is the most favourable price seen while open: the highest
	// high for LONG, the lowest low for SHORT.
	PeakPrice float64 `json:"peak_price"`

	// LastTraded blocks re-entry into the same trend in live mode.
	LastTraded Side `json:"last_traded"`
}

func (s State) Open() bool { return s.Side == Long || s.Side == Short }

// RunUp is the maximum favourable excursion as a fraction of entry.
func (s State) RunUp() float64 {
	if s.EntryPrice == 0 {
		return 0
	}
	switch s.Side {
	case Long:
		return (s.PeakPrice - s.EntryPrice) / s.EntryPrice
	case Short:
		return (s.EntryPrice - s.PeakPrice) / s.EntryPrice
	}
	return 0
}

// PnL is the per-unit profit of closing at price.
func (s State) PnL(price float64) float64 {
	switch s.Side {
	case Long:
		return price - s.EntryPrice
	case Short:
		return s.EntryPrice - price
	}
	return 0
}

// Event is one transition emitted by the machine.
type Event struct {
	Instrument string    `json:"instrument"`
	Decision   Decision  `json:"decision"`
	Time       time.Time `json:"time"`
	Price      float64   `json:"price"`

	// Set on exits.
	EntryPrice float64   `json:"entry_price,omitempty"`
	EntryTime  time.Time `json:"entry_time,omitempty"`
	PeakPrice  float64   `json:"peak_price,omitempty"`
	PnL        float64   `json:"pnl,omitempty"`
	RunUp      float64   `json:"run_up,omitempty"`
}

func (e Event) String() string {
	if e.Decision.IsExit() {
		return fmt.Sprintf("%s %s @ %.4f (entry %.4f, pnl %+.4f, run-up %.2f%%)",
			e.Instrument, e.Decision, e.Price, e.EntryPrice, e.PnL, e.RunUp*100)
	}
	return fmt.Sprintf("%s %s @ %.4f", e.Instrument, e.Decision, e.Price)
}
