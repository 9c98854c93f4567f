// Package indicators provides the trend and momentum indicators used by the
// position engine: a volatility-banded trailing line (Supertrend), a Hull
// moving average and its angle-normalised slope.
//
// Every indicator is a strict left-to-right fold over closed candles. The
// streaming types carry a small explicit state and the batch Derive function
// is built on them, so live and replay results are bit-identical.
package indicators

import (
	"math"

	"github.com/rustyeddy/trendline/pricing"
)

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "ATR(10)" or "HMA(31)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c pricing.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool
}

type ValueF64 interface {
	// Value returns the current indicator value. Callers should check
	// Ready(); some indicators return NaN until then.
	Value() float64
}

// Direction is the sign of the trend: +1 bullish, -1 bearish.
type Direction int8

const (
	Bearish Direction = -1
	Bullish Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "BULL"
	case Bearish:
		return "BEAR"
	default:
		return "NONE"
	}
}

func isNaN(x float64) bool { return math.IsNaN(x) }
