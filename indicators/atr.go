package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendline/pricing"
)

// ATR is a streaming Average True Range with Wilder-style exponential
// smoothing (alpha = 1/period).
//
// The first bar has no previous close, so its true range is high-low and it
// seeds the average directly. Value is defined from the first update on;
// Ready reports when period bars have been seen.
type ATR struct {
	period    int
	alpha     float64
	atr       float64
	prevClose float64
	count     int
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{
		period: period,
		alpha:  1.0 / float64(period),
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int { return a.period }

func (a *ATR) Reset() {
	a.atr = 0
	a.prevClose = 0
	a.count = 0
}

func (a *ATR) Update(c pricing.Candle) {
	tr := c.High - c.Low
	if a.count > 0 {
		tr = trueRange(c, a.prevClose)
	}

	if a.count == 0 {
		a.atr = tr
	} else {
		a.atr = a.alpha*tr + (1-a.alpha)*a.atr
	}

	a.prevClose = c.Close
	a.count++
}

func (a *ATR) Ready() bool { return a.count >= a.period }

// Value returns the last smoothed value, including during warm-up.
func (a *ATR) Value() float64 { return a.atr }

// trueRange calculates the True Range for a candle given the previous close
func trueRange(current pricing.Candle, prevClose float64) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - prevClose)
	lowClose := math.Abs(current.Low - prevClose)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
