package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendline/pricing"
)

// Supertrend is the volatility-banded trailing-stop line.
//
// Bands are mid ± multiplier*ATR. A band only moves toward price unless the
// previous close broke through it, so the line never retreats against the
// held direction. The direction flips when the close reaches the opposite
// band. The first bar seeds direction +1 and both bands at zero; values are
// unstable until roughly period bars have been seen.
type Supertrend struct {
	period     int
	multiplier float64
	atr        *ATR

	upper     float64
	lower     float64
	dir       Direction
	prevClose float64
	count     int
}

func NewSupertrend(period int, multiplier float64) *Supertrend {
	if multiplier <= 0 {
		panic("Supertrend multiplier must be > 0")
	}
	return &Supertrend{
		period:     period,
		multiplier: multiplier,
		atr:        NewATR(period),
		dir:        Bullish,
	}
}

func (s *Supertrend) Name() string {
	return fmt.Sprintf("Supertrend(%d,%g)", s.period, s.multiplier)
}

func (s *Supertrend) Warmup() int { return s.period }

func (s *Supertrend) Reset() {
	s.atr.Reset()
	s.upper = 0
	s.lower = 0
	s.dir = Bullish
	s.prevClose = 0
	s.count = 0
}

func (s *Supertrend) Update(c pricing.Candle) {
	s.atr.Update(c)
	defer func() {
		s.prevClose = c.Close
		s.count++
	}()

	if s.count == 0 {
		return
	}

	band := s.multiplier * s.atr.Value()
	upper := c.Mid() + band
	lower := c.Mid() - band

	if upper < s.upper || s.prevClose > s.upper {
		s.upper = upper
	}
	if lower > s.lower || s.prevClose < s.lower {
		s.lower = lower
	}

	switch {
	case s.dir == Bullish && c.Close <= s.lower:
		s.dir = Bearish
	case s.dir == Bearish && c.Close >= s.upper:
		s.dir = Bullish
	}
}

func (s *Supertrend) Ready() bool { return s.count >= s.period }

// Value returns the trailing line: the lower band while bullish, the upper
// band while bearish.
func (s *Supertrend) Value() float64 {
	if s.dir == Bullish {
		return s.lower
	}
	return s.upper
}

func (s *Supertrend) Direction() Direction { return s.dir }

// Bands returns the current final upper and lower bands.
func (s *Supertrend) Bands() (upper, lower float64) { return s.upper, s.lower }
