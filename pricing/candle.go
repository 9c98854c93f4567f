package pricing

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Candle is one OHLCV bar. Time is the bar open time.
type Candle struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64
}

// Mid returns the midpoint of the bar range, (high+low)/2.
func (c Candle) Mid() float64 {
	return (c.High + c.Low) / 2
}

var (
	ErrEmpty     = errors.New("pricing: empty candle sequence")
	ErrUnordered = errors.New("pricing: candles not in ascending time order")
	ErrDuplicate = errors.New("pricing: duplicate candle time")
)

// Validate reports whether candles are strictly ascending by time with no
// duplicate timestamps. Gaps are allowed.
func Validate(candles []Candle) error {
	if len(candles) == 0 {
		return ErrEmpty
	}
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Time, candles[i].Time
		switch {
		case cur.Equal(prev):
			return fmt.Errorf("%w at index %d (%s)", ErrDuplicate, i, cur.Format(time.RFC3339))
		case cur.Before(prev):
			return fmt.Errorf("%w at index %d (%s before %s)", ErrUnordered, i,
				cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}

// Normalize returns a copy of candles sorted ascending by time with
// duplicate timestamps removed. The first occurrence of a timestamp wins.
func Normalize(candles []Candle) []Candle {
	out := make([]Candle, len(candles))
	copy(out, candles)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	n := 0
	for i := range out {
		if n > 0 && out[i].Time.Equal(out[n-1].Time) {
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// Between returns the sub-slice of ascending candles whose time is in
// [from, to). A zero bound is open.
func Between(candles []Candle, from, to time.Time) []Candle {
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(candles), func(i int) bool {
			return !candles[i].Time.Before(from)
		})
	}
	hi := len(candles)
	if !to.IsZero() {
		hi = sort.Search(len(candles), func(i int) bool {
			return !candles[i].Time.Before(to)
		})
	}
	if hi < lo {
		hi = lo
	}
	return candles[lo:hi]
}
