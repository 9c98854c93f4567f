package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendline/pricing"
)

// Params are the per-instrument indicator settings. All fields are required.
type Params struct {
	TrendPeriod     int     `json:"trend_period" yaml:"trend_period"`
	TrendMultiplier float64 `json:"trend_multiplier" yaml:"trend_multiplier"`
	HMAPeriod       int     `json:"hma_period" yaml:"hma_period"`
	SlopeScaling    float64 `json:"slope_scaling" yaml:"slope_scaling"`
}

func (p Params) Validate() error {
	switch {
	case p.TrendPeriod <= 0:
		return fmt.Errorf("trend period must be > 0, got %d", p.TrendPeriod)
	case p.TrendMultiplier <= 0:
		return fmt.Errorf("trend multiplier must be > 0, got %g", p.TrendMultiplier)
	case p.HMAPeriod < 2:
		return fmt.Errorf("hma period must be >= 2, got %d", p.HMAPeriod)
	case p.SlopeScaling <= 0:
		return fmt.Errorf("slope scaling must be > 0, got %g", p.SlopeScaling)
	}
	return nil
}

// Warmup is the number of bars needed before every derived field is
// defined: the HMA windows plus one previous HMA for the slope, or the
// trend period, whichever is longer.
func (p Params) Warmup() int {
	hma := p.HMAPeriod + SqrtWindow(p.HMAPeriod)
	if p.TrendPeriod > hma {
		return p.TrendPeriod
	}
	return hma
}

// DerivedCandle is a candle plus the indicator values computed at it.
// HMA and Slope are NaN during warm-up. TrendReady is false until the
// Supertrend has seen its full period; its line and direction before that
// are provisional.
type DerivedCandle struct {
	pricing.Candle

	TrendLine  float64   `json:"trend_line"`
	Direction  Direction `json:"direction"`
	TrendReady bool      `json:"trend_ready"`
	HMA        float64   `json:"hma"`
	Slope      float64   `json:"slope"`
}

// Ready reports whether every indicator value is defined and stable.
func (d DerivedCandle) Ready() bool {
	return d.TrendReady && !isNaN(d.HMA) && !isNaN(d.Slope)
}

// DataError reports a candle sequence that cannot produce a usable signal.
type DataError struct {
	Have int
	Need int
}

func (e *DataError) Error() string {
	if e.Have == 0 {
		return "indicators: no candles"
	}
	return fmt.Sprintf("indicators: %d candles, need at least %d for warm-up", e.Have, e.Need)
}

// Engine folds closed candles one at a time into DerivedCandles. It keeps
// only the small state each indicator needs, so a live loop can feed it bar
// by bar without recomputing history.
type Engine struct {
	params  Params
	trend   *Supertrend
	hma     *HMA
	prevHMA float64
	count   int
}

func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params:  p,
		trend:   NewSupertrend(p.TrendPeriod, p.TrendMultiplier),
		hma:     NewHMA(p.HMAPeriod),
		prevHMA: math.NaN(),
	}, nil
}

func (e *Engine) Params() Params { return e.params }

// Count is the number of candles consumed since the last Reset.
func (e *Engine) Count() int { return e.count }

func (e *Engine) Reset() {
	e.trend.Reset()
	e.hma.Reset()
	e.prevHMA = math.NaN()
	e.count = 0
}

// Update consumes the next closed candle. Candles must arrive in ascending
// time order.
func (e *Engine) Update(c pricing.Candle) DerivedCandle {
	e.trend.Update(c)
	e.hma.Update(c)
	e.count++

	h := e.hma.Value()
	d := DerivedCandle{
		Candle:    c,
		TrendLine:  e.trend.Value(),
		Direction:  e.trend.Direction(),
		TrendReady: e.trend.Ready(),
		HMA:        h,
		Slope:      SlopeDegrees(e.prevHMA, h, e.params.SlopeScaling),
	}
	e.prevHMA = h
	return d
}

// Derive runs the engine over a whole candle sequence. The output aligns
// 1:1 with the input. A sequence shorter than the warm-up returns a
// *DataError; an unordered sequence returns pricing.ErrUnordered.
func Derive(candles []pricing.Candle, p Params) ([]DerivedCandle, error) {
	e, err := NewEngine(p)
	if err != nil {
		return nil, err
	}
	if need := p.Warmup(); len(candles) < need {
		return nil, &DataError{Have: len(candles), Need: need}
	}
	if err := pricing.Validate(candles); err != nil {
		return nil, err
	}

	out := make([]DerivedCandle, len(candles))
	for i, c := range candles {
		out[i] = e.Update(c)
	}
	return out, nil
}
