package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendline/pricing"
)

// HMA is a streaming Hull moving average of closes:
//
//	raw = 2*WMA(close, n/2) - WMA(close, n)
//	hma = WMA(raw, round(sqrt(n)))
//
// Value is NaN until every window is full, which takes
// n + round(sqrt(n)) - 1 bars.
type HMA struct {
	period int
	half   *WMA
	full   *WMA
	smooth *WMA
}

// NewHMA creates a Hull moving average. period must be at least 2 so the
// half window is non-empty.
func NewHMA(period int) *HMA {
	if period < 2 {
		panic("HMA period must be >= 2")
	}
	return &HMA{
		period: period,
		half:   NewWMA(period / 2),
		full:   NewWMA(period),
		smooth: NewWMA(SqrtWindow(period)),
	}
}

// SqrtWindow is the size of the final smoothing window for an HMA period.
func SqrtWindow(period int) int {
	s := int(math.Round(math.Sqrt(float64(period))))
	if s < 1 {
		s = 1
	}
	return s
}

func (h *HMA) Name() string { return fmt.Sprintf("HMA(%d)", h.period) }

func (h *HMA) Warmup() int { return h.period + SqrtWindow(h.period) - 1 }

func (h *HMA) Reset() {
	h.half.Reset()
	h.full.Reset()
	h.smooth.Reset()
}

func (h *HMA) Update(c pricing.Candle) {
	h.half.Add(c.Close)
	h.full.Add(c.Close)
	if h.full.Ready() && h.half.Ready() {
		h.smooth.Add(2*h.half.Value() - h.full.Value())
	}
}

func (h *HMA) Ready() bool { return h.smooth.Ready() }

func (h *HMA) Value() float64 { return h.smooth.Value() }
