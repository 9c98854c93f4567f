package indicators

import (
	"fmt"
	"math"
)

// WMA is a streaming linearly weighted moving average. Inside a full window
// of n values the oldest has weight 1 and the newest weight n.
type WMA struct {
	n      int
	denom  float64
	values []float64
}

// NewWMA creates a weighted moving average over a window of n values.
func NewWMA(n int) *WMA {
	if n <= 0 {
		panic("WMA window must be > 0")
	}
	return &WMA{
		n:      n,
		denom:  float64(n*(n+1)) / 2,
		values: make([]float64, 0, n),
	}
}

func (w *WMA) Name() string { return fmt.Sprintf("WMA(%d)", w.n) }

func (w *WMA) Warmup() int { return w.n }

func (w *WMA) Reset() { w.values = w.values[:0] }

// Add pushes the next value into the window.
func (w *WMA) Add(x float64) {
	if len(w.values) == w.n {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.n-1]
	}
	w.values = append(w.values, x)
}

func (w *WMA) Ready() bool { return len(w.values) == w.n }

// Value returns the weighted average, or NaN until the window is full.
func (w *WMA) Value() float64 {
	if !w.Ready() {
		return math.NaN()
	}
	sum := 0.0
	for i, x := range w.values {
		sum += x * float64(i+1)
	}
	return sum / w.denom
}
