package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the live loop.
type Metrics struct {
	Cycles    prometheus.Counter
	Errors    *prometheus.CounterVec
	Decisions *prometheus.CounterVec
	Orders    *prometheus.CounterVec

	LastBar   *prometheus.GaugeVec
	Price     *prometheus.GaugeVec
	Slope     *prometheus.GaugeVec
	TrendAge  *prometheus.GaugeVec
	Direction *prometheus.GaugeVec

	CycleDuration prometheus.Histogram
}

// NewMetrics registers the monitor metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	const ns, sub = "trendline", "monitor"

	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "cycles_total",
			Help: "Total number of polling cycles",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "errors_total",
			Help: "Per-instrument processing failures",
		}, []string{"instrument"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "decisions_total",
			Help: "Position decisions by instrument and kind",
		}, []string{"instrument", "decision"}),
		Orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "orders_total",
			Help: "Market orders sent, by instrument, side and result",
		}, []string{"instrument", "side", "result"}),

		LastBar: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "last_bar_timestamp_seconds",
			Help: "Open time of the last processed closed bar",
		}, []string{"instrument"}),
		Price: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "close_price",
			Help: "Close of the last processed bar",
		}, []string{"instrument"}),
		Slope: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "slope_degrees",
			Help: "HMA slope of the last processed bar",
		}, []string{"instrument"}),
		TrendAge: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "trend_age_bars",
			Help: "Bars since the last trend flip",
		}, []string{"instrument"}),
		Direction: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "trend_direction",
			Help: "1 bullish, -1 bearish",
		}, []string{"instrument"}),

		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "cycle_duration_seconds",
			Help:    "Wall time of one polling cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
