package monitor

import (
	"math"
	"time"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/notify"
	"github.com/rustyeddy/trendline/position"
)

// Status is the dashboard view of one instrument.
type Status struct {
	Symbol         string        `json:"symbol"`
	Price          float64       `json:"price"`
	Trend          string        `json:"trend"`
	Slope          float64       `json:"slope"`
	SlopeThreshold float64       `json:"slope_threshold"`
	TrendLine      float64       `json:"supertrend"`
	TrendAge       int           `json:"trend_age"`
	Signal         string        `json:"signal"`
	SignalColor    string        `json:"signal_color"`
	Accuracy       float64       `json:"accuracy"`
	TotalTrades    int           `json:"total_trades"`
	Position       position.Side `json:"position"`
	EntryPrice     float64       `json:"entry_price,omitempty"`
	BarTime        time.Time     `json:"bar_time"`
	Updated        time.Time     `json:"updated"`
	Error          string        `json:"error,omitempty"`
}

// Snapshot is a copy of the monitor's view of every instrument plus the
// trades replayed over the history window, newest entry first.
type Snapshot struct {
	Signals    map[string]Status    `json:"signals"`
	History    []ledger.TradeRecord `json:"history"`
	LastUpdate time.Time            `json:"last_update"`
}

// Signal labels the current bar the way the dashboard shows it.
func Signal(d indicators.Direction, slope, threshold float64, age int) (label, color string) {
	if d == indicators.Bullish {
		switch {
		case slope >= threshold && age <= 1:
			return "ENTRY LONG", "green"
		case slope >= threshold:
			return "HOLD LONG", "green"
		}
		return "WEAK BULLISH", "yellow"
	}
	switch {
	case slope <= -threshold && age <= 1:
		return "ENTRY SHORT", "red"
	case slope <= -threshold:
		return "HOLD SHORT", "red"
	}
	return "WEAK BEARISH", "yellow"
}

func trendName(d indicators.Direction) string {
	if d == indicators.Bullish {
		return "BULLISH"
	}
	return "BEARISH"
}

// round keeps JSON encodable: NaN and infinities become 0.
func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (m *Monitor) update(s *session, trades []ledger.TradeRecord, now time.Time) {
	if !s.started {
		return
	}
	bar := s.bar
	st := s.machine.State()
	sum := ledger.Summarize(trades)
	thr := s.inst.Position.SlopeThreshold
	label, color := Signal(bar.Direction, bar.Slope, thr, s.age)

	status := Status{
		Symbol:         s.inst.Symbol,
		Price:          bar.Close,
		Trend:          trendName(bar.Direction),
		Slope:          round(bar.Slope, 2),
		SlopeThreshold: thr,
		TrendLine:      round(bar.TrendLine, 2),
		TrendAge:       s.age,
		Signal:         label,
		SignalColor:    color,
		Accuracy:       round(sum.WinRate, 1),
		TotalTrades:    sum.Closed,
		Position:       st.Side,
		BarTime:        bar.Time,
		Updated:        now,
	}
	if st.Open() {
		status.EntryPrice = st.EntryPrice
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[s.inst.Symbol] = status
	m.trades[s.inst.Symbol] = trades
	m.updated = now

	g := m.opts.Metrics
	g.LastBar.WithLabelValues(s.inst.Symbol).Set(float64(bar.Time.Unix()))
	g.Price.WithLabelValues(s.inst.Symbol).Set(bar.Close)
	g.Slope.WithLabelValues(s.inst.Symbol).Set(round(bar.Slope, 4))
	g.TrendAge.WithLabelValues(s.inst.Symbol).Set(float64(s.age))
	g.Direction.WithLabelValues(s.inst.Symbol).Set(float64(bar.Direction))
}

func (m *Monitor) setError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status[symbol]
	st.Symbol = symbol
	st.Error = err.Error()
	st.Updated = m.now()
	m.status[symbol] = st
}

// Snapshot returns a copy of the current status of every instrument.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Signals:    make(map[string]Status, len(m.status)),
		LastUpdate: m.updated,
	}
	for k, v := range m.status {
		snap.Signals[k] = v
	}
	for _, s := range m.sessions {
		snap.History = append(snap.History, m.trades[s.inst.Symbol]...)
	}
	ledger.SortNewestFirst(snap.History)
	return snap
}

// StartupReport builds the report sent when the monitor starts, from the
// reconciled positions and the trades replayed over ReportWindow.
func (m *Monitor) StartupReport() notify.StartupReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := notify.StartupReport{Window: m.opts.ReportWindow, DryRun: m.opts.DryRun}
	since := m.now().Add(-m.opts.ReportWindow)
	for _, s := range m.sessions {
		st, ok := m.status[s.inst.Symbol]
		if !ok || st.BarTime.IsZero() {
			continue
		}
		if st.Position == position.Long || st.Position == position.Short {
			r.Positions = append(r.Positions, notify.OpenPosition{
				Symbol:     s.inst.Symbol,
				Side:       st.Position,
				Size:       s.inst.Quantity,
				EntryPrice: st.EntryPrice,
			})
		}
		dir := indicators.Bearish
		if st.Trend == "BULLISH" {
			dir = indicators.Bullish
		}
		r.Markets = append(r.Markets, notify.MarketState{
			Symbol:    s.inst.Symbol,
			Direction: dir,
			Slope:     st.Slope,
			Threshold: st.SlopeThreshold,
			Price:     st.Price,
			Trades:    ledger.EnteredSince(m.trades[s.inst.Symbol], since),
		})
	}
	return r
}
