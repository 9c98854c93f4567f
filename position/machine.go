package position

import (
	"github.com/rustyeddy/trendline/indicators"
)

// Machine is the position state machine for one instrument. It is not safe
// for concurrent use; each instrument owns its own Machine.
//
// Each ready bar is evaluated in a fixed order:
//
//  1. peak update while open
//  2. take-profit at exactly entry ± TakeProfit; ends the bar
//  3. trailing exit at the close when the trend opposes the position
//  4. entry when flat, the trend is at most one bar old and the slope clears
//     the threshold
//
// A bar whose HMA or slope is undefined is ignored entirely.
type Machine struct {
	instrument string
	params     Params
	live       bool
	state      State
}

// NewMachine returns a flat machine. In live mode LastTraded suppresses
// re-entry into a trend that has already been traded or that was already
// under way when the machine was seeded.
func NewMachine(instrument string, p Params, live bool) *Machine {
	return &Machine{
		instrument: instrument,
		params:     p,
		live:       live,
		state:      State{Side: Flat, LastTraded: Unset},
	}
}

func (m *Machine) Instrument() string { return m.instrument }

func (m *Machine) Params() Params { return m.params }

func (m *Machine) Live() bool { return m.live }

func (m *Machine) State() State { return m.state }

// Restore replaces the current state, for example after reconciling with
// an exchange or a replayed ledger.
func (m *Machine) Restore(s State) {
	if s.Side == "" {
		s.Side = Flat
	}
	if s.LastTraded == "" {
		s.LastTraded = Unset
	}
	m.state = s
}

// Seed sets the re-entry guard on a cold start. A trend older than one bar
// was not seen forming, so it is not traded until it flips.
func (m *Machine) Seed(d indicators.Direction, age int) {
	if age > 1 {
		m.state.LastTraded = SideOf(d)
		return
	}
	m.state.LastTraded = Flat
}

// Step evaluates one closed bar. age is the trend age at the bar. It
// returns the events in the order they happened; nil means NONE.
func (m *Machine) Step(bar indicators.DerivedCandle, age int) []Event {
	if !bar.Ready() {
		return nil
	}

	var events []Event
	st := &m.state

	if m.live && st.LastTraded.Opposes(bar.Direction) {
		st.LastTraded = Flat
	}

	switch st.Side {
	case Long:
		if bar.High > st.PeakPrice {
			st.PeakPrice = bar.High
		}
	case Short:
		if bar.Low < st.PeakPrice {
			st.PeakPrice = bar.Low
		}
	}

	if tp := m.params.TakeProfit; tp > 0 && st.Open() {
		switch {
		case st.Side == Long && bar.High >= st.EntryPrice+tp:
			return append(events, m.close(bar, TakeProfitLong, st.EntryPrice+tp))
		case st.Side == Short && bar.Low <= st.EntryPrice-tp:
			return append(events, m.close(bar, TakeProfitShort, st.EntryPrice-tp))
		}
	}

	if st.Side.Opposes(bar.Direction) {
		d := ExitLong
		if st.Side == Short {
			d = ExitShort
		}
		events = append(events, m.close(bar, d, bar.Close))
	}

	if st.Side == Flat && age <= 1 {
		if ev, ok := m.enter(bar); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (m *Machine) enter(bar indicators.DerivedCandle) (Event, bool) {
	var d Decision
	switch {
	case bar.Direction == indicators.Bullish && bar.Slope >= m.params.SlopeThreshold:
		d = EnterLong
	case bar.Direction == indicators.Bearish && bar.Slope <= -m.params.SlopeThreshold:
		d = EnterShort
	default:
		return Event{}, false
	}

	side := d.Side()
	if m.live && m.state.LastTraded == side {
		return Event{}, false
	}

	m.state.Side = side
	m.state.EntryPrice = bar.Close
	m.state.PeakPrice = bar.Close
	m.state.EntryTime = bar.Time
	if m.live {
		m.state.LastTraded = side
	}

	return Event{
		Instrument: m.instrument,
		Decision:   d,
		Time:       bar.Time,
		Price:      bar.Close,
	}, true
}

func (m *Machine) close(bar indicators.DerivedCandle, d Decision, price float64) Event {
	st := m.state
	ev := Event{
		Instrument: m.instrument,
		Decision:   d,
		Time:       bar.Time,
		Price:      price,
		EntryPrice: st.EntryPrice,
		EntryTime:  st.EntryTime,
		PeakPrice:  st.PeakPrice,
		PnL:        st.PnL(price),
		RunUp:      st.RunUp(),
	}

	m.state = State{Side: Flat, LastTraded: st.LastTraded}
	return ev
}
