package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/position"
	"github.com/rustyeddy/trendline/pricing"
)

// session is the incremental state of one instrument. Only the goroutine
// processing the instrument touches it.
type session struct {
	inst    Instrument
	log     zerolog.Logger
	engine  *indicators.Engine
	ages    indicators.AgeTracker
	machine *position.Machine

	started bool
	last    time.Time // open time of the last processed bar
	bar     indicators.DerivedCandle
	age     int
}

func newSession(inst Instrument) (*session, error) {
	eng, err := indicators.NewEngine(inst.Indicators)
	if err != nil {
		return nil, err
	}
	return &session{
		inst:    inst,
		log:     log.With().Str("instrument", inst.Symbol).Logger(),
		engine:  eng,
		machine: position.NewMachine(inst.Symbol, inst.Position, true),
	}, nil
}

// start warms the indicators over closed, asks source for the current
// position and seeds the re-entry guard from the trend age of the last bar.
func (s *session) start(ctx context.Context, closed []pricing.Candle, source ledger.PositionSource) (position.State, error) {
	need := s.inst.Indicators.Warmup()
	if len(closed) < need {
		return position.State{}, &indicators.DataError{Have: len(closed), Need: need}
	}
	if err := pricing.Validate(closed); err != nil {
		return position.State{}, err
	}

	s.engine.Reset()
	s.ages.Reset()
	derived := make([]indicators.DerivedCandle, 0, len(closed))
	for _, c := range closed {
		dc := s.engine.Update(c)
		s.age = s.ages.Update(dc.Direction)
		s.bar = dc
		derived = append(derived, dc)
	}

	st, err := source.Position(ctx, s.inst.Symbol, derived)
	if err != nil {
		return position.State{}, err
	}
	s.machine.Restore(st)
	s.machine.Seed(s.bar.Direction, s.age)
	if st.Open() {
		// An inherited position has already traded its trend.
		cur := s.machine.State()
		cur.LastTraded = st.Side
		s.machine.Restore(cur)
	}

	s.last = s.bar.Time
	s.started = true
	return s.machine.State(), nil
}

// advance feeds bars newer than the last processed one, in order, and
// returns the resulting events.
func (s *session) advance(closed []pricing.Candle) []position.Event {
	var events []position.Event
	for _, c := range closed {
		if !c.Time.After(s.last) {
			continue
		}
		dc := s.engine.Update(c)
		s.age = s.ages.Update(dc.Direction)
		s.bar = dc
		s.last = c.Time

		s.log.Debug().
			Time("bar", c.Time).
			Float64("close", c.Close).
			Float64("trend_line", dc.TrendLine).
			Str("trend", dc.Direction.String()).
			Int("age", s.age).
			Float64("slope", dc.Slope).
			Msg("bar")

		events = append(events, s.machine.Step(dc, s.age)...)
	}
	return events
}

// Reconciliation is the state an instrument starts from.
type Reconciliation struct {
	Symbol string
	State  position.State
	Bar    indicators.DerivedCandle // last closed bar
	Age    int
}

// Reconcile warms the indicators over closed bars and resolves the starting
// position the same way the monitor does on start.
func Reconcile(ctx context.Context, inst Instrument, closed []pricing.Candle, source ledger.PositionSource) (Reconciliation, error) {
	s, err := newSession(inst)
	if err != nil {
		return Reconciliation{}, err
	}
	st, err := s.start(ctx, closed, source)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{Symbol: inst.Symbol, State: st, Bar: s.bar, Age: s.age}, nil
}
