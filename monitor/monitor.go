// Package monitor runs the live polling loop: one session per instrument,
// fed closed bars from the exchange, reconciled on start, acting on the
// decisions of the position state machine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/trendline/exchange"
	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/notify"
	"github.com/rustyeddy/trendline/position"
	"github.com/rustyeddy/trendline/pricing"
)

// CandleFetcher returns bars sorted ascending without duplicate times.
type CandleFetcher interface {
	Candles(ctx context.Context, symbol, resolution string, start, end time.Time) ([]pricing.Candle, error)
}

// OrderPlacer sends market orders.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side exchange.Side, size float64) (exchange.Order, error)
}

// Instrument is the strategy configuration of one symbol.
type Instrument struct {
	Symbol     string
	Indicators indicators.Params
	Position   position.Params
	Quantity   float64
}

type Options struct {
	Instruments []Instrument

	Resolution string        // exchange resolution, e.g. "15m"
	Bar        time.Duration // length of one bar
	History    time.Duration // window fetched every cycle
	DryRun     bool

	Fetcher  CandleFetcher
	Orders   OrderPlacer // required unless DryRun
	Source   ledger.PositionSource
	Notifier notify.Notifier
	Metrics  *Metrics

	Interval     time.Duration
	Offset       time.Duration
	RetryDelay   time.Duration
	ReportWindow time.Duration // history covered by the startup report

	Now func() time.Time
}

type Monitor struct {
	opts     Options
	sessions []*session

	mu      sync.RWMutex
	status  map[string]Status
	trades  map[string][]ledger.TradeRecord
	updated time.Time
}

func New(opts Options) (*Monitor, error) {
	if len(opts.Instruments) == 0 {
		return nil, errors.New("monitor: no instruments")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("monitor: no candle fetcher")
	}
	if !opts.DryRun && opts.Orders == nil {
		return nil, errors.New("monitor: live trading needs an order placer")
	}
	if opts.Resolution == "" {
		return nil, errors.New("monitor: no resolution")
	}
	if opts.Bar <= 0 {
		return nil, errors.New("monitor: bar duration must be positive")
	}
	if opts.History <= 0 {
		opts.History = 48 * time.Hour
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Second
	}
	if opts.ReportWindow <= 0 {
		opts.ReportWindow = 24 * time.Hour
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}

	m := &Monitor{
		opts:   opts,
		status: make(map[string]Status),
		trades: make(map[string][]ledger.TradeRecord),
	}

	replay := make(map[string]ledger.Options, len(opts.Instruments))
	seen := make(map[string]bool)
	for _, inst := range opts.Instruments {
		if inst.Symbol == "" {
			return nil, errors.New("monitor: instrument without symbol")
		}
		if seen[inst.Symbol] {
			return nil, fmt.Errorf("monitor: duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = true
		if err := inst.Position.Validate(); err != nil {
			return nil, fmt.Errorf("monitor: %s: %w", inst.Symbol, err)
		}
		if inst.Quantity <= 0 {
			return nil, fmt.Errorf("monitor: %s: quantity must be positive", inst.Symbol)
		}
		s, err := newSession(inst)
		if err != nil {
			return nil, fmt.Errorf("monitor: %s: %w", inst.Symbol, err)
		}
		m.sessions = append(m.sessions, s)
		replay[inst.Symbol] = ledger.Options{Params: inst.Position, Quantity: inst.Quantity}
	}
	if m.opts.Source == nil {
		m.opts.Source = ledger.ReplaySource{Options: replay}
	}
	return m, nil
}

func (m *Monitor) Metrics() *Metrics { return m.opts.Metrics }

func (m *Monitor) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now()
}

// Start runs the first cycle, which reconciles every instrument, and sends
// the startup report. Instruments that could not start are retried by the
// next Cycle.
func (m *Monitor) Start(ctx context.Context) error {
	err := m.Cycle(ctx)
	if nerr := m.opts.Notifier.Notify(ctx, m.StartupReport().String()); nerr != nil {
		log.Warn().Err(nerr).Msg("startup report not sent")
	}
	return err
}

// Run starts the monitor and polls until ctx is cancelled. Polls are
// aligned to Interval plus Offset; a failed cycle is retried after
// RetryDelay.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().
		Int("instruments", len(m.sessions)).
		Str("resolution", m.opts.Resolution).
		Bool("dry_run", m.opts.DryRun).
		Str("source", m.opts.Source.Name()).
		Msg("monitor starting")

	err := m.Start(ctx)
	for {
		wait := NextPoll(m.now(), m.opts.Interval, m.opts.Offset)
		if err != nil {
			wait = m.opts.RetryDelay
			log.Warn().Err(err).Dur("retry_in", wait).Msg("cycle had failures")
		} else {
			log.Debug().Dur("sleep", wait).Msg("waiting for next poll")
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info().Msg("monitor stopped")
			return nil
		case <-t.C:
		}
		err = m.Cycle(ctx)
	}
}

// NextPoll returns how long to wait from now until the next multiple of
// interval plus offset.
func NextPoll(now time.Time, interval, offset time.Duration) time.Duration {
	next := now.Truncate(interval).Add(offset)
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next.Sub(now)
}

// Cycle processes every instrument concurrently. A failing or panicking
// instrument does not affect the others; the failures are joined into the
// returned error.
func (m *Monitor) Cycle(ctx context.Context) error {
	start := time.Now()
	m.opts.Metrics.Cycles.Inc()

	errs := make([]error, len(m.sessions))
	var wg sync.WaitGroup
	for i, s := range m.sessions {
		wg.Add(1)
		go func(i int, s *session) {
			defer wg.Done()
			errs[i] = m.runSession(ctx, s)
		}(i, s)
	}
	wg.Wait()

	m.opts.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
	return errors.Join(errs...)
}

func (m *Monitor) runSession(ctx context.Context, s *session) (err error) {
	sym := s.inst.Symbol
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", sym, r)
		}
		if err == nil {
			return
		}
		m.opts.Metrics.Errors.WithLabelValues(sym).Inc()
		m.setError(sym, err)

		var de *indicators.DataError
		if errors.As(err, &de) {
			s.log.Warn().Err(err).Msg("skipping cycle")
			return
		}
		s.log.Error().Err(err).Msg("cycle failed")
	}()
	return m.process(ctx, s)
}

func (m *Monitor) process(ctx context.Context, s *session) error {
	sym := s.inst.Symbol
	now := m.now()

	candles, err := m.opts.Fetcher.Candles(ctx, sym, m.opts.Resolution, now.Add(-m.opts.History), now)
	if err != nil {
		return fmt.Errorf("%s: fetch candles: %w", sym, err)
	}
	closed := ClosedBars(candles, now, m.opts.Bar)

	var errs []error
	if !s.started {
		st, err := s.start(ctx, closed, m.opts.Source)
		if err != nil {
			return fmt.Errorf("%s: %w", sym, err)
		}
		s.log.Info().
			Str("source", m.opts.Source.Name()).
			Str("side", string(st.Side)).
			Float64("entry", st.EntryPrice).
			Str("last_traded", string(s.machine.State().LastTraded)).
			Int("trend_age", s.age).
			Msg("reconciled")

		// A replayed position has already been stepped through the last
		// bar. A position read from the exchange has not, and a fresh trend
		// found flat at start may still be entered on that bar.
		if _, replayed := m.opts.Source.(ledger.ReplaySource); !replayed && !st.Open() {
			for _, ev := range s.machine.Step(s.bar, s.age) {
				if err := m.handle(ctx, s, ev); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", sym, err))
				}
			}
		}
	} else {
		for _, ev := range s.advance(closed) {
			if err := m.handle(ctx, s, ev); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sym, err))
			}
		}
	}

	var trades []ledger.TradeRecord
	if derived, err := indicators.Derive(closed, s.inst.Indicators); err == nil {
		trades = ledger.Replay(sym, derived, ledger.Options{Params: s.inst.Position, Quantity: s.inst.Quantity})
	}
	m.update(s, trades, now)

	return errors.Join(errs...)
}

func (m *Monitor) handle(ctx context.Context, s *session, ev position.Event) error {
	sym := s.inst.Symbol
	m.opts.Metrics.Decisions.WithLabelValues(sym, string(ev.Decision)).Inc()

	e := s.log.Info().
		Str("decision", string(ev.Decision)).
		Time("bar", ev.Time).
		Float64("price", ev.Price)
	if ev.Decision.IsExit() {
		e = e.Float64("entry", ev.EntryPrice).Float64("pnl", ev.PnL).Float64("run_up", ev.RunUp)
	}
	e.Bool("dry_run", m.opts.DryRun).Msg("signal")

	var err error
	if !m.opts.DryRun {
		err = m.placeOrder(ctx, s, ev)
	}

	msg := notify.EventMessage(ev, m.opts.DryRun)
	if err != nil {
		msg += "\n⚠️ order failed: " + strings.ReplaceAll(err.Error(), "_", " ")
	}
	if nerr := m.opts.Notifier.Notify(ctx, msg); nerr != nil {
		s.log.Warn().Err(nerr).Msg("notification not sent")
	}
	return err
}

// OrderSide maps a decision to the market order that carries it out.
func OrderSide(d position.Decision) (exchange.Side, bool) {
	switch d {
	case position.EnterLong, position.ExitShort, position.TakeProfitShort:
		return exchange.Buy, true
	case position.EnterShort, position.ExitLong, position.TakeProfitLong:
		return exchange.Sell, true
	}
	return "", false
}

func (m *Monitor) placeOrder(ctx context.Context, s *session, ev position.Event) error {
	side, ok := OrderSide(ev.Decision)
	if !ok {
		return nil
	}
	sym := s.inst.Symbol
	o, err := m.opts.Orders.PlaceMarketOrder(ctx, sym, side, s.inst.Quantity)
	if err != nil {
		m.opts.Metrics.Orders.WithLabelValues(sym, string(side), "error").Inc()
		return fmt.Errorf("%s order: %w", side, err)
	}
	m.opts.Metrics.Orders.WithLabelValues(sym, string(side), "ok").Inc()
	s.log.Info().Int64("order_id", o.ID).Str("side", string(side)).Float64("size", s.inst.Quantity).Msg("order placed")
	return nil
}

// ClosedBars drops bars that have not finished by now.
func ClosedBars(candles []pricing.Candle, now time.Time, bar time.Duration) []pricing.Candle {
	n := len(candles)
	for n > 0 && candles[n-1].Time.Add(bar).After(now) {
		n--
	}
	return candles[:n]
}
