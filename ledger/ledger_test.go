package ledger

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/position"
	"github.com/rustyeddy/trendline/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func at(i int) time.Time { return t0.Add(time.Duration(i) * time.Hour) }

func dc(i int, dir indicators.Direction, close, slope float64) indicators.DerivedCandle {
	return indicators.DerivedCandle{
		Candle: pricing.Candle{
			Time:  at(i),
			Open:  close,
			High:  close + 1,
			Low:   close - 1,
			Close: close,
		},
		Direction:  dir,
		TrendReady: true,
		HMA:        close,
		Slope:      slope,
	}
}

const (
	up   = indicators.Bullish
	down = indicators.Bearish
)

func scenario() []indicators.DerivedCandle {
	return []indicators.DerivedCandle{
		dc(0, up, 100, 30),
		dc(1, up, 104, 30),
		dc(2, down, 98, -10),
		dc(3, down, 96, -30),
		dc(4, down, 90, -30),
		dc(5, up, 95, 40),
		dc(6, up, 97, 40),
	}
}

var opts = Options{
	Params:   position.Params{SlopeThreshold: 26, TakeProfit: 6},
	Quantity: 2,
}

func TestReplayScenario(t *testing.T) {
	t.Parallel()

	trades := Replay("ETHUSD", scenario(), opts)
	require.Len(t, trades, 3)

	first := trades[0]
	assert.Equal(t, position.Long, first.Side)
	assert.Equal(t, 100.0, first.EntryPrice)
	assert.Equal(t, 98.0, first.ExitPrice)
	assert.Equal(t, 105.0, first.PeakPrice)
	assert.Equal(t, -2.0, first.PnLPerUnit)
	assert.Equal(t, -4.0, first.PnL)
	assert.InDelta(t, 0.05, first.RunUp, 1e-12)
	assert.Equal(t, at(0), first.EntryTime)
	assert.Equal(t, at(2), first.ExitTime)
	assert.Equal(t, ReasonTrendReversal, first.Reason)
	assert.Equal(t, Closed, first.Status)
	assert.True(t, first.EntryTime.Before(first.ExitTime))

	second := trades[1]
	assert.Equal(t, position.Short, second.Side)
	assert.Equal(t, 96.0, second.EntryPrice)
	assert.Equal(t, 90.0, second.ExitPrice)
	assert.Equal(t, 89.0, second.PeakPrice)
	assert.Equal(t, 6.0, second.PnLPerUnit)
	assert.Equal(t, ReasonTakeProfit, second.Reason)
	assert.InDelta(t, 7.0/96.0, second.RunUp, 1e-12)

	last := trades[2]
	assert.Equal(t, position.Long, last.Side)
	assert.Equal(t, Open, last.Status)
	assert.Equal(t, ReasonMarkToMarket, last.Reason)
	assert.Equal(t, 95.0, last.EntryPrice)
	assert.Equal(t, 97.0, last.ExitPrice)
	assert.Equal(t, 98.0, last.PeakPrice)
	assert.True(t, last.ExitTime.IsZero())
	assert.Equal(t, 4.0, last.PnL)

	for _, tr := range trades {
		assert.Equal(t, "ETHUSD", tr.Instrument)
		assert.Equal(t, 2.0, tr.Quantity)
	}
}

func TestReplayFrom(t *testing.T) {
	t.Parallel()

	o := opts
	o.From = at(3)
	trades := Replay("ETHUSD", scenario(), o)
	require.Len(t, trades, 2)
	assert.Equal(t, position.Short, trades[0].Side)
	assert.Equal(t, at(3), trades[0].EntryTime)

	// age keeps counting through the skipped bars: bar 4 is two bars into
	// the bearish trend and cannot enter.
	o.From = at(4)
	trades = Replay("ETHUSD", scenario(), o)
	require.Len(t, trades, 1)
	assert.Equal(t, at(5), trades[0].EntryTime)
}

func TestReplayEmptyAndWarmup(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Replay("X", nil, opts))

	bars := scenario()
	for i := range bars {
		bars[i].Slope = math.NaN()
	}
	assert.Empty(t, Replay("X", bars, opts))
}

func randomWalk(seed int64, n int) []pricing.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]pricing.Candle, n)
	price := 2000.0
	for i := range out {
		open := price
		price += r.NormFloat64() * 8
		out[i] = pricing.Candle{
			Time:  at(i),
			Open:  open,
			High:  math.Max(open, price) + r.Float64()*4,
			Low:   math.Min(open, price) - r.Float64()*4,
			Close: price,
		}
	}
	return out
}

func TestReplayIdempotent(t *testing.T) {
	t.Parallel()

	p := indicators.Params{TrendPeriod: 10, TrendMultiplier: 2, HMAPeriod: 16, SlopeScaling: 2000}
	derived, err := indicators.Derive(randomWalk(11, 1500), p)
	require.NoError(t, err)

	o := Options{Params: position.Params{SlopeThreshold: 10, TakeProfit: 25}, Quantity: 1}
	a := Replay("ETHUSD", derived, o)
	b := Replay("ETHUSD", derived, o)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)

	for i, tr := range a {
		if tr.Status == Closed {
			assert.True(t, tr.EntryTime.Before(tr.ExitTime), "trade %d", i)
		} else {
			assert.Equal(t, len(a)-1, i, "only the last trade may be open")
		}
		if i > 0 && a[i-1].Status == Closed {
			assert.False(t, tr.EntryTime.Before(a[i-1].ExitTime), "trades overlap at %d", i)
		}
	}
}

func TestCurrent(t *testing.T) {
	trades := Replay("ETHUSD", scenario(), opts)
	open, ok := Current(trades)
	require.True(t, ok)
	assert.Equal(t, 95.0, open.EntryPrice)

	_, ok = Current(trades[:2])
	assert.False(t, ok)
	_, ok = Current(nil)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	s := Summarize(Replay("ETHUSD", scenario(), opts))
	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 1, s.Open)
	assert.Equal(t, 2, s.Closed)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.TakeProfits)
	assert.InDelta(t, 50.0, s.WinRate, 1e-12)
	assert.InDelta(t, 4.0, s.TotalPoints, 1e-12)
	assert.InDelta(t, 8.0, s.TotalPnL, 1e-12)
	assert.InDelta(t, (0.05+7.0/96.0)/2, s.AvgRunUp, 1e-12)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestEnteredSinceAndSort(t *testing.T) {
	trades := Replay("ETHUSD", scenario(), opts)
	recent := EnteredSince(trades, at(3))
	require.Len(t, recent, 2)

	SortNewestFirst(trades)
	assert.Equal(t, at(5), trades[0].EntryTime)
	assert.Equal(t, at(0), trades[2].EntryTime)
}

func TestReplaySource(t *testing.T) {
	src := ReplaySource{Options: map[string]Options{"ETHUSD": opts}}
	assert.Equal(t, "replay", src.Name())

	st, err := src.Position(context.Background(), "ETHUSD", scenario())
	require.NoError(t, err)
	assert.Equal(t, position.Long, st.Side)
	assert.Equal(t, 95.0, st.EntryPrice)
	assert.Equal(t, 98.0, st.PeakPrice)
	assert.Equal(t, at(5), st.EntryTime)

	st, err = src.Position(context.Background(), "ETHUSD", scenario()[:5])
	require.NoError(t, err)
	assert.Equal(t, position.Flat, st.Side)

	_, err = src.Position(context.Background(), "BTCUSD", scenario())
	assert.Error(t, err)
}

type fakeQuerier struct {
	size, entry float64
	err         error
}

func (f fakeQuerier) PositionSize(context.Context, string) (float64, float64, error) {
	return f.size, f.entry, f.err
}

func TestExchangeSource(t *testing.T) {
	tests := []struct {
		name  string
		q     fakeQuerier
		side  position.Side
		entry float64
	}{
		{"long", fakeQuerier{size: 3, entry: 2010}, position.Long, 2010},
		{"short", fakeQuerier{size: -1, entry: 150}, position.Short, 150},
		{"flat", fakeQuerier{}, position.Flat, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := ExchangeSource{Querier: tt.q}
			st, err := src.Position(context.Background(), "ETHUSD", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.side, st.Side)
			assert.Equal(t, tt.entry, st.EntryPrice)
			assert.Equal(t, tt.entry, st.PeakPrice)
		})
	}

	boom := errors.New("boom")
	_, err := ExchangeSource{Querier: fakeQuerier{err: boom}}.Position(context.Background(), "ETHUSD", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "exchange", ExchangeSource{}.Name())
}

func TestReplayIgnoresSupertrendWarmup(t *testing.T) {
	t.Parallel()

	p := indicators.Params{TrendPeriod: 50, TrendMultiplier: 2, HMAPeriod: 9, SlopeScaling: 3000}
	o := Options{Params: position.Params{SlopeThreshold: 1, TakeProfit: 0}, Quantity: 1}
	for seed := int64(1); seed <= 20; seed++ {
		candles := randomWalk(seed, 120)
		derived, err := indicators.Derive(candles, p)
		require.NoError(t, err)

		for _, tr := range Replay("X", derived, o) {
			assert.False(t, tr.EntryTime.Before(candles[p.TrendPeriod-1].Time),
				"seed %d entered at %s", seed, tr.EntryTime)
		}
	}
}
