package ledger

import (
	"context"
	"fmt"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/position"
)

// PositionSource decides whether an instrument is already in a position
// when a live session starts.
type PositionSource interface {
	Name() string
	Position(ctx context.Context, instrument string, derived []indicators.DerivedCandle) (position.State, error)
}

// ReplaySource treats the open trade of a replay over recent history as
// the current position. Used for dry runs.
type ReplaySource struct {
	Options map[string]Options
}

func (ReplaySource) Name() string { return "replay" }

func (s ReplaySource) Position(_ context.Context, instrument string, derived []indicators.DerivedCandle) (position.State, error) {
	opts, ok := s.Options[instrument]
	if !ok {
		return position.State{}, fmt.Errorf("replay source: no options for %s", instrument)
	}

	st := position.State{Side: position.Flat}
	if open, ok := Current(Replay(instrument, derived, opts)); ok {
		st.Side = open.Side
		st.EntryPrice = open.EntryPrice
		st.EntryTime = open.EntryTime
		st.PeakPrice = open.PeakPrice
	}
	return st, nil
}

// PositionQuerier reports the signed open size and average entry price of
// an instrument on the exchange. Size is zero when flat.
type PositionQuerier interface {
	PositionSize(ctx context.Context, instrument string) (size, entryPrice float64, err error)
}

// ExchangeSource asks the exchange for the live position.
type ExchangeSource struct {
	Querier PositionQuerier
}

func (ExchangeSource) Name() string { return "exchange" }

func (s ExchangeSource) Position(ctx context.Context, instrument string, _ []indicators.DerivedCandle) (position.State, error) {
	size, entry, err := s.Querier.PositionSize(ctx, instrument)
	if err != nil {
		return position.State{}, fmt.Errorf("exchange source: %s: %w", instrument, err)
	}

	st := position.State{Side: position.Flat}
	switch {
	case size > 0:
		st.Side = position.Long
	case size < 0:
		st.Side = position.Short
	default:
		return st, nil
	}
	st.EntryPrice = entry
	st.PeakPrice = entry
	return st, nil
}
