// Package live holds the commands that talk to the exchange in real time:
// the monitor loop and startup reconciliation.
package live

import (
	"fmt"

	appcfg "github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/exchange"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/monitor"
)

func instruments(cfg *appcfg.Config, only string) ([]monitor.Instrument, error) {
	var out []monitor.Instrument
	for _, ic := range cfg.Instruments {
		if only != "" && ic.Symbol != only {
			continue
		}
		out = append(out, monitor.Instrument{
			Symbol:     ic.Symbol,
			Indicators: ic.IndicatorParams(),
			Position:   ic.PositionParams(),
			Quantity:   ic.Quantity,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no configured instrument matches %q", only)
	}
	return out, nil
}

// positionSource picks the reconciliation source named in the config.
func positionSource(cfg *appcfg.Config, client *exchange.Client, insts []monitor.Instrument) ledger.PositionSource {
	if cfg.PositionSource == "exchange" {
		return ledger.ExchangeSource{Querier: client}
	}
	opts := make(map[string]ledger.Options, len(insts))
	for _, in := range insts {
		opts[in.Symbol] = ledger.Options{Params: in.Position, Quantity: in.Quantity}
	}
	return ledger.ReplaySource{Options: opts}
}
