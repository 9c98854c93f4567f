package config

import (
	"fmt"
	"math"
	"net/url"
	"time"
)

// Validate checks the configuration. It returns a *ConfigurationError for
// the first problem found.
func (c *Config) Validate() error {
	if c.Exchange.BaseURL == "" {
		return cfgErr("exchange.base_url", "is required")
	}
	if u, err := url.Parse(c.Exchange.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return cfgErr("exchange.base_url", "must be an absolute URL")
	}
	if _, err := TimeframeDuration(c.Timeframe); err != nil {
		return cfgErr("timeframe", "must be a resolution like 15m or 1h")
	}

	durations := []struct {
		field, value string
		required     bool
	}{
		{"history", c.History, true},
		{"poll.interval", c.Poll.Interval, true},
		{"poll.offset", c.Poll.Offset, false},
		{"poll.retry_delay", c.Poll.RetryDelay, true},
		{"exchange.timeout", c.Exchange.Timeout, false},
	}
	for _, d := range durations {
		if d.value == "" {
			if d.required {
				return cfgErr(d.field, "is required")
			}
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return cfgErr(d.field, "is not a duration: %v", err)
		}
		if v < 0 || (d.required && v == 0) {
			return cfgErr(d.field, "must be positive")
		}
	}

	switch c.PositionSource {
	case "replay":
		if !c.DryRun {
			return cfgErr("position_source", "must be 'exchange' when dry_run is false")
		}
	case "exchange":
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return cfgErr("exchange.api_key", "and api_secret are required for the exchange position source")
		}
	default:
		return cfgErr("position_source", "must be 'replay' or 'exchange'")
	}
	if _, err := c.Location(); err != nil {
		return cfgErr("timezone", "is unknown: %v", err)
	}

	if len(c.Instruments) == 0 {
		return cfgErr("instruments", "must list at least one instrument")
	}
	seen := map[string]bool{}
	for i, ic := range c.Instruments {
		if err := ic.validate(fmt.Sprintf("instruments[%d]", i)); err != nil {
			return err
		}
		if seen[ic.Symbol] {
			return cfgErr(fmt.Sprintf("instruments[%d].symbol", i), "duplicates %s", ic.Symbol)
		}
		seen[ic.Symbol] = true
	}

	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return cfgErr("telegram", "token and chat_id are required when enabled")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.RunsFile == "" {
			return cfgErr("journal", "trades_file and runs_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return cfgErr("journal.db_path", "required for SQLite type")
		}
	default:
		return cfgErr("journal.type", "must be 'csv' or 'sqlite'")
	}
	return nil
}

func (ic InstrumentConfig) validate(prefix string) error {
	field := func(name string) string { return prefix + "." + name }

	switch {
	case ic.Symbol == "":
		return cfgErr(field("symbol"), "is required")
	case ic.TrendPeriod <= 0:
		return cfgErr(field("trend_period"), "must be positive")
	case ic.TrendMultiplier <= 0:
		return cfgErr(field("trend_multiplier"), "must be positive")
	case ic.HMAPeriod < 2:
		return cfgErr(field("hma_period"), "must be at least 2")
	case ic.SlopeScaling <= 0:
		return cfgErr(field("slope_scaling"), "must be positive")
	case ic.SlopeThreshold <= 0 || ic.SlopeThreshold >= 90:
		return cfgErr(field("slope_threshold"), "must be between 0 and 90 degrees")
	case ic.TakeProfit == nil:
		return cfgErr(field("take_profit"), "is required (0 disables take-profit)")
	case *ic.TakeProfit < 0:
		return cfgErr(field("take_profit"), "must not be negative")
	case ic.Quantity <= 0:
		return cfgErr(field("quantity"), "must be positive")
	case ic.Quantity != math.Trunc(ic.Quantity):
		return cfgErr(field("quantity"), "must be a whole number of contracts")
	}
	return nil
}
