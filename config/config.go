// Package config loads and validates the trendline configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/position"
)

// Config is the complete bot configuration.
type Config struct {
	Exchange       ExchangeConfig     `json:"exchange" yaml:"exchange"`
	Timeframe      string             `json:"timeframe" yaml:"timeframe"`
	History        string             `json:"history" yaml:"history"` // e.g. "48h"
	DryRun         bool               `json:"dry_run" yaml:"dry_run"`
	PositionSource string             `json:"position_source" yaml:"position_source"` // "replay" or "exchange"
	Timezone       string             `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Poll           PollConfig         `json:"poll" yaml:"poll"`
	Instruments    []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Telegram       TelegramConfig     `json:"telegram" yaml:"telegram"`
	Journal        JournalConfig      `json:"journal" yaml:"journal"`
	Dashboard      DashboardConfig    `json:"dashboard" yaml:"dashboard"`
}

// ExchangeConfig holds the REST endpoint and credentials.
type ExchangeConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	Timeout   string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// PollConfig sets the live loop cadence. Polls are aligned to multiples of
// Interval and fire Offset after the boundary.
type PollConfig struct {
	Interval   string `json:"interval" yaml:"interval"`
	Offset     string `json:"offset" yaml:"offset"`
	RetryDelay string `json:"retry_delay" yaml:"retry_delay"`
}

// InstrumentConfig is the per-symbol strategy block. Every field is
// required; take_profit: 0 disables take-profit.
type InstrumentConfig struct {
	Symbol          string   `json:"symbol" yaml:"symbol"`
	TrendPeriod     int      `json:"trend_period" yaml:"trend_period"`
	TrendMultiplier float64  `json:"trend_multiplier" yaml:"trend_multiplier"`
	HMAPeriod       int      `json:"hma_period" yaml:"hma_period"`
	SlopeScaling    float64  `json:"slope_scaling" yaml:"slope_scaling"`
	SlopeThreshold  float64  `json:"slope_threshold" yaml:"slope_threshold"`
	TakeProfit      *float64 `json:"take_profit" yaml:"take_profit"`
	Quantity        float64  `json:"quantity" yaml:"quantity"`
}

func (ic InstrumentConfig) IndicatorParams() indicators.Params {
	return indicators.Params{
		TrendPeriod:     ic.TrendPeriod,
		TrendMultiplier: ic.TrendMultiplier,
		HMAPeriod:       ic.HMAPeriod,
		SlopeScaling:    ic.SlopeScaling,
	}
}

func (ic InstrumentConfig) PositionParams() position.Params {
	p := position.Params{SlopeThreshold: ic.SlopeThreshold}
	if ic.TakeProfit != nil {
		p.TakeProfit = *ic.TakeProfit
	}
	return p
}

// TelegramConfig enables trade notifications.
type TelegramConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	RunsFile   string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// DashboardConfig sets the status server address. Empty disables it.
type DashboardConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Msg)
}

func cfgErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Instrument returns the block for symbol.
func (c *Config) Instrument(symbol string) (InstrumentConfig, bool) {
	for _, ic := range c.Instruments {
		if strings.EqualFold(ic.Symbol, symbol) {
			return ic, true
		}
	}
	return InstrumentConfig{}, false
}

// Symbols lists the configured instruments in order.
func (c *Config) Symbols() []string {
	out := make([]string, len(c.Instruments))
	for i, ic := range c.Instruments {
		out[i] = ic.Symbol
	}
	return out
}

func (c *Config) HistoryDuration() time.Duration { return mustDuration(c.History) }
func (c *Config) PollInterval() time.Duration    { return mustDuration(c.Poll.Interval) }
func (c *Config) PollOffset() time.Duration      { return mustDuration(c.Poll.Offset) }
func (c *Config) RetryDelay() time.Duration      { return mustDuration(c.Poll.RetryDelay) }
func (c *Config) ExchangeTimeout() time.Duration { return mustDuration(c.Exchange.Timeout) }

// Location resolves Timezone, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// mustDuration parses a duration that Validate has already checked. Empty
// is zero.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// TimeframeDuration converts an exchange resolution such as "15m", "1h" or
// "1d" into a duration.
func TimeframeDuration(tf string) (time.Duration, error) {
	tf = strings.TrimSpace(strings.ToLower(tf))
	if strings.HasSuffix(tf, "d") || strings.HasSuffix(tf, "w") {
		var n int
		var unit string
		if _, err := fmt.Sscanf(tf, "%d%s", &n, &unit); err != nil || n <= 0 {
			return 0, fmt.Errorf("bad timeframe %q", tf)
		}
		day := 24 * time.Hour
		if unit == "w" {
			return time.Duration(n) * 7 * day, nil
		}
		return time.Duration(n) * day, nil
	}
	d, err := time.ParseDuration(tf)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}
	return d, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	tp := func(v float64) *float64 { return &v }
	return &Config{
		Exchange: ExchangeConfig{
			BaseURL: "https://api.india.delta.exchange",
			Timeout: "15s",
		},
		Timeframe:      "15m",
		History:        "48h",
		DryRun:         true,
		PositionSource: "replay",
		Timezone:       "Asia/Kolkata",
		Poll: PollConfig{
			Interval:   "1m",
			Offset:     "2s",
			RetryDelay: "10s",
		},
		Instruments: []InstrumentConfig{
			{Symbol: "BTCUSD", TrendPeriod: 2, TrendMultiplier: 2, HMAPeriod: 31, SlopeScaling: 3000, SlopeThreshold: 26, TakeProfit: tp(1000), Quantity: 1},
			{Symbol: "ETHUSD", TrendPeriod: 2, TrendMultiplier: 2, HMAPeriod: 31, SlopeScaling: 7900, SlopeThreshold: 26, TakeProfit: tp(30), Quantity: 1},
			{Symbol: "SOLUSD", TrendPeriod: 2, TrendMultiplier: 2, HMAPeriod: 31, SlopeScaling: 3000, SlopeThreshold: 26, TakeProfit: tp(0), Quantity: 10},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./trendline.db",
		},
		Dashboard: DashboardConfig{
			Addr: "127.0.0.1:5000",
		},
	}
}
