// Package config holds the state shared by every trendline subcommand:
// global flags, the loaded configuration and helpers to build clients
// from it.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appcfg "github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/exchange"
	"github.com/rustyeddy/trendline/journal"
	"github.com/rustyeddy/trendline/pricing"
)

// RootConfig carries the persistent flags.
type RootConfig struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	NoColor    bool

	cfg *appcfg.Config
}

// Config loads the configuration once: from ConfigPath when set, otherwise
// the defaults with secrets from the environment.
func (rc *RootConfig) Config() (*appcfg.Config, error) {
	if rc.cfg != nil {
		return rc.cfg, nil
	}
	var (
		cfg *appcfg.Config
		err error
	)
	if rc.ConfigPath != "" {
		cfg, err = appcfg.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = appcfg.Default()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
	}
	rc.cfg = cfg
	return cfg, nil
}

// SetConfig replaces the loaded configuration.
func (rc *RootConfig) SetConfig(cfg *appcfg.Config) { rc.cfg = cfg }

// Instrument returns the configured block for symbol.
func (rc *RootConfig) Instrument(symbol string) (appcfg.InstrumentConfig, error) {
	cfg, err := rc.Config()
	if err != nil {
		return appcfg.InstrumentConfig{}, err
	}
	ic, ok := cfg.Instrument(symbol)
	if !ok {
		return appcfg.InstrumentConfig{}, fmt.Errorf("instrument %q is not configured (have %s)",
			symbol, strings.Join(cfg.Symbols(), ", "))
	}
	return ic, nil
}

// Exchange builds a client from the exchange section.
func (rc *RootConfig) Exchange() (*exchange.Client, error) {
	cfg, err := rc.Config()
	if err != nil {
		return nil, err
	}
	return exchange.New(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.ExchangeTimeout()), nil
}

// Journal opens the configured journal sink.
func (rc *RootConfig) Journal() (journal.Journal, error) {
	cfg, err := rc.Config()
	if err != nil {
		return nil, err
	}
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.RunsFile)
	default:
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
}

// SQLite opens the configured SQLite journal for queries.
func (rc *RootConfig) SQLite() (*journal.SQLite, error) {
	cfg, err := rc.Config()
	if err != nil {
		return nil, err
	}
	if cfg.Journal.Type != "sqlite" {
		return nil, fmt.Errorf("journal queries need journal.type sqlite (have %q)", cfg.Journal.Type)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

// Candles reads candles from csvPath when set, otherwise fetches symbol
// from the exchange over [start, end] at the configured timeframe.
func (rc *RootConfig) Candles(ctx context.Context, csvPath, symbol string, start, end time.Time) ([]pricing.Candle, string, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		c, err := pricing.ReadCSV(f)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", csvPath, err)
		}
		return pricing.Between(c, start, end), csvPath, nil
	}

	cfg, err := rc.Config()
	if err != nil {
		return nil, "", err
	}
	client, err := rc.Exchange()
	if err != nil {
		return nil, "", err
	}
	c, err := client.Candles(ctx, symbol, cfg.Timeframe, start, end)
	if err != nil {
		return nil, "", err
	}
	return c, "exchange:" + symbol + ":" + cfg.Timeframe, nil
}

// Window resolves optional start/end flags. Missing end is now; missing
// start is end minus the configured history.
func (rc *RootConfig) Window(startStr, endStr string) (time.Time, time.Time, error) {
	cfg, err := rc.Config()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := time.Now().UTC()
	if endStr != "" {
		if end, err = ParseTime(endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --end: %w", err)
		}
	}
	start := end.Add(-cfg.HistoryDuration())
	if startStr != "" {
		if start, err = ParseTime(startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad --start: %w", err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s must be before end %s", start, end)
	}
	return start, end, nil
}

// ParseTime accepts RFC3339, "2006-01-02 15:04" and "2006-01-02" in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(w io.Writer, level string, noColor bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("bad --log-level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.DateTime,
	}).With().Timestamp().Logger()
	return nil
}
