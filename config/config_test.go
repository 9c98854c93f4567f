package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "15m", cfg.Timeframe)
	assert.Equal(t, []string{"BTCUSD", "ETHUSD", "SOLUSD"}, cfg.Symbols())
	assert.True(t, cfg.DryRun)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 48*time.Hour, cfg.HistoryDuration())
	assert.Equal(t, time.Minute, cfg.PollInterval())
	assert.Equal(t, 2*time.Second, cfg.PollOffset())
	assert.Equal(t, 10*time.Second, cfg.RetryDelay())
	assert.Equal(t, 15*time.Second, cfg.ExchangeTimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestInstrumentParams(t *testing.T) {
	cfg := Default()
	eth, ok := cfg.Instrument("ethusd")
	require.True(t, ok)

	ip := eth.IndicatorParams()
	assert.Equal(t, 2, ip.TrendPeriod)
	assert.Equal(t, 7900.0, ip.SlopeScaling)
	assert.NoError(t, ip.Validate())

	pp := eth.PositionParams()
	assert.Equal(t, 26.0, pp.SlopeThreshold)
	assert.Equal(t, 30.0, pp.TakeProfit)

	_, ok = cfg.Instrument("DOGEUSD")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"missing base url", func(c *Config) { c.Exchange.BaseURL = "" }, "exchange.base_url"},
		{"relative base url", func(c *Config) { c.Exchange.BaseURL = "/v2" }, "exchange.base_url"},
		{"bad timeframe", func(c *Config) { c.Timeframe = "soon" }, "timeframe"},
		{"missing history", func(c *Config) { c.History = "" }, "history"},
		{"bad poll interval", func(c *Config) { c.Poll.Interval = "often" }, "poll.interval"},
		{"zero retry", func(c *Config) { c.Poll.RetryDelay = "0s" }, "poll.retry_delay"},
		{"negative offset", func(c *Config) { c.Poll.Offset = "-1s" }, "poll.offset"},
		{"unknown source", func(c *Config) { c.PositionSource = "guess" }, "position_source"},
		{"exchange source needs keys", func(c *Config) { c.PositionSource = "exchange" }, "exchange.api_key"},
		{"live from replay", func(c *Config) { c.DryRun = false }, "position_source"},
		{"live needs keys", func(c *Config) { c.DryRun = false; c.PositionSource = "exchange" }, "exchange.api_key"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"no instruments", func(c *Config) { c.Instruments = nil }, "instruments"},
		{"missing symbol", func(c *Config) { c.Instruments[0].Symbol = "" }, "instruments[0].symbol"},
		{"zero trend period", func(c *Config) { c.Instruments[1].TrendPeriod = 0 }, "instruments[1].trend_period"},
		{"zero multiplier", func(c *Config) { c.Instruments[0].TrendMultiplier = 0 }, "instruments[0].trend_multiplier"},
		{"hma too short", func(c *Config) { c.Instruments[0].HMAPeriod = 1 }, "instruments[0].hma_period"},
		{"zero scaling", func(c *Config) { c.Instruments[2].SlopeScaling = 0 }, "instruments[2].slope_scaling"},
		{"threshold too steep", func(c *Config) { c.Instruments[0].SlopeThreshold = 90 }, "instruments[0].slope_threshold"},
		{"missing take profit", func(c *Config) { c.Instruments[0].TakeProfit = nil }, "instruments[0].take_profit"},
		{"negative take profit", func(c *Config) { v := -1.0; c.Instruments[0].TakeProfit = &v }, "instruments[0].take_profit"},
		{"zero quantity", func(c *Config) { c.Instruments[0].Quantity = 0 }, "instruments[0].quantity"},
		{"fractional quantity", func(c *Config) { c.Instruments[2].Quantity = 2.5 }, "instruments[2].quantity"},
		{"duplicate symbol", func(c *Config) { c.Instruments[1].Symbol = "BTCUSD" }, "instruments[1].symbol"},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }, "telegram"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "paper" }, "journal.type"},
		{"csv journal files", func(c *Config) { c.Journal = JournalConfig{Type: "csv", TradesFile: "t.csv"} }, "journal"},
		{"sqlite path", func(c *Config) { c.Journal.DBPath = "" }, "journal.db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, err.Error(), "config: "+tt.field)
		})
	}
}

func TestTakeProfitZeroIsValid(t *testing.T) {
	cfg := Default()
	sol, ok := cfg.Instrument("SOLUSD")
	require.True(t, ok)
	require.NotNil(t, sol.TakeProfit)
	assert.Equal(t, 0.0, *sol.TakeProfit)
	assert.Equal(t, 0.0, sol.PositionParams().TakeProfit)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
		{"yml format", ".yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadMissingTakeProfit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
exchange:
  base_url: https://api.delta.exchange
timeframe: 5m
history: 24h
dry_run: true
position_source: replay
poll:
  interval: 1m
  retry_delay: 10s
instruments:
  - symbol: ETHUSD
    trend_period: 10
    trend_multiplier: 3
    hma_period: 21
    slope_scaling: 7900
    slope_threshold: 26
    quantity: 1
journal:
  type: sqlite
  db_path: ./j.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadFromFile(path)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "instruments[0].take_profit", ce.Field)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvAPISecret, "secret")
	t.Setenv(EnvTelegramToken, "tok")
	t.Setenv(EnvTelegramChatID, "-100123")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "key", cfg.Exchange.APIKey)
	assert.Equal(t, "secret", cfg.Exchange.APISecret)
	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)

	cfg.DryRun = false
	cfg.PositionSource = "exchange"
	cfg.Telegram.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TRENDLINE_TEST_ONLY=from-file\n"), 0644))
	t.Setenv("TRENDLINE_TEST_ONLY", "")
	os.Unsetenv("TRENDLINE_TEST_ONLY")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TRENDLINE_TEST_ONLY"))
}

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1m", time.Minute, false},
		{"15m", 15 * time.Minute, false},
		{"4h", 4 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"0m", 0, true},
		{"xd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := TimeframeDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
