package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendline/config"
	"github.com/rustyeddy/trendline/pricing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Journal.DBPath = filepath.Join(dir, "journal.db")
	path := filepath.Join(dir, "trendline.yaml")
	require.NoError(t, cfg.SaveToFile(path))
	return path
}

func writeCandles(t *testing.T, dir string, n int) string {
	t.Helper()
	r := rand.New(rand.NewSource(42))
	t0 := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	price := 2000.0
	candles := make([]pricing.Candle, n)
	for i := range candles {
		open := price
		price *= 1 + (r.Float64()-0.5)*0.02
		candles[i] = pricing.Candle{
			Time:   t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   open,
			High:   math.Max(open, price) + r.Float64()*3,
			Low:    math.Min(open, price) - r.Float64()*3,
			Close:  price,
			Volume: 10,
		}
	}
	path := filepath.Join(dir, "eth.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pricing.WriteCSV(f, candles))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "trendline (dev)\n", out)
}

func TestBadLogLevel(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--log-level", "loud", "version"})
	require.Error(t, cmd.Execute())
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	_, err = run(t, "config", "init", path)
	require.Error(t, err)
	_, err = run(t, "config", "init", "--force", path)
	require.NoError(t, err)

	out, err = run(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 3 instruments")

	require.NoError(t, os.WriteFile(path, []byte("timeframe: 15m\ninstruments: []\n"), 0644))
	_, err = run(t, "config", "validate", path)
	require.Error(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Exchange.APIKey = "my-key"
	cfg.Exchange.APISecret = "my-secret"
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	out, err := run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "my-secret")
	assert.Contains(t, out, "****")
	assert.Contains(t, out, "ETHUSD")
}

func TestBacktestCSV(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	csvPath := writeCandles(t, dir, 400)

	out, err := run(t, "--config", cfgPath, "backtest", "--symbol", "ETHUSD", "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "# Backtest: ETHUSD 15m")
	assert.Contains(t, out, "## Summary")
	assert.Contains(t, out, "Dataset: "+csvPath)

	reportPath := filepath.Join(dir, "report.md")
	out, err = run(t, "--config", cfgPath, "backtest", "--symbol", "ETHUSD", "--csv", csvPath,
		"--from", "2025-11-02", "--take-profit", "0", "--report", reportPath, "--journal")
	require.NoError(t, err)
	assert.Contains(t, out, "ETHUSD:")
	assert.Contains(t, out, "Report: "+reportPath)

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Trading from: 2025-11-02 00:00")

	out, err = run(t, "--config", cfgPath, "journal", "trades", "--since", "2025-01-01", "--until", "2026-01-01")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID"))
}

func TestBacktestErrors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	csvPath := writeCandles(t, dir, 10)

	_, err := run(t, "--config", cfgPath, "backtest", "--csv", csvPath)
	require.ErrorContains(t, err, "--symbol")

	_, err = run(t, "--config", cfgPath, "backtest", "--symbol", "DOGEUSD", "--csv", csvPath)
	require.ErrorContains(t, err, "not configured")

	_, err = run(t, "--config", cfgPath, "backtest", "--symbol", "ETHUSD", "--csv", csvPath)
	require.ErrorContains(t, err, "need at least")
}

func TestSignalCSV(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	csvPath := writeCandles(t, dir, 200)

	out, err := run(t, "--config", cfgPath, "signal", "--symbol", "ethusd", "--csv", csvPath, "-n", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "TREND LINE")
	assert.Contains(t, lines[5], "2025-11-03 01:45")
}

func TestCalibrate(t *testing.T) {
	out, err := run(t, "calibrate", "--pct", "0.01", "--target", "45")
	require.NoError(t, err)
	assert.Contains(t, out, "slope_scaling for 45 degrees: 100.00")

	_, err = run(t, "calibrate", "--pct", "0")
	require.Error(t, err)

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	csvPath := writeCandles(t, dir, 200)
	out, err = run(t, "--config", cfgPath, "calibrate", "--symbol", "ETHUSD", "--csv", csvPath, "--at", "2025-11-02T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "bar 2025-11-02 12:00")
	assert.Contains(t, out, "slope_scaling for 26 degrees")
}

func TestMonitorLiveRejectsReplaySource(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())

	_, err := run(t, "--config", cfgPath, "monitor", "--dry-run=false", "--no-dashboard")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position_source")
}

func TestCancelOrders(t *testing.T) {
	var cancelled []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/products":
			_, _ = io.WriteString(w, `{"success":true,"result":[{"id":27,"symbol":"BTCUSD"},{"id":3136,"symbol":"ETHUSD"}]}`)
		case "/v2/orders":
			require.Equal(t, http.MethodDelete, r.Method)
			assert.NotEmpty(t, r.Header.Get("signature"))
			var req map[string]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			cancelled = append(cancelled, req["product_id"])
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.Exchange.BaseURL = srv.URL
	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "secret"
	cfg.Journal.DBPath = filepath.Join(dir, "journal.db")
	path := filepath.Join(dir, "trendline.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	out, err := run(t, "--config", path, "cancel", "--symbol", "ETHUSD")
	require.NoError(t, err)
	assert.Equal(t, []int64{3136}, cancelled)
	assert.Contains(t, out, "ETHUSD: orders cancelled")

	// SOLUSD is configured but unknown to this exchange
	cancelled = nil
	out, err = run(t, "--config", path, "cancel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLUSD")
	assert.Equal(t, []int64{27, 3136}, cancelled)
	assert.Contains(t, out, "BTCUSD: orders cancelled")
}
