package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/position"
)

func summaryOf(trades []ledger.TradeRecord) ledger.Summary { return ledger.Summarize(trades) }

func TestActions(t *testing.T) {
	t.Parallel()

	trades := sampleTrades()
	trades = append(trades, closedTrade("x", "ETHUSD", exit1))
	trades[2].Side = position.Short

	acts := Actions(trades)
	require.Len(t, acts, 6)

	labels := make([]string, len(acts))
	for i, a := range acts {
		labels[i] = a.Label
	}
	assert.Equal(t, []string{"BUY", "TP HIT (Long)", "SELL", "OPEN SHORT", "SELL", "CLOSE SHORT"}, labels)
	assert.False(t, acts[0].HasExit)
	assert.True(t, acts[1].HasExit)
	assert.Equal(t, 30.0, acts[1].PnL)
	assert.True(t, acts[3].Time.IsZero())
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	trades := sampleTrades()
	run := Run{
		ID:              "R1",
		Created:         entry1,
		Instrument:      "ETHUSD",
		Timeframe:       "15m",
		TrendPeriod:     10,
		TrendMultiplier: 3,
		HMAPeriod:       21,
		SlopeScaling:    1000,
		SlopeThreshold:  26,
		TakeProfit:      30,
		Quantity:        2,
		Start:           entry1,
		End:             entry2,
		Notes:           []string{"choppy week"},
	}
	run.ApplySummary(ledger.Summarize(trades))

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, run, trades, nil))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Backtest: ETHUSD 15m"))
	assert.Contains(t, out, "| Take profit | 30 |")
	assert.Contains(t, out, "| 2024-01-02 03:00 | BUY | 2000.00 | - | - | - |")
	assert.Contains(t, out, "| 2024-01-02 05:15 | TP HIT (Long) | 2000.00 | 2030.00 | 30.00 | 1.55% |")
	assert.Contains(t, out, "| - | OPEN SHORT | 2050.00 | 2041.50 | 8.50 | 0.49% |")
	assert.Contains(t, out, "- **Total Trades**: 2 (1 open)")
	assert.Contains(t, out, "- **Total PnL**: 30.00 Points")
	assert.Contains(t, out, "- choppy week")
	assert.NotContains(t, out, "Trading from")
}

func TestWriteReportLocationAndFile(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	run := Run{ID: "R2", Instrument: "BTCUSD", From: entry1}
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, WriteReportFile(path, run, sampleTrades()[:1], ist))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "(timeframe?)")
	assert.Contains(t, out, "- Trading from: 2024-01-02 08:30")
	assert.Contains(t, out, "| Take profit | off |")
}
