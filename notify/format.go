package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/position"
)

// label turns ENTER_LONG into "ENTER LONG"; underscores start italics in
// Telegram Markdown.
func label(d position.Decision) string {
	return strings.ReplaceAll(string(d), "_", " ")
}

func icon(d position.Decision) string {
	switch {
	case d.IsTakeProfit():
		return "💰"
	case d == position.EnterLong:
		return "🟢"
	case d == position.EnterShort:
		return "🔴"
	case d.IsExit():
		return "⚪"
	}
	return "•"
}

// EventMessage formats one machine event.
func EventMessage(ev position.Event, dryRun bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* %s @ %s", icon(ev.Decision), label(ev.Decision), ev.Instrument, price(ev.Price))
	if ev.Decision.IsExit() {
		fmt.Fprintf(&b, "\nEntry: %s | PnL: %+.2f | Run-up: %.2f%%", price(ev.EntryPrice), ev.PnL, ev.RunUp*100)
	}
	fmt.Fprintf(&b, "\nBar: %s", ev.Time.UTC().Format("2006-01-02 15:04"))
	if dryRun {
		b.WriteString("\n(dry run)")
	}
	return b.String()
}

// OpenPosition is one line of the startup report.
type OpenPosition struct {
	Symbol     string
	Side       position.Side
	Size       float64
	EntryPrice float64
}

// MarketState is the per-instrument part of the startup report.
type MarketState struct {
	Symbol    string
	Direction indicators.Direction
	Slope     float64
	Threshold float64
	Price     float64
	Trades    []ledger.TradeRecord // recent replayed trades
}

// StartupReport summarises positions, recent history and current trend
// state when the monitor starts.
type StartupReport struct {
	Positions []OpenPosition
	Markets   []MarketState
	Window    time.Duration
	DryRun    bool
}

func (r StartupReport) String() string {
	var b strings.Builder
	b.WriteString("🤖 *Trendline started*\n\n")

	if len(r.Positions) == 0 {
		b.WriteString("⚪ *No active positions*\n\n")
	} else {
		b.WriteString("🟢 *Active positions:*\n")
		for _, p := range r.Positions {
			fmt.Fprintf(&b, "%s: %s %g @ %s\n", p.Symbol, p.Side, p.Size, price(p.EntryPrice))
		}
		b.WriteString("\n")
	}

	window := r.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	fmt.Fprintf(&b, "📜 *Recent history (last %s):*\n", shortDuration(window))
	for _, m := range r.Markets {
		s := ledger.Summarize(m.Trades)
		if s.Closed == 0 {
			fmt.Fprintf(&b, "%s: No trades\n", m.Symbol)
			continue
		}
		fmt.Fprintf(&b, "%s: %dW/%dL (PnL: %+.1f)\n", m.Symbol, s.Wins, s.Losses, s.TotalPoints)
	}

	b.WriteString("\n📊 *Current market state:*\n")
	for _, m := range r.Markets {
		fmt.Fprintf(&b, "%s: %s @ %s (Slope: %.1f/%g)\n", m.Symbol, m.Direction, price(m.Price), m.Slope, m.Threshold)
	}

	if r.DryRun {
		b.WriteString("\n🧪 *Dry run: no orders will be placed*")
	} else {
		b.WriteString("\n✅ *Live signals are active*")
	}
	return b.String()
}

func price(p float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", p), "0"), ".")
}

func shortDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
