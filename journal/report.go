package journal

import (
	"bytes"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/trendline/ledger"
	"github.com/rustyeddy/trendline/position"
)

// Action is one row of the report's action table.
type Action struct {
	Time    time.Time
	Label   string
	Price   float64
	Entry   float64
	Exit    float64
	PnL     float64
	RunUp   float64
	HasExit bool
}

// Actions expands trades into entry and exit rows in time order.
func Actions(trades []ledger.TradeRecord) []Action {
	out := make([]Action, 0, 2*len(trades))
	for _, t := range trades {
		entry := Action{Time: t.EntryTime, Label: "BUY", Price: t.EntryPrice, Entry: t.EntryPrice}
		if t.Side == position.Short {
			entry.Label = "SELL"
		}
		out = append(out, entry)

		exit := Action{
			Time:    t.ExitTime,
			Price:   t.ExitPrice,
			Entry:   t.EntryPrice,
			Exit:    t.ExitPrice,
			PnL:     t.PnLPerUnit,
			RunUp:   t.RunUp,
			HasExit: true,
		}
		side, title := "LONG", "Long"
		if t.Side == position.Short {
			side, title = "SHORT", "Short"
		}
		switch {
		case t.Status == ledger.Open:
			exit.Label = "OPEN " + side
		case t.Reason == ledger.ReasonTakeProfit:
			exit.Label = "TP HIT (" + title + ")"
		default:
			exit.Label = "CLOSE " + side
		}
		out = append(out, exit)
	}
	return out
}

type reportView struct {
	Run     Run
	Actions []Action
	Open    int
	Loc     *time.Location
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orNow": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"tm": func(t time.Time, loc *time.Location) string {
		if t.IsZero() {
			return "-"
		}
		return t.In(loc).Format("2006-01-02 15:04")
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportTemplate))

// WriteReport renders a markdown backtest report. Times are shown in loc,
// or UTC when loc is nil.
func WriteReport(w io.Writer, run Run, trades []ledger.TradeRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	v := reportView{Run: run, Actions: Actions(trades), Loc: loc}
	for _, t := range trades {
		if t.Status == ledger.Open {
			v.Open++
		}
	}
	return reportTemplate.Execute(w, v)
}

// WriteReportFile renders the report to path.
func WriteReportFile(path string, run Run, trades []ledger.TradeRecord, loc *time.Location) error {
	buf := new(bytes.Buffer)
	if err := WriteReport(buf, run, trades, loc); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const ReportTemplate = `# Backtest: {{.Run.Instrument}} {{if .Run.Timeframe}}{{.Run.Timeframe}}{{else}}(timeframe?){{end}}

- Run: ` + "`{{.Run.ID}}`" + `
- Created: {{(orNow .Run.Created).Format "2006-01-02 15:04"}}
{{- if .Run.Dataset}}
- Dataset: {{.Run.Dataset}}
{{- end}}
- Candles: {{tm .Run.Start .Loc}} to {{tm .Run.End .Loc}}
{{- if not .Run.From.IsZero}}
- Trading from: {{tm .Run.From .Loc}}
{{- end}}

## Parameters

| Parameter | Value |
|---|---|
| Trend period | {{.Run.TrendPeriod}} |
| Trend multiplier | {{printf "%g" .Run.TrendMultiplier}} |
| HMA period | {{.Run.HMAPeriod}} |
| Slope scaling | {{printf "%g" .Run.SlopeScaling}} |
| Slope threshold | {{printf "%g" .Run.SlopeThreshold}}° |
| Take profit | {{if eq .Run.TakeProfit 0.0}}off{{else}}{{printf "%g" .Run.TakeProfit}}{{end}} |
| Quantity | {{printf "%g" .Run.Quantity}} |

## Actions

| Time | Action | Entry | Exit | PnL | Run-up |
|---|---|---|---|---|---|
{{- range .Actions}}
{{- if .HasExit}}
| {{tm .Time $.Loc}} | {{.Label}} | {{printf "%.2f" .Entry}} | {{printf "%.2f" .Exit}} | {{printf "%.2f" .PnL}} | {{printf "%.2f" (mul100 .RunUp)}}% |
{{- else}}
| {{tm .Time $.Loc}} | {{.Label}} | {{printf "%.2f" .Price}} | - | - | - |
{{- end}}
{{- end}}

## Summary

- **Total Trades**: {{.Run.Trades}}{{if .Open}} ({{.Open}} open){{end}}
- **Wins / Losses**: {{.Run.Wins}} / {{.Run.Losses}}
- **Win Rate**: {{printf "%.1f" .Run.WinRate}}%
- **Total PnL**: {{printf "%.2f" .Run.TotalPoints}} Points ({{printf "%.2f" .Run.TotalPnL}} at quantity {{printf "%g" .Run.Quantity}})
- **Average Run-up**: {{printf "%.2f" (mul100 .Run.AvgRunUp)}}%
{{- if .Run.Notes}}

## Notes
{{- range .Run.Notes}}
- {{.}}
{{- end}}
{{- end}}
`
