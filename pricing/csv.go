package pricing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"time", "open", "high", "low", "close", "volume"}

// ReadCSV reads candle rows:
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339, RFC3339Nano or unix seconds. A single header row
// ("time,...") is allowed and empty rows are skipped. The result is
// normalised (ascending, unique times).
func ReadCSV(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		out      []Candle
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		c, err := parseCandleRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return Normalize(out), nil
}

func parseCandleRow(row []string) (Candle, error) {
	if len(row) < 5 {
		return Candle{}, fmt.Errorf("bad row (need at least 5 cols time,open,high,low,close): %v", row)
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Candle{}, err
	}

	var vals [5]float64
	n := 4
	if len(row) >= 6 {
		n = 5
	}
	for i := 0; i < n; i++ {
		s := strings.TrimSpace(row[i+1])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad %s %q: %w", csvHeader[i+1], s, err)
		}
		vals[i] = v
	}

	return Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return time.Unix(sec, 0).UTC(), nil
}

// WriteCSV writes candles with a header row. Times are RFC3339 UTC.
func WriteCSV(w io.Writer, candles []Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			c.Time.UTC().Format(time.RFC3339),
			ff(c.Open),
			ff(c.High),
			ff(c.Low),
			ff(c.Close),
			ff(c.Volume),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
