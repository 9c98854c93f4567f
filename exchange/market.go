package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trendline/pricing"
)

type wireCandle struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Candles fetches OHLCV bars for symbol at resolution (e.g. "15m") in
// [start, end]. The result is sorted ascending with duplicate times
// removed; gaps are left as they are.
func (c *Client) Candles(ctx context.Context, symbol, resolution string, start, end time.Time) ([]pricing.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("exchange: missing symbol")
	}
	if resolution == "" {
		return nil, fmt.Errorf("exchange: missing resolution")
	}

	q := url.Values{}
	q.Set("resolution", resolution)
	q.Set("symbol", symbol)
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))

	var wire []wireCandle
	if err := c.do(ctx, "GET", "/v2/history/candles", q, nil, false, &wire); err != nil {
		return nil, err
	}

	out := make([]pricing.Candle, 0, len(wire))
	for _, w := range wire {
		out = append(out, pricing.Candle{
			Time:   time.Unix(w.Time, 0).UTC(),
			Open:   w.Open.InexactFloat64(),
			High:   w.High.InexactFloat64(),
			Low:    w.Low.InexactFloat64(),
			Close:  w.Close.InexactFloat64(),
			Volume: w.Volume.InexactFloat64(),
		})
	}
	return pricing.Normalize(out), nil
}

type Product struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	Description  string          `json:"description"`
	ContractType string          `json:"contract_type"`
	TickSize     decimal.Decimal `json:"tick_size"`
	ContractSize decimal.Decimal `json:"contract_value"`
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, "GET", "/v2/products", nil, nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductID resolves symbol to its product id. The product list is fetched
// once and cached.
func (c *Client) ProductID(ctx context.Context, symbol string) (int64, error) {
	c.mu.Lock()
	cached := c.products
	c.mu.Unlock()

	if cached == nil {
		products, err := c.Products(ctx)
		if err != nil {
			return 0, err
		}
		cached = make(map[string]int64, len(products))
		for _, p := range products {
			cached[p.Symbol] = p.ID
		}
		c.mu.Lock()
		c.products = cached
		c.mu.Unlock()
	}

	id, ok := cached[symbol]
	if !ok {
		return 0, fmt.Errorf("exchange: unknown product %q", symbol)
	}
	return id, nil
}
