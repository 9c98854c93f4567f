package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{
		BaseURL:   srv.URL,
		APIKey:    "key",
		APISecret: "secret",
		HTTP:      srv.Client(),
		Now:       fixedNow,
	}
}

const productsJSON = `{"success":true,"result":[
	{"id":27,"symbol":"BTCUSD","contract_type":"perpetual_futures","tick_size":"0.5"},
	{"id":3136,"symbol":"ETHUSD","contract_type":"perpetual_futures","tick_size":"0.05"}]}`

func TestSign(t *testing.T) {
	a := Sign("secret", "GET", "1700000000", "/v2/positions", "")
	b := Sign("secret", "GET", "1700000000", "/v2/positions", "")
	c := Sign("secret", "GET", "1700000001", "/v2/positions", "")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestCandles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/history/candles", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "15m", q.Get("resolution"))
		require.Equal(t, "BTCUSD", q.Get("symbol"))
		require.Equal(t, "1700000000", q.Get("start"))
		require.Equal(t, "1700003600", q.Get("end"))
		require.Empty(t, r.Header.Get("signature"))

		// newest first, one duplicate, mixed string/number values
		_, _ = io.WriteString(w, `{"success":true,"result":[
			{"time":1700001800,"open":"101","high":"103","low":"100","close":"102.5","volume":7},
			{"time":1700000900,"open":100,"high":102,"low":99,"close":101,"volume":"5"},
			{"time":1700000900,"open":100,"high":102,"low":99,"close":101,"volume":"5"}]}`)
	})

	start := time.Unix(1700000000, 0)
	got, err := c.Candles(context.Background(), "BTCUSD", "15m", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Unix(1700000900, 0).UTC(), got[0].Time)
	assert.Equal(t, 101.0, got[0].Close)
	assert.Equal(t, 5.0, got[0].Volume)
	assert.Equal(t, 102.5, got[1].Close)
}

func TestCandlesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := c.Candles(context.Background(), "BTCUSD", "15m", time.Now(), time.Now())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "rate limited")
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"invalid_api_key"}}`)
	})
	_, err := c.Products(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_api_key")
}

func TestProductIDCached(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/products", r.URL.Path)
		calls++
		_, _ = io.WriteString(w, productsJSON)
	})

	id, err := c.ProductID(context.Background(), "ETHUSD")
	require.NoError(t, err)
	assert.Equal(t, int64(3136), id)

	id, err = c.ProductID(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, int64(27), id)
	assert.Equal(t, 1, calls)

	_, err = c.ProductID(context.Background(), "DOGEUSD")
	require.Error(t, err)
}

func TestPositionSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/products":
			_, _ = io.WriteString(w, productsJSON)
		case "/v2/positions":
			require.Equal(t, "key", r.Header.Get("api-key"))
			require.Equal(t, "1700000000", r.Header.Get("timestamp"))
			require.Equal(t, Sign("secret", "GET", "1700000000", "/v2/positions", ""), r.Header.Get("signature"))
			_, _ = io.WriteString(w, `{"success":true,"result":[
				{"product_id":27,"product_symbol":"BTCUSD","size":0,"entry_price":"0"},
				{"product_id":3136,"product_symbol":"ETHUSD","size":-3,"entry_price":"2001.5"}]}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	size, entry, err := c.PositionSize(context.Background(), "ETHUSD")
	require.NoError(t, err)
	assert.Equal(t, -3.0, size)
	assert.Equal(t, 2001.5, entry)

	size, entry, err = c.PositionSize(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, entry)
}

func TestPositionsRequiresCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	c.APISecret = ""
	_, err := c.Positions(context.Background())
	require.Error(t, err)
}

func TestPlaceMarketOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/products":
			_, _ = io.WriteString(w, productsJSON)
		case "/v2/orders":
			require.Equal(t, http.MethodPost, r.Method)
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.Equal(t, Sign("secret", "POST", "1700000000", "/v2/orders", string(body)), r.Header.Get("signature"))

			var req map[string]any
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, float64(3136), req["product_id"])
			assert.Equal(t, float64(2), req["size"])
			assert.Contains(t, string(body), `"size":2,`)
			assert.Equal(t, "buy", req["side"])
			assert.Equal(t, "market_order", req["order_type"])
			assert.Equal(t, "gtc", req["time_in_force"])
			_, _ = io.WriteString(w, `{"success":true,"result":{"id":9,"product_id":3136,"side":"buy","size":2,"state":"closed","average_fill_price":"2010"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	o, err := c.PlaceMarketOrder(context.Background(), "ETHUSD", Buy, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), o.ID)
	assert.Equal(t, "2010", o.AvgFill.String())

	_, err = c.PlaceMarketOrder(context.Background(), "ETHUSD", Side("hold"), 2)
	require.Error(t, err)
	_, err = c.PlaceMarketOrder(context.Background(), "ETHUSD", Sell, 0)
	require.Error(t, err)
	_, err = c.PlaceMarketOrder(context.Background(), "ETHUSD", Sell, 1.5)
	require.ErrorContains(t, err, "whole number")
}

func TestCancelAllOrders(t *testing.T) {
	var deleted bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/products":
			_, _ = io.WriteString(w, productsJSON)
		case "/v2/orders":
			require.Equal(t, http.MethodDelete, r.Method)
			var req map[string]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(27), req["product_id"])
			deleted = true
			_, _ = io.WriteString(w, `{"success":true}`)
		}
	})

	require.NoError(t, c.CancelAllOrders(context.Background(), "BTCUSD"))
	assert.True(t, deleted)
}
