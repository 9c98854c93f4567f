// Package exchange is a REST client for a Delta-style derivatives exchange:
// historical candles, products, positions and market orders.
package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultBaseURL = "https://api.india.delta.exchange"

type Client struct {
	BaseURL   string // e.g. https://api.delta.exchange
	APIKey    string
	APISecret string
	HTTP      *http.Client

	// Now stamps signed requests. Defaults to time.Now.
	Now func() time.Time

	mu       sync.Mutex
	products map[string]int64
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := &http.Client{Timeout: timeout}
	if timeout <= 0 {
		hc.Timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		APISecret: apiSecret,
		HTTP:      hc,
	}
}

// APIError is a non-2xx reply or a reply with success=false.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange %s %s http %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Sign returns the hex HMAC-SHA256 of method+timestamp+path+query+body.
// query, when non-empty, is included with its leading '?'.
func Sign(secret, method, timestamp, pathAndQuery, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + timestamp + pathAndQuery + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// do sends a request and decodes the result field of the envelope into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, auth bool, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("exchange: missing base url")
	}
	if auth && (c.APIKey == "" || c.APISecret == "") {
		return fmt.Errorf("exchange: missing api credentials")
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	pathAndQuery := path
	if len(query) > 0 {
		pathAndQuery += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+pathAndQuery, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "trendline")

	if auth {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		req.Header.Set("api-key", c.APIKey)
		req.Header.Set("timestamp", ts)
		req.Header.Set("signature", Sign(c.APISecret, method, ts, pathAndQuery, string(body)))
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{Status: resp.StatusCode, Method: method, Path: path, Body: strings.TrimSpace(string(b))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("exchange %s %s: decode: %w", method, path, err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Method: method, Path: path, Body: strings.TrimSpace(string(env.Error))}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("exchange %s %s: decode result: %w", method, path, err)
	}
	return nil
}
