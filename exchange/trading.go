package exchange

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Position is an open position. Size is signed: positive long, negative short.
type Position struct {
	ProductID     int64           `json:"product_id"`
	Symbol        string          `json:"product_symbol"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

func (p Position) Long() bool { return p.Size.IsPositive() }

// Positions lists open positions.
func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	var out []Position
	if err := c.do(ctx, "GET", "/v2/positions", nil, nil, true, &out); err != nil {
		return nil, err
	}
	open := out[:0]
	for _, p := range out {
		if !p.Size.IsZero() {
			open = append(open, p)
		}
	}
	return open, nil
}

// PositionSize returns the signed size and entry price for symbol, zero when
// flat.
func (c *Client) PositionSize(ctx context.Context, symbol string) (float64, float64, error) {
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}
	positions, err := c.Positions(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range positions {
		if p.ProductID == pid {
			return p.Size.InexactFloat64(), p.EntryPrice.InexactFloat64(), nil
		}
	}
	return 0, 0, nil
}

type orderRequest struct {
	ProductID   int64  `json:"product_id"`
	Size        int64  `json:"size"` // whole contracts
	Side        Side   `json:"side"`
	OrderType   string `json:"order_type"`
	TimeInForce string `json:"time_in_force"`
}

type Order struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Side      Side            `json:"side"`
	Size      decimal.Decimal `json:"size"`
	State     string          `json:"state"`
	AvgFill   decimal.Decimal `json:"average_fill_price"`
}

// PlaceMarketOrder sends a market order for size contracts of symbol. Size
// must be a whole number of contracts.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side Side, size float64) (Order, error) {
	if side != Buy && side != Sell {
		return Order{}, fmt.Errorf("exchange: bad order side %q", side)
	}
	if size <= 0 || size != math.Trunc(size) || size > math.MaxInt32 {
		return Order{}, fmt.Errorf("exchange: order size must be a positive whole number of contracts, got %g", size)
	}
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return Order{}, err
	}

	req := orderRequest{
		ProductID:   pid,
		Size:        int64(size),
		Side:        side,
		OrderType:   "market_order",
		TimeInForce: "gtc",
	}
	var out Order
	if err := c.do(ctx, "POST", "/v2/orders", nil, req, true, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// CancelAllOrders cancels every open order on symbol.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	pid, err := c.ProductID(ctx, symbol)
	if err != nil {
		return err
	}
	return c.do(ctx, "DELETE", "/v2/orders", nil, map[string]int64{"product_id": pid}, true, nil)
}
