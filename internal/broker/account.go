package broker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	pnlPath    = "/iserver/account/pnl/partitioned"
	ordersPath = "/iserver/account/orders"
)

type pnlResponse struct {
	Upnl map[string]struct {
		NetLiquidation float64 `json:"nl"`
	} `json:"upnl"`
}

// AvailableFunds reads the account's net liquidation value from the
// partitioned PnL endpoint.
func (c *Client) AvailableFunds(ctx context.Context) (decimal.Decimal, error) {
	var resp pnlResponse
	if err := c.get(ctx, pnlPath, nil, &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("available funds: %w", err)
	}
	for _, partition := range resp.Upnl {
		if partition.NetLiquidation > 0 {
			return decimal.NewFromFloat(partition.NetLiquidation), nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("available funds: no partition reported a net liquidation value")
}

// workingStatuses are the order states that occupy a submission slot.
var workingStatuses = map[string]struct{}{
	"Submitted":     {},
	"PreSubmitted":  {},
	"PendingSubmit": {},
}

type ordersResponse struct {
	Orders []struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	} `json:"orders"`
}

// ActiveOrderCount reports how many orders are currently working.
func (c *Client) ActiveOrderCount(ctx context.Context) (int, error) {
	var resp ordersResponse
	if err := c.get(ctx, ordersPath, nil, &resp); err != nil {
		return 0, fmt.Errorf("active orders: %w", err)
	}
	n := 0
	for _, o := range resp.Orders {
		if _, working := workingStatuses[o.Status]; working {
			n++
		}
	}
	return n, nil
}
