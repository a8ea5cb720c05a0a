package broker

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tmglimp/commas/internal/sizing"
)

// comboVenueID routes two-legged futures combos through the exchange
// smart router.
const comboVenueID = "28812380"

type orderRequest struct {
	Orders []comboOrder `json:"orders"`
}

type comboOrder struct {
	ConIDExchange string  `json:"conidex"`
	OrderType     string  `json:"orderType"`
	Side          string  `json:"side"`
	TIF           string  `json:"tif"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
}

type orderReply struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Text    string `json:"text"`
}

// SubmitOrder places one combo as a DAY limit order. Confirmation
// prompts from the gateway are logged, not answered; the order rests
// until the broker accepts or the session drops it.
func (c *Client) SubmitOrder(ctx context.Context, inst sizing.OrderInstruction) error {
	if c.opts.AccountID == "" {
		return fmt.Errorf("submit order: account id not configured")
	}

	price, _ := inst.LimitPrice.Float64()
	payload := orderRequest{Orders: []comboOrder{{
		ConIDExchange: comboConIDExchange(inst),
		OrderType:     "LMT",
		Side:          "BUY",
		TIF:           "DAY",
		Quantity:      inst.Quantity,
		Price:         price,
	}}}

	var replies []orderReply
	path := "/iserver/account/" + c.opts.AccountID + "/orders"
	if err := c.post(ctx, path, payload, &replies); err != nil {
		return fmt.Errorf("submit order: %w", err)
	}

	for _, reply := range replies {
		event := c.logger.Info().
			Str("conidex", payload.Orders[0].ConIDExchange).
			Int("quantity", inst.Quantity).
			Str("limit_price", inst.LimitPrice.String())
		if reply.OrderID != "" {
			event = event.Str("order_id", reply.OrderID)
		} else if reply.ID != "" {
			event = event.Str("reply_id", reply.ID)
		}
		if msg := strings.TrimSpace(reply.Message + reply.Text); msg != "" {
			event = event.Str("broker_message", msg)
		}
		event.Msg("combo order submitted")
	}
	return nil
}

// comboConIDExchange renders the venue-prefixed leg list. Leg ratios are
// rounded to whole contracts; the sign carries the side of each leg.
func comboConIDExchange(inst sizing.OrderInstruction) string {
	front := strconv.FormatInt(inst.FrontConID, 10) + "/" + strconv.Itoa(int(math.Round(inst.FrontRatio)))
	back := strconv.FormatInt(inst.BackConID, 10) + "/" + strconv.Itoa(int(math.Round(inst.BackRatio)))
	return comboVenueID + ";;;" + front + "," + back
}
