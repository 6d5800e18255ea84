package polymarket

import (
	"context"
	"fmt"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// signedOrderJSON is the wire shape the CLOB expects for a signed
// order, matching what go-order-utils produces field-for-field.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderSubmissionRequest struct {
	Order     signedOrderJSON `json:"order"`
	Owner     string          `json:"owner"`
	OrderType string          `json:"orderType"`
}

type orderSubmissionResponse struct {
	OrderID    string `json:"orderID"`
	Success    bool   `json:"success"`
	ErrorMsg   string `json:"errorMsg"`
	Status     string `json:"status"`
	SizeFilled string `json:"sizeMatched"`
}

// PlaceOrder signs and submits a single BUY order against the CLOB.
// The engine only ever issues BUY orders for complete-set arbitrage,
// but SELL is accepted in case a future caller needs to unwind a leg.
func (c *Client) PlaceOrder(ctx context.Context, marketID, tokenID string, side types.OrderSide, orderType types.OrderType, price, size decimal.Decimal) (types.Order, error) {
	now := time.Now()

	tickSize := c.tickSizeFor(ctx, marketID)
	sizePrecision, amountPrecision := roundingConfig(tickSize)

	roundedSize := size.Round(int32(sizePrecision))
	makerUSD := roundedSize.Mul(price).Round(int32(amountPrecision))

	modelSide := model.BUY
	if side == types.OrderSideSell {
		modelSide = model.SELL
	}

	orderData := &model.OrderData{
		Maker:         c.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(makerUSD),
		TakerAmount:   usdToRawAmount(roundedSize),
		Side:          modelSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.sigType,
	}

	signed, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return types.Order{}, fmt.Errorf("polymarket: build order: %w", err)
	}

	reqBody := orderSubmissionRequest{
		Order:     toSignedOrderJSON(signed),
		Owner:     c.cfg.APIKey,
		OrderType: "GTC",
	}

	var resp orderSubmissionResponse
	if err := c.signAndPost(ctx, "/order", reqBody, &resp); err != nil {
		OrdersSubmittedTotal.WithLabelValues("error").Inc()
		return types.Order{}, fmt.Errorf("polymarket: submit order: %w", err)
	}
	if !resp.Success {
		OrdersSubmittedTotal.WithLabelValues("rejected").Inc()
		return types.Order{}, fmt.Errorf("polymarket: order rejected: %s", resp.ErrorMsg)
	}
	OrdersSubmittedTotal.WithLabelValues("accepted").Inc()

	order := types.Order{
		OrderID:   resp.OrderID,
		MarketID:  marketID,
		TokenID:   tokenID,
		Side:      side,
		Type:      orderType,
		Price:     price,
		Size:      roundedSize,
		Status:    statusFromCLOB(resp.Status),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if filled, err := decimal.NewFromString(resp.SizeFilled); err == nil {
		order.FilledSize = filled
	}

	c.logger.Info("polymarket-order-placed",
		zap.String("order-id", order.OrderID),
		zap.String("token-id", tokenID),
		zap.String("status", string(order.Status)))

	return order, nil
}

// CancelOrder cancels a resting order. Returns false (no error) if
// the order had already left a cancellable state by the time the
// CLOB processed the request.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	var resp struct {
		Canceled    []string          `json:"canceled"`
		NotCanceled map[string]string `json:"not_canceled"`
	}
	if err := c.signAndDelete(ctx, "/order", map[string]string{"orderID": orderID}, &resp); err != nil {
		return false, fmt.Errorf("polymarket: cancel order: %w", err)
	}
	for _, id := range resp.Canceled {
		if id == orderID {
			return true, nil
		}
	}
	return false, nil
}

// GetOrderStatus fetches the current state of a previously placed
// order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (types.Order, error) {
	var resp struct {
		OrderID      string `json:"id"`
		AssetID      string `json:"asset_id"`
		Market       string `json:"market"`
		Side         string `json:"side"`
		Price        string `json:"price"`
		OriginalSize string `json:"original_size"`
		SizeMatched  string `json:"size_matched"`
		Status       string `json:"status"`
	}
	if err := c.signAndGet(ctx, fmt.Sprintf("/data/order/%s", orderID), &resp); err != nil {
		return types.Order{}, fmt.Errorf("polymarket: get order status: %w", err)
	}

	order := types.Order{
		OrderID:  resp.OrderID,
		MarketID: resp.Market,
		TokenID:  resp.AssetID,
		Status:   statusFromCLOB(resp.Status),
	}
	if side := types.OrderSide(resp.Side); side == types.OrderSideBuy || side == types.OrderSideSell {
		order.Side = side
	}
	if price, err := decimal.NewFromString(resp.Price); err == nil {
		order.Price = price
	}
	if size, err := decimal.NewFromString(resp.OriginalSize); err == nil {
		order.Size = size
	}
	if filled, err := decimal.NewFromString(resp.SizeMatched); err == nil {
		order.FilledSize = filled
	}
	return order, nil
}

func statusFromCLOB(status string) types.OrderStatus {
	switch status {
	case "LIVE", "OPEN":
		return types.OrderStatusOpen
	case "MATCHED", "FILLED":
		return types.OrderStatusFilled
	case "PARTIALLY_MATCHED", "PARTIALLY_FILLED":
		return types.OrderStatusPartiallyFilled
	case "CANCELED", "CANCELLED":
		return types.OrderStatusCancelled
	case "REJECTED":
		return types.OrderStatusRejected
	case "EXPIRED":
		return types.OrderStatusExpired
	default:
		return types.OrderStatusPending
	}
}

func toSignedOrderJSON(order *model.SignedOrder) signedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}
	return signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

// usdToRawAmount converts a USD decimal amount to the CLOB's raw
// 6-decimal integer representation.
func usdToRawAmount(usd decimal.Decimal) string {
	return usd.Mul(decimal.NewFromInt(1_000_000)).Round(0).BigInt().String()
}

// roundingConfig mirrors the CLOB's published tick-size-to-precision
// table: size is always rounded to 2 decimals, amount precision
// widens as tick size narrows.
func roundingConfig(tickSize decimal.Decimal) (sizePrecision, amountPrecision int) {
	switch {
	case tickSize.Equal(decimal.NewFromFloat(0.1)):
		return 2, 3
	case tickSize.Equal(decimal.NewFromFloat(0.01)):
		return 2, 4
	case tickSize.Equal(decimal.NewFromFloat(0.001)):
		return 2, 5
	case tickSize.Equal(decimal.NewFromFloat(0.0001)):
		return 2, 6
	default:
		return 2, 4
	}
}

// tickSizeFor looks up a market's minimum tick size, defaulting to
// 0.01 if the lookup fails; an order that is rounded too coarsely
// only costs a few hundredths of a cent of precision, so failing
// open here is preferable to blocking order placement on a metadata
// fetch.
func (c *Client) tickSizeFor(ctx context.Context, marketID string) decimal.Decimal {
	market, err := c.GetMarketInfo(ctx, marketID)
	if err != nil || market.MinTick.IsZero() {
		return decimal.NewFromFloat(0.01)
	}
	return market.MinTick
}
