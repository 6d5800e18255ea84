package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is a closed set; the engine only ever issues BUY.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the order execution style requested at placement.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeIOC    OrderType = "IOC"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus is the closed set of venue order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsOpenForCancel reports whether an order in this status still has
// resting exposure that a partial-fill recovery must cancel.
func (s OrderStatus) IsOpenForCancel() bool {
	switch s {
	case OrderStatusPending, OrderStatusOpen, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// Order is a venue order the engine placed, one leg of a TradeSet.
type Order struct {
	OrderID      string
	MarketID     string
	TokenID      string
	Side         OrderSide
	Type         OrderType
	Price        decimal.Decimal
	Size         decimal.Decimal
	Status       OrderStatus
	FilledSize   decimal.Decimal
	AvgFillPrice decimal.Decimal
	Fee          decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fill is one execution report against an Order.
type Fill struct {
	FillID    string
	OrderID   string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Fee       decimal.Decimal
	Timestamp time.Time
}
