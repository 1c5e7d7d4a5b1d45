package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType distinguishes limit and market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// TimeInForce is carried on the intent for downstream bookkeeping; the
// venue itself only supports resting good-till-cancelled orders.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
)

// OrderStatus is the canonical lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusWorking   OrderStatus = "working"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusComplete  OrderStatus = "complete"
	OrderStatusOther     OrderStatus = "other"
)

// OrderIntent is the caller's request to place an order. It is immutable
// once created; CreatedAt is used to measure submission latency.
type OrderIntent struct {
	ClientOrderID string          `json:"client_order_id"`
	Market        string          `json:"market"`
	Side          OrderSide       `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
	Type          OrderType       `json:"type"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderStatusUpdate is a partial-update record emitted on the order
// stream. Any field other than OrderID may be absent (zero value);
// consumers merge updates into their own order state machine. Updates
// are never mutated after emission.
type OrderStatusUpdate struct {
	OrderID         string          `json:"order_id"`
	ExchangeOrderID int64           `json:"exchange_order_id,omitempty"`
	Status          OrderStatus     `json:"status,omitempty"`
	FilledSize      decimal.Decimal `json:"filled_size"`
	RemainingSize   decimal.Decimal `json:"remaining_size"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	LastPrice       decimal.Decimal `json:"last_price"`
	LastSize        decimal.Decimal `json:"last_size"`
	RejectReason    string          `json:"reject_reason,omitempty"`
	CancelRejected  bool            `json:"cancel_rejected,omitempty"`
	Latency         time.Duration   `json:"latency,omitempty"`
	ObservedAt      time.Time       `json:"observed_at"`
}
