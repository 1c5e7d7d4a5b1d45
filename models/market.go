package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide identifies which side of the book a trade removed liquidity from.
type TradeSide string

const (
	TradeSideBid     TradeSide = "bid"
	TradeSideAsk     TradeSide = "ask"
	TradeSideUnknown TradeSide = "unknown"
)

// BookLevel represents a single resting liquidity level.
type BookLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook is a full-replace depth snapshot. Bids are ordered best
// (highest) first and asks best (lowest) first, exactly as returned by
// the venue. Snapshots are never merged with previous ones.
type OrderBook struct {
	Market     string      `json:"market"`
	Bids       []BookLevel `json:"bids"`
	Asks       []BookLevel `json:"asks"`
	ObservedAt time.Time   `json:"observed_at"`
}

// Trade is a single public trade from the venue tape. FirstBatch marks
// trades delivered by the connector's cold-start catch-up poll, before
// any cursor had been established; downstream strategies must not treat
// those as actionable signal.
type Trade struct {
	TradeID    int64           `json:"trade_id"`
	Market     string          `json:"market"`
	Price      decimal.Decimal `json:"price"`
	Size       decimal.Decimal `json:"size"`
	Side       TradeSide       `json:"side"`
	OccurredAt time.Time       `json:"occurred_at"`
	FirstBatch bool            `json:"first_batch"`
}

// ConnectivityStatus reports transport health on the connectivity stream.
type ConnectivityStatus string

const (
	ConnectivityConnected    ConnectivityStatus = "connected"
	ConnectivityDisconnected ConnectivityStatus = "disconnected"
)
