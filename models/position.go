package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is a replace-on-arrival view of one account balance.
// Total includes held funds; Held is the portion locked in open orders.
type PositionSnapshot struct {
	Currency   string          `json:"currency"`
	Total      decimal.Decimal `json:"total"`
	Held       decimal.Decimal `json:"held"`
	ObservedAt time.Time       `json:"observed_at"`
}
