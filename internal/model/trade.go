package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeKind is the direction of a trade intent.
type TradeKind string

const (
	Buy  TradeKind = "buy"
	Sell TradeKind = "sell"
)

// TradeStatus moves from Active to Profit or Loss exactly once.
type TradeStatus string

const (
	StatusActive TradeStatus = "active"
	StatusProfit TradeStatus = "profit"
	StatusLoss   TradeStatus = "loss"
)

// Trade is an open or closed position created by a Buy.
type Trade struct {
	ID         uuid.UUID       `json:"id"`
	Kind       TradeKind       `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Status     TradeStatus     `json:"status"`
	OpenedAt   time.Time       `json:"opened_at"`
	ClosedAt   time.Time       `json:"closed_at"`
	ClosePrice decimal.Decimal `json:"close_price"`
}

// Active reports whether the trade is an open Buy position.
func (t *Trade) Active() bool {
	return t.Kind == Buy && t.Status == StatusActive
}

// Close settles the trade at price. A closed trade is never reopened.
func (t *Trade) Close(status TradeStatus, price decimal.Decimal, at time.Time) {
	if t.Status != StatusActive {
		return
	}
	t.Status = status
	t.ClosePrice = price
	t.ClosedAt = at
}
