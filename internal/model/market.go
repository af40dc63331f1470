package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketState is derived on every evaluation tick and never persisted.
type MarketState struct {
	IsOpen       bool
	CurrentPrice decimal.Decimal
}

// PricePoint is a single simulated price observation.
type PricePoint struct {
	Time  time.Time
	Price decimal.Decimal
}
