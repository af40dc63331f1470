// Package calculator derives statistics from the simulated price series.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/model"
)

var (
	ErrBadPeriod     = errors.New("period must be positive")
	ErrNotEnoughData = errors.New("not enough data")
)

// SMA is the simple moving average of the last period prices.
func SMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, ErrBadPeriod
	}
	if len(prices) < period {
		return decimal.Zero, ErrNotEnoughData
	}
	sum := decimal.Sum(decimal.Zero, prices[len(prices)-period:]...)
	return sum.Div(decimal.NewFromInt(int64(period))).Round(2), nil
}

// Prices extracts the price column of a tick series.
func Prices(points []model.PricePoint) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
