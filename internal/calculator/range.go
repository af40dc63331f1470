package calculator

import (
	"github.com/shopspring/decimal"
)

// Range returns the high and low of the last window prices (all of them if window <= 0).
func Range(prices []decimal.Decimal, window int) (high, low decimal.Decimal, err error) {
	if len(prices) == 0 {
		return decimal.Zero, decimal.Zero, ErrNotEnoughData
	}
	start := 0
	if window > 0 && len(prices) > window {
		start = len(prices) - window
	}
	recent := prices[start:]
	return decimal.Max(recent[0], recent[1:]...), decimal.Min(recent[0], recent[1:]...), nil
}

// Position places current within [low, high] as a fraction in [0, 1]. A flat range sits at 0.5.
func Position(current, high, low decimal.Decimal) float64 {
	if !high.GreaterThan(low) {
		return 0.5
	}
	pos, _ := current.Sub(low).Div(high.Sub(low)).Float64()
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}
