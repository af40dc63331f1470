package calculator

import (
	"github.com/shopspring/decimal"
)

// RSI is the Wilder-smoothed relative strength index over period changes.
// It needs period+1 prices and reports 50 when there are fewer.
func RSI(prices []decimal.Decimal, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrBadPeriod
	}
	if len(prices) < period+1 {
		return 50, nil
	}

	n := decimal.NewFromInt(int64(period))
	m := decimal.NewFromInt(int64(period - 1))
	gain, loss := decimal.Zero, decimal.Zero
	for i := 1; i <= period; i++ {
		change := prices[i].Sub(prices[i-1])
		if change.IsPositive() {
			gain = gain.Add(change)
		} else {
			loss = loss.Sub(change)
		}
	}
	gain = gain.Div(n)
	loss = loss.Div(n)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i].Sub(prices[i-1])
		up, down := decimal.Zero, decimal.Zero
		if change.IsPositive() {
			up = change
		} else {
			down = change.Neg()
		}
		gain = gain.Mul(m).Add(up).Div(n)
		loss = loss.Mul(m).Add(down).Div(n)
	}

	if loss.IsZero() {
		if gain.IsZero() {
			return 50, nil
		}
		return 100, nil
	}
	rs := gain.Div(loss)
	hundred := decimal.NewFromInt(100)
	v, _ := hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))).Round(2).Float64()
	return v, nil
}
