package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/receipt"
	"DailyInvestTrade/internal/session"
)

func init() { color.NoColor = true }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "NLE 12.30", FormatCurrency(dec("12.3")))
	assert.Equal(t, "NLE 0.00", FormatCurrency(decimal.Zero))
	assert.Equal(t, "Balance: NLE 65.00", FormatBalance(dec("65")))
}

func TestFormatMarketStatus(t *testing.T) {
	assert.Equal(t, "Market Status: Open | Current Price: NLE 45.10",
		FormatMarketStatus(model.MarketState{IsOpen: true, CurrentPrice: dec("45.1")}))
	assert.Equal(t, "Market Status: Closed",
		FormatMarketStatus(model.MarketState{CurrentPrice: dec("45.1")}))
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "Next market opens in: 2h 5m 9s", FormatCountdown(2*time.Hour+5*time.Minute+9*time.Second+900*time.Millisecond))
	assert.Equal(t, "Next market opens in: 49h 0m 0s", FormatCountdown(49*time.Hour))
	assert.Equal(t, "Next market opens in: 0h 0m 0s", FormatCountdown(-time.Second))
}

func TestFormatTrade(t *testing.T) {
	assert.Equal(t, "Bought at NLE 30.00. Your current balance is NLE 20.00.",
		FormatTrade(&session.Outcome{Kind: model.Buy, Price: dec("30"), Balance: dec("20")}))
	assert.Equal(t, "Sold at NLE 45.00. Your current balance is NLE 65.00.",
		FormatTrade(&session.Outcome{Kind: model.Sell, Price: dec("45"), Balance: dec("65")}))
}

func TestFormatWithdrawal(t *testing.T) {
	r := &model.Receipt{Amount: dec("50")}
	assert.Equal(t, "Withdrawal of NLE 50.00 processed successfully.", FormatWithdrawal(r, ""))
	assert.Contains(t, FormatWithdrawal(r, "out/x.png"), "Saved to: out/x.png")
}

func TestFormatHistory_NewestFirst(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	out := FormatHistory([]model.Activity{
		{Type: model.ActivityDeposit, Amount: dec("20"), Time: t0, BalanceAfter: dec("20")},
		{Type: model.ActivityBuy, Amount: dec("5"), Time: t0.Add(time.Minute), BalanceAfter: dec("15")},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Buy")
	assert.Contains(t, lines[2], "Deposit")
	assert.Equal(t, "No transactions yet.", FormatHistory(nil))
}

func TestFormatStatus(t *testing.T) {
	now := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)
	out := FormatStatus(StatusReport{
		NextOpen:  now.Add(48 * time.Hour),
		Balance:   dec("10"),
		MaxTrades: 6,
		Stats:     &Stats{Ticks: 3, SMA: dec("5"), High: dec("9"), Low: dec("1"), Position: 0.5, RSI: 55},
	}, now)
	assert.Contains(t, out, "Market Status: Closed")
	assert.Contains(t, out, "Next market opens in: 48h 0m 0s")
	assert.Contains(t, out, "Session: not started")
	assert.Contains(t, out, "Price (3 ticks): SMA 5.00 | High 9.00 | Low 1.00 | Position 50% | RSI 55.0")
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrMarketClosed, "Market is closed. Please try again during trading hours."},
		{session.ErrSessionLimitReached, "Maximum trade limit reached for this session."},
		{&session.TimeoutError{}, "Trade session has timed out. All active buy trades are now marked as losses."},
		{session.ErrInsufficientFunds, "Insufficient funds to buy at this price, get a deposit code and try again."},
		{session.ErrNoOpenPosition, "No available buy trades to sell!"},
		{fmt.Errorf("%w: x", ledger.ErrInvalidCode), "Invalid or already used deposit code."},
		{ledger.ErrCodeAlreadyUsed, "Invalid or already used deposit code."},
		{ledger.ErrMissingField, "All fields are required."},
		{&ledger.LimitError{Err: ledger.ErrBelowMinimum, Limit: dec("40")}, "Minimum withdrawal amount is NLE 40."},
		{&ledger.LimitError{Err: ledger.ErrAboveMaximum, Limit: dec("200")}, "Maximum withdrawal amount is NLE 200."},
		{ledger.ErrBadTelephone, "Invalid telephone number format. Please use +232XXXXXXXX."},
		{ledger.ErrQuotaExceeded, "You have reached the maximum number of withdrawals for this week."},
		{ledger.ErrInsufficientBalance, "Insufficient balance for withdrawal."},
		{fmt.Errorf("%w: png", receipt.ErrEncoderFailure), "An error occurred while generating the QR code."},
		{errors.New("disk full"), "Error: disk full"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatError(tt.err), "%v", tt.err)
	}
	assert.Empty(t, FormatError(nil))
}

func TestSeriesChart(t *testing.T) {
	c := NewSeriesChart(3)
	for i := 1; i <= 5; i++ {
		c.AppendPrice(fmt.Sprint(i), decimal.NewFromInt(int64(i)))
	}
	c.AppendBuy("b", dec("1"))
	c.AppendSell("s", dec("2"))
	c.Redraw()

	prices := c.Prices()
	require.Len(t, prices, 3)
	assert.Equal(t, "3", prices[0].Label)
	assert.Equal(t, "5", prices[2].Label)
	assert.Len(t, c.PriceValues(), 3)
	assert.Len(t, c.Buys(), 1)
	assert.Len(t, c.Sells(), 1)
	assert.Equal(t, 1, c.Redraws())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "9:5:7", Label(time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC)))
}

func TestConsole_RunDispatchesLines(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 0)
	var got []string
	err := c.Run(context.Background(), strings.NewReader("balance\n\n  buy  \nquit\nsell\n"), func(cmd string) string {
		got = append(got, cmd)
		return "ok " + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"balance", "buy"}, got)
	assert.Equal(t, "ok balance\nok buy\n", out.String())
}

func TestConsole_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsole(&bytes.Buffer{}, 1)
	pr, pw := io.Pipe()
	defer pw.Close()
	assert.NoError(t, c.Run(ctx, pr, func(string) string { return "" }))
}

func TestConsole_CountdownThrottled(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 0)
	c.Countdown(10 * time.Minute)
	c.Countdown(10*time.Minute - time.Second)
	c.Countdown(9 * time.Minute)
	c.Countdown(2 * time.Hour) // next closed period
	assert.Equal(t, 3, strings.Count(out.String(), "Next market opens in"))
}

func TestConsole_Presenter(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, 0)
	c.MarketStatus(model.MarketState{IsOpen: true, CurrentPrice: dec("1")})
	c.Notify(FormatMarketOpened())
	assert.Equal(t, "Market Status: Open | Current Price: NLE 1.00\nMarket is now open!\n", out.String())
}
