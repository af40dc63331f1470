package notifier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/receipt"
	"DailyInvestTrade/internal/session"
)

// FormatCurrency renders an amount in leones with two decimals.
func FormatCurrency(d decimal.Decimal) string {
	return "NLE " + d.StringFixed(2)
}

func FormatBalance(d decimal.Decimal) string {
	return "Balance: " + FormatCurrency(d)
}

// FormatMarketStatus is the one-line status shown on every transition.
func FormatMarketStatus(m model.MarketState) string {
	if m.IsOpen {
		return "Market Status: Open | Current Price: " + FormatCurrency(m.CurrentPrice)
	}
	return "Market Status: Closed"
}

// FormatCountdown renders the time left until the next open, truncated to whole seconds.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("Next market opens in: %dh %dm %ds", secs/3600, secs%3600/60, secs%60)
}

func FormatMarketOpened() string {
	return "Market is now open!"
}

// FormatTrade is the reply to a successful buy or sell.
func FormatTrade(o *session.Outcome) string {
	verb := "Bought"
	if o.Kind == model.Sell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s at %s. Your current balance is %s.", verb, FormatCurrency(o.Price), FormatCurrency(o.Balance))
}

func FormatTotals(t model.Totals) string {
	return fmt.Sprintf("Total Profit: %s\nTotal Loss: %s", FormatCurrency(t.Profit), FormatCurrency(t.Loss))
}

func FormatDeposit(amount decimal.Decimal) string {
	return fmt.Sprintf("Deposit successful! NLE %s added to your account.", amount.String())
}

// FormatWithdrawal confirms the debit and, when the QR image was written, where to find it.
func FormatWithdrawal(r *model.Receipt, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Withdrawal of %s processed successfully.", FormatCurrency(r.Amount))
	if path != "" {
		b.WriteString("\nQR code generated successfully! Please screenshot it and submit for payment.")
		fmt.Fprintf(&b, "\nSaved to: %s", path)
	}
	return b.String()
}

// FormatHistory lists ledger activities, newest first.
func FormatHistory(acts []model.Activity) string {
	if len(acts) == 0 {
		return "No transactions yet."
	}
	var b strings.Builder
	b.WriteString("Transaction History:")
	for i := len(acts) - 1; i >= 0; i-- {
		a := acts[i]
		fmt.Fprintf(&b, "\n%s  %-10s %s  (balance %s)",
			a.Time.Format("2006-01-02 15:04:05"), a.Type, FormatCurrency(a.Amount), FormatCurrency(a.BalanceAfter))
	}
	return b.String()
}

// FormatTrades lists trades in the order they were opened.
func FormatTrades(trades []model.Trade) string {
	if len(trades) == 0 {
		return "No trades yet."
	}
	var b strings.Builder
	b.WriteString("Trades:")
	for i, t := range trades {
		fmt.Fprintf(&b, "\n%d. %s %s @ %s [%s]", i+1, t.OpenedAt.Format("15:04:05"), t.Kind, FormatCurrency(t.Price), t.Status)
		if !t.ClosedAt.IsZero() {
			fmt.Fprintf(&b, " closed @ %s", FormatCurrency(t.ClosePrice))
		}
	}
	return b.String()
}

// FormatCodes shows the deposit codes that can still be redeemed.
func FormatCodes(codes []string) string {
	if len(codes) == 0 {
		return "No deposit codes left."
	}
	return fmt.Sprintf("Available deposit codes (%d):\n%s", len(codes), strings.Join(codes, " "))
}

// Stats summarises the price series seen so far.
type Stats struct {
	Ticks    int
	SMA      decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Position float64
	RSI      float64
}

// StatusReport is everything the status command prints.
type StatusReport struct {
	Market        model.MarketState
	NextOpen      time.Time
	Balance       decimal.Decimal
	Totals        model.Totals
	Session       session.State
	MaxTrades     int
	OpenPositions int
	Withdrawals   int
	Stats         *Stats
}

func FormatStatus(r StatusReport, now time.Time) string {
	var b strings.Builder
	b.WriteString(FormatMarketStatus(r.Market))
	if !r.Market.IsOpen {
		b.WriteString("\n" + FormatCountdown(r.NextOpen.Sub(now)))
	}
	b.WriteString("\n" + FormatBalance(r.Balance))
	b.WriteString("\n" + FormatTotals(r.Totals))
	if r.Session.Active() {
		fmt.Fprintf(&b, "\nSession: %d/%d trades, started %s", r.Session.TradeCount, r.MaxTrades, r.Session.StartedAt.Format("15:04:05"))
	} else {
		b.WriteString("\nSession: not started")
	}
	fmt.Fprintf(&b, "\nOpen positions: %d", r.OpenPositions)
	fmt.Fprintf(&b, "\nWithdrawals this week: %d", r.Withdrawals)
	if s := r.Stats; s != nil && s.Ticks > 0 {
		fmt.Fprintf(&b, "\nPrice (%d ticks): SMA %s | High %s | Low %s | Position %.0f%% | RSI %.1f",
			s.Ticks, s.SMA.StringFixed(2), s.High.StringFixed(2), s.Low.StringFixed(2), s.Position*100, s.RSI)
	}
	return b.String()
}

// FormatError maps a domain error to the message shown to the operator.
func FormatError(err error) string {
	var limit *ledger.LimitError
	var timeout *session.TimeoutError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeout):
		return "Trade session has timed out. All active buy trades are now marked as losses."
	case errors.Is(err, session.ErrMarketClosed):
		return "Market is closed. Please try again during trading hours."
	case errors.Is(err, session.ErrSessionLimitReached):
		return "Maximum trade limit reached for this session."
	case errors.Is(err, session.ErrInsufficientFunds):
		return "Insufficient funds to buy at this price, get a deposit code and try again."
	case errors.Is(err, session.ErrNoOpenPosition):
		return "No available buy trades to sell!"
	case errors.Is(err, ledger.ErrInvalidCode), errors.Is(err, ledger.ErrCodeAlreadyUsed):
		return "Invalid or already used deposit code."
	case errors.Is(err, ledger.ErrMissingField):
		return "All fields are required."
	case errors.As(err, &limit) && errors.Is(err, ledger.ErrBelowMinimum):
		return fmt.Sprintf("Minimum withdrawal amount is NLE %s.", limit.Limit.String())
	case errors.As(err, &limit) && errors.Is(err, ledger.ErrAboveMaximum):
		return fmt.Sprintf("Maximum withdrawal amount is NLE %s.", limit.Limit.String())
	case errors.Is(err, ledger.ErrBadTelephone):
		return "Invalid telephone number format. Please use +232XXXXXXXX."
	case errors.Is(err, ledger.ErrQuotaExceeded):
		return "You have reached the maximum number of withdrawals for this week."
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "Insufficient balance for withdrawal."
	case errors.Is(err, receipt.ErrEncoderFailure):
		return "An error occurred while generating the QR code."
	default:
		return "Error: " + err.Error()
	}
}
