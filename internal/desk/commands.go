package desk

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/ledger"
	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/notifier"
	"DailyInvestTrade/internal/session"
)

const helpText = `Available commands:
  buy                                   buy at the current price
  sell                                  sell the oldest open buy at the current price
  deposit <code>                        redeem a deposit code
  withdraw <user>|<address>|<tel>|<amt> withdraw and write a QR receipt
  balance                               balance and profit/loss totals
  status                                market, session and price statistics
  history                               transaction history
  trades                                all trades this run
  codes                                 unredeemed deposit codes
  reset                                 end the current trade session
  help                                  this text`

// HandleCommand executes one operator command and returns the reply.
func (d *Desk) HandleCommand(line string) string {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()

	switch strings.ToLower(name) {
	case "buy":
		return d.tradeLocked(model.Buy, now)
	case "sell":
		return d.tradeLocked(model.Sell, now)
	case "deposit":
		return d.depositLocked(rest, now)
	case "withdraw":
		return d.withdrawLocked(rest, now)
	case "balance":
		return notifier.FormatBalance(d.ledger.Balance()) + "\n" + notifier.FormatTotals(d.ledger.Totals())
	case "status":
		return d.statusLocked(now)
	case "history":
		return notifier.FormatHistory(d.ledger.State().Activities)
	case "trades":
		return notifier.FormatTrades(d.engine.Trades())
	case "codes":
		return notifier.FormatCodes(d.ledger.AvailableCodes())
	case "reset":
		d.engine.Reset()
		return "Trade session reset."
	default:
		return helpText
	}
}

func (d *Desk) tradeLocked(kind model.TradeKind, now time.Time) string {
	out, err := d.engine.Attempt(kind, d.marketLocked(now), now)
	if err != nil {
		var te *session.TimeoutError
		if errors.As(err, &te) {
			for _, t := range te.Liquidated {
				d.recordTrade(t)
			}
		}
		log.Info().Str("kind", string(kind)).Err(err).Msg("trade rejected")
		return notifier.FormatError(err)
	}

	label := d.label(now)
	if d.chart != nil {
		if kind == model.Buy {
			d.chart.AppendBuy(label, out.Price)
		} else {
			d.chart.AppendSell(label, out.Price)
		}
		d.chart.Redraw()
	}
	d.recordTrade(out.Trade)

	activity := model.ActivityBuy
	if kind == model.Sell {
		activity = model.ActivitySell
	}
	d.recordActivity(model.Activity{Type: activity, Amount: out.Price, Time: now, BalanceAfter: out.Balance})

	reply := notifier.FormatTrade(out)
	if kind == model.Sell {
		reply += "\n" + notifier.FormatTotals(d.ledger.Totals())
	}
	return reply
}

func (d *Desk) depositLocked(code string, now time.Time) string {
	if code == "" {
		return "Usage: deposit <code>"
	}
	amount, err := d.ledger.Deposit(code, now)
	if err != nil {
		return notifier.FormatError(err)
	}
	balance := d.ledger.Balance()
	d.recordActivity(model.Activity{Type: model.ActivityDeposit, Amount: amount, Time: now, BalanceAfter: balance})
	return notifier.FormatDeposit(amount) + "\n" + notifier.FormatBalance(balance)
}

// parseWithdrawal splits "user|address|tel|amount". A non-numeric amount is
// treated as missing.
func parseWithdrawal(args string) (ledger.WithdrawRequest, bool) {
	parts := strings.Split(args, "|")
	if len(parts) != 4 {
		return ledger.WithdrawRequest{}, false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
	if err != nil {
		amount = decimal.Zero
	}
	return ledger.WithdrawRequest{
		Username:  parts[0],
		Address:   parts[1],
		Telephone: parts[2],
		Amount:    amount,
	}, true
}

func (d *Desk) withdrawLocked(args string, now time.Time) string {
	req, ok := parseWithdrawal(args)
	if !ok {
		return "Usage: withdraw <username>|<address>|<telephone>|<amount>"
	}
	r, err := d.ledger.Withdraw(req, now)
	if err != nil {
		return notifier.FormatError(err)
	}
	if err := d.recorder.RecordWithdrawal(r); err != nil {
		log.Warn().Err(err).Msg("record withdrawal")
	}
	d.recordActivity(model.Activity{Type: model.ActivityWithdrawal, Amount: r.Amount, Time: now, BalanceAfter: d.ledger.Balance()})

	if d.encoder == nil {
		return notifier.FormatWithdrawal(r, "")
	}
	path, err := d.encoder.WriteFile(r)
	if err != nil {
		log.Error().Err(err).Msg("write withdrawal receipt")
		return notifier.FormatWithdrawal(r, "") + "\n" + notifier.FormatError(err)
	}
	return notifier.FormatWithdrawal(r, path)
}

func (d *Desk) statusLocked(now time.Time) string {
	market := d.marketLocked(now)
	return notifier.FormatStatus(notifier.StatusReport{
		Market:        market,
		NextOpen:      d.sched.NextOpen(now),
		Balance:       d.ledger.Balance(),
		Totals:        d.ledger.Totals(),
		Session:       d.engine.State(),
		MaxTrades:     d.maxTrades,
		OpenPositions: d.engine.OpenPositions(),
		Withdrawals:   d.ledger.State().WithdrawalsThisWeek,
		Stats:         d.statsLocked(market.CurrentPrice),
	}, now)
}

func (d *Desk) recordTrade(t model.Trade) {
	if err := d.recorder.RecordTrade(t); err != nil {
		log.Warn().Err(err).Str("trade_id", t.ID.String()).Msg("record trade")
	}
}

func (d *Desk) recordActivity(a model.Activity) {
	if err := d.recorder.RecordActivity(a); err != nil {
		log.Warn().Err(err).Msg("record activity")
	}
}
