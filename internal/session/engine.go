// Package session runs the trade-session state machine: trade caps, session
// timeout liquidation and oldest-first matching of sells to open buys.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/store"
)

var (
	ErrMarketClosed        = errors.New("market is closed")
	ErrSessionLimitReached = errors.New("maximum trade limit reached for this session")
	ErrSessionTimedOut     = errors.New("trade session has timed out")
	ErrInsufficientFunds   = errors.New("insufficient funds to buy at this price")
	ErrNoOpenPosition      = errors.New("no available buy trades to sell")
	ErrUnknownKind         = errors.New("unknown trade kind")
)

// TimeoutError reports a forced liquidation. It matches ErrSessionTimedOut.
type TimeoutError struct {
	StartedAt  time.Time
	Liquidated []model.Trade
	Loss       decimal.Decimal
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %d active buy trades closed as losses (%s)",
		ErrSessionTimedOut, len(e.Liquidated), e.Loss.StringFixed(2))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrSessionTimedOut }

// Accounts is the slice of the ledger the engine needs.
type Accounts interface {
	Balance() decimal.Decimal
	Debit(kind model.ActivityType, amount decimal.Decimal, now time.Time) (decimal.Decimal, error)
	Credit(kind model.ActivityType, amount decimal.Decimal, now time.Time) (decimal.Decimal, error)
	RecordProfit(amount decimal.Decimal)
	RecordLoss(amount decimal.Decimal)
}

// Config caps a session.
type Config struct {
	MaxTrades int
	Timeout   time.Duration
}

// DefaultConfig allows six trades per fifteen-minute session.
func DefaultConfig() Config {
	return Config{MaxTrades: 6, Timeout: 15 * time.Minute}
}

// Outcome describes a trade that went through.
type Outcome struct {
	Kind       model.TradeKind
	Price      decimal.Decimal
	Trade      model.Trade
	Delta      decimal.Decimal
	Balance    decimal.Decimal
	TradeCount int
}

// State is the session clock and counter.
type State struct {
	StartedAt  time.Time
	TradeCount int
}

// Active reports whether a session has started.
func (s State) Active() bool { return !s.StartedAt.IsZero() }

// Option customises an Engine.
type Option func(*Engine)

// WithTradeStore persists the trade list under store.KeyTrades and restores it
// on construction. Without it trades live only as long as the process.
func WithTradeStore(st store.Store) Option {
	return func(e *Engine) { e.store = st }
}

// Engine holds the trade list and the current session.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	accounts  Accounts
	store     store.Store
	trades    []*model.Trade
	startedAt time.Time
	count     int
}

// NewEngine creates an engine with no session in progress.
func NewEngine(accounts Accounts, cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg, accounts: accounts}
	for _, opt := range opts {
		opt(e)
	}
	if e.store != nil {
		trades, err := store.Lookup(e.store, store.KeyTrades, store.DecodeTrades)
		if err != nil {
			return nil, err
		}
		for i := range trades {
			e.trades = append(e.trades, &trades[i])
		}
	}
	return e, nil
}

// Attempt applies a trade intent at the current market price. Checks run in a
// fixed order and the first failure is returned.
func (e *Engine) Attempt(kind model.TradeKind, market model.MarketState, now time.Time) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if kind != model.Buy && kind != model.Sell {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !market.IsOpen {
		return nil, ErrMarketClosed
	}
	if e.count >= e.cfg.MaxTrades {
		return nil, ErrSessionLimitReached
	}

	if e.startedAt.IsZero() {
		e.startedAt = now
	} else if now.Sub(e.startedAt) > e.cfg.Timeout {
		return nil, e.liquidateLocked(market.CurrentPrice, now)
	}

	price := market.CurrentPrice
	var out *Outcome
	var err error
	if kind == model.Buy {
		out, err = e.buyLocked(price, now)
	} else {
		out, err = e.sellLocked(price, now)
	}
	if err != nil {
		return nil, err
	}

	e.count++
	out.TradeCount = e.count
	e.saveLocked()
	return out, nil
}

func (e *Engine) buyLocked(price decimal.Decimal, now time.Time) (*Outcome, error) {
	if e.accounts.Balance().LessThan(price) {
		return nil, ErrInsufficientFunds
	}
	balance, err := e.accounts.Debit(model.ActivityBuy, price, now)
	if err != nil {
		return nil, fmt.Errorf("debit buy: %w", err)
	}
	t := &model.Trade{
		ID:       uuid.New(),
		Kind:     model.Buy,
		Price:    price,
		Status:   model.StatusActive,
		OpenedAt: now,
	}
	e.trades = append(e.trades, t)
	log.Info().Str("trade_id", t.ID.String()).Str("price", price.StringFixed(2)).Msg("bought")
	return &Outcome{Kind: model.Buy, Price: price, Trade: *t, Balance: balance}, nil
}

func (e *Engine) sellLocked(price decimal.Decimal, now time.Time) (*Outcome, error) {
	var matched *model.Trade
	for _, t := range e.trades {
		if t.Active() {
			matched = t
			break
		}
	}
	if matched == nil {
		return nil, ErrNoOpenPosition
	}

	balance, err := e.accounts.Credit(model.ActivitySell, price, now)
	if err != nil {
		return nil, fmt.Errorf("credit sell: %w", err)
	}

	// Break-even counts as a loss.
	delta := price.Sub(matched.Price)
	if delta.IsPositive() {
		matched.Close(model.StatusProfit, price, now)
		e.accounts.RecordProfit(delta)
	} else {
		matched.Close(model.StatusLoss, price, now)
		e.accounts.RecordLoss(delta.Abs())
	}
	log.Info().
		Str("trade_id", matched.ID.String()).
		Str("price", price.StringFixed(2)).
		Str("delta", delta.StringFixed(2)).
		Str("status", string(matched.Status)).
		Msg("sold")
	return &Outcome{Kind: model.Sell, Price: price, Trade: *matched, Delta: delta, Balance: balance}, nil
}

// liquidateLocked closes every active buy as a loss worth the current price
// and resets the session.
func (e *Engine) liquidateLocked(price decimal.Decimal, now time.Time) error {
	te := &TimeoutError{StartedAt: e.startedAt, Loss: decimal.Zero}
	for _, t := range e.trades {
		if !t.Active() {
			continue
		}
		t.Close(model.StatusLoss, price, now)
		e.accounts.RecordLoss(price)
		te.Loss = te.Loss.Add(price)
		te.Liquidated = append(te.Liquidated, *t)
	}
	e.resetLocked()
	e.saveLocked()
	log.Warn().Int("liquidated", len(te.Liquidated)).Str("loss", te.Loss.StringFixed(2)).Msg("trade session timed out")
	return te
}

// Reset ends the current session without touching trades.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.startedAt = time.Time{}
	e.count = 0
}

// State returns the session clock and counter.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{StartedAt: e.startedAt, TradeCount: e.count}
}

// Trades returns copies of all trades in insertion order.
func (e *Engine) Trades() []model.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyLocked()
}

// OpenPositions returns the number of active buys.
func (e *Engine) OpenPositions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.trades {
		if t.Active() {
			n++
		}
	}
	return n
}

func (e *Engine) copyLocked() []model.Trade {
	out := make([]model.Trade, len(e.trades))
	for i, t := range e.trades {
		out[i] = *t
	}
	return out
}

func (e *Engine) saveLocked() {
	if e.store == nil {
		return
	}
	raw, err := store.EncodeTrades(e.copyLocked())
	if err != nil {
		log.Error().Err(err).Msg("encode trades")
		return
	}
	if err := e.store.Set(map[string]string{store.KeyTrades: raw}); err != nil {
		log.Error().Err(err).Msg("failed to save trades")
	}
}
