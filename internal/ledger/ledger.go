// Package ledger owns the simulated balance. Every credit and debit goes
// through a Ledger so the persisted value never drifts from memory.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/model"
	"DailyInvestTrade/internal/store"
)

var (
	ErrInvalidCode         = errors.New("invalid deposit code")
	ErrCodeAlreadyUsed     = errors.New("deposit code already used")
	ErrMissingField        = errors.New("all fields are required")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrAboveMaximum        = errors.New("amount above maximum withdrawal")
	ErrBadTelephone        = errors.New("invalid telephone number format")
	ErrQuotaExceeded       = errors.New("weekly withdrawal limit reached")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must not be negative")
)

// LimitError carries the withdrawal bound that was crossed. It unwraps to
// ErrBelowMinimum or ErrAboveMaximum.
type LimitError struct {
	Err   error
	Limit decimal.Decimal
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: limit is %s", e.Err, e.Limit.StringFixed(2))
}

func (e *LimitError) Unwrap() error { return e.Err }

// Config holds the fixed rules of the ledger.
type Config struct {
	DepositAmount         decimal.Decimal
	CodePrefix            string
	CodeCount             int
	MinWithdrawal         decimal.Decimal
	MaxWithdrawal         decimal.Decimal
	MaxWithdrawalsPerWeek int
	TelephonePattern      string
}

// DefaultConfig mirrors the demo rules: 100 codes worth 20 each, withdrawals of
// 40..200 at most twice, Sierra Leone telephone numbers.
func DefaultConfig() Config {
	return Config{
		DepositAmount:         decimal.NewFromInt(20),
		CodePrefix:            "DPT",
		CodeCount:             100,
		MinWithdrawal:         decimal.NewFromInt(40),
		MaxWithdrawal:         decimal.NewFromInt(200),
		MaxWithdrawalsPerWeek: 2,
		TelephonePattern:      `^\+232\d{8}$`,
	}
}

// WithdrawRequest carries the withdrawal form fields.
type WithdrawRequest struct {
	Username  string          `validate:"required"`
	Address   string          `validate:"required"`
	Telephone string          `validate:"required"`
	Amount    decimal.Decimal `validate:"-"`
}

// Ledger handles balance, deposits, withdrawals and P/L totals.
type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	store    store.Store
	validate *validator.Validate

	pool        map[string]bool
	used        map[string]bool
	usedOrder   []string
	balance     decimal.Decimal
	lastDeposit decimal.Decimal
	withdrawals int
	totals      model.Totals
	activities  []model.Activity
}

// New creates a Ledger, loading any persisted state from st.
func New(st store.Store, cfg Config) (*Ledger, error) {
	tel, err := regexp.Compile(cfg.TelephonePattern)
	if err != nil {
		return nil, fmt.Errorf("telephone pattern: %w", err)
	}
	v := validator.New()
	if err := v.RegisterValidation("telephone", func(fl validator.FieldLevel) bool {
		return tel.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register telephone validation: %w", err)
	}

	l := &Ledger{
		cfg:      cfg,
		store:    st,
		validate: v,
		pool:     make(map[string]bool, cfg.CodeCount),
		used:     make(map[string]bool),
	}
	for _, c := range GenerateCodes(cfg.CodePrefix, cfg.CodeCount) {
		l.pool[c] = true
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	log.Info().
		Str("balance", l.balance.StringFixed(2)).
		Int("used_codes", len(l.usedOrder)).
		Int("withdrawals_this_week", l.withdrawals).
		Msg("ledger loaded")
	return l, nil
}

// GenerateCodes returns prefix001 .. prefixNNN.
func GenerateCodes(prefix string, count int) []string {
	codes := make([]string, count)
	for i := range codes {
		codes[i] = fmt.Sprintf("%s%03d", prefix, i+1)
	}
	return codes
}

func (l *Ledger) load() error {
	var err error
	if l.balance, err = store.Lookup(l.store, store.KeyBalance, store.DecodeDecimal); err != nil {
		return err
	}
	if l.lastDeposit, err = store.Lookup(l.store, store.KeyLastDepositAmount, store.DecodeDecimal); err != nil {
		return err
	}
	if l.withdrawals, err = store.Lookup(l.store, store.KeyWithdrawalsThisWeek, store.DecodeInt); err != nil {
		return err
	}
	if l.totals.Profit, err = store.Lookup(l.store, store.KeyTotalProfit, store.DecodeDecimal); err != nil {
		return err
	}
	if l.totals.Loss, err = store.Lookup(l.store, store.KeyTotalLoss, store.DecodeDecimal); err != nil {
		return err
	}
	if l.activities, err = store.Lookup(l.store, store.KeyActivities, store.DecodeActivities); err != nil {
		return err
	}
	codes, err := store.Lookup(l.store, store.KeyUsedDepositCodes, store.DecodeCodes)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if !l.used[c] {
			l.used[c] = true
			l.usedOrder = append(l.usedOrder, c)
		}
	}
	return nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Totals returns the running profit and loss.
func (l *Ledger) Totals() model.Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

// State returns a copy of the ledger.
func (l *Ledger) State() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.LedgerState{
		Balance:             l.balance,
		LastDepositAmount:   l.lastDeposit,
		WithdrawalsThisWeek: l.withdrawals,
		UsedDepositCodes:    append([]string(nil), l.usedOrder...),
		Totals:              l.totals,
		Activities:          append([]model.Activity(nil), l.activities...),
	}
}

// AvailableCodes lists the pool codes not yet redeemed, in order.
func (l *Ledger) AvailableCodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.pool))
	for c := range l.pool {
		if !l.used[c] {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Deposit redeems a single-use code for the fixed reward. The credit and the
// code consumption are written to the store together.
func (l *Ledger) Deposit(code string, now time.Time) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pool[code] {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if l.used[code] {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCodeAlreadyUsed, code)
	}

	amount := l.cfg.DepositAmount
	balance := l.balance.Add(amount)
	activities := l.withActivity(model.ActivityDeposit, amount, now, balance)
	usedOrder := append(append([]string(nil), l.usedOrder...), code)

	acts, err := store.EncodeActivities(activities)
	if err != nil {
		return decimal.Zero, err
	}
	codes, err := store.EncodeCodes(usedOrder)
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.store.Set(map[string]string{
		store.KeyBalance:           store.EncodeDecimal(balance),
		store.KeyLastDepositAmount: store.EncodeDecimal(amount),
		store.KeyActivities:        acts,
		store.KeyUsedDepositCodes:  codes,
	}); err != nil {
		return decimal.Zero, fmt.Errorf("persist deposit: %w", err)
	}

	l.balance = balance
	l.lastDeposit = amount
	l.activities = activities
	l.used[code] = true
	l.usedOrder = usedOrder

	log.Info().Str("code", code).Str("amount", amount.StringFixed(2)).Str("balance", balance.StringFixed(2)).Msg("deposit redeemed")
	return amount, nil
}

// Withdraw validates req in a fixed order and debits the balance. The first
// failing rule is returned.
func (l *Ledger) Withdraw(req WithdrawRequest, now time.Time) (*model.Receipt, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Address = strings.TrimSpace(req.Address)
	req.Telephone = strings.TrimSpace(req.Telephone)

	if err := l.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.ToLower(verrs[0].Field()))
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	if req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: amount", ErrMissingField)
	}
	if req.Amount.LessThan(l.cfg.MinWithdrawal) {
		return nil, &LimitError{Err: ErrBelowMinimum, Limit: l.cfg.MinWithdrawal}
	}
	if req.Amount.GreaterThan(l.cfg.MaxWithdrawal) {
		return nil, &LimitError{Err: ErrAboveMaximum, Limit: l.cfg.MaxWithdrawal}
	}
	if err := l.validate.Var(req.Telephone, "telephone"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadTelephone, req.Telephone)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.withdrawals >= l.cfg.MaxWithdrawalsPerWeek {
		return nil, fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, l.withdrawals, l.cfg.MaxWithdrawalsPerWeek)
	}
	if req.Amount.GreaterThan(l.balance) {
		return nil, fmt.Errorf("%w: have %s", ErrInsufficientBalance, l.balance.StringFixed(2))
	}

	balance := l.balance.Sub(req.Amount)
	withdrawals := l.withdrawals + 1
	activities := l.withActivity(model.ActivityWithdrawal, req.Amount, now, balance)
	acts, err := store.EncodeActivities(activities)
	if err != nil {
		return nil, err
	}
	if err := l.store.Set(map[string]string{
		store.KeyBalance:             store.EncodeDecimal(balance),
		store.KeyWithdrawalsThisWeek: store.EncodeInt(withdrawals),
		store.KeyActivities:          acts,
	}); err != nil {
		return nil, fmt.Errorf("persist withdrawal: %w", err)
	}

	l.balance = balance
	l.withdrawals = withdrawals
	l.activities = activities

	log.Info().Str("username", req.Username).Str("amount", req.Amount.StringFixed(2)).Int("withdrawals_this_week", withdrawals).Msg("withdrawal processed")
	return &model.Receipt{
		Username:          req.Username,
		Address:           req.Address,
		Telephone:         req.Telephone,
		Amount:            req.Amount,
		Timestamp:         now,
		LastDepositAmount: l.lastDeposit,
	}, nil
}

// Debit removes amount for a trade of the given activity type.
func (l *Ledger) Debit(kind model.ActivityType, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount.GreaterThan(l.balance) {
		return l.balance, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, l.balance.StringFixed(2), amount.StringFixed(2))
	}
	return l.applyLocked(kind, amount, l.balance.Sub(amount), now)
}

// Credit adds amount for a trade of the given activity type.
func (l *Ledger) Credit(kind model.ActivityType, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyLocked(kind, amount, l.balance.Add(amount), now)
}

func (l *Ledger) applyLocked(kind model.ActivityType, amount, balance decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	activities := l.withActivity(kind, amount, now, balance)
	acts, err := store.EncodeActivities(activities)
	if err != nil {
		return l.balance, err
	}
	if err := l.store.Set(map[string]string{
		store.KeyBalance:    store.EncodeDecimal(balance),
		store.KeyActivities: acts,
	}); err != nil {
		return l.balance, fmt.Errorf("persist %s: %w", strings.ToLower(string(kind)), err)
	}
	l.balance = balance
	l.activities = activities
	return balance, nil
}

// RecordProfit adds a non-negative amount to the profit total.
func (l *Ledger) RecordProfit(amount decimal.Decimal) {
	l.recordTotal(store.KeyTotalProfit, amount.Abs())
}

// RecordLoss adds a non-negative amount to the loss total.
func (l *Ledger) RecordLoss(amount decimal.Decimal) {
	l.recordTotal(store.KeyTotalLoss, amount.Abs())
}

func (l *Ledger) recordTotal(key string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if key == store.KeyTotalProfit {
		l.totals.Profit = l.totals.Profit.Add(amount)
	} else {
		l.totals.Loss = l.totals.Loss.Add(amount)
	}
	if err := l.store.Set(map[string]string{
		store.KeyTotalProfit: store.EncodeDecimal(l.totals.Profit),
		store.KeyTotalLoss:   store.EncodeDecimal(l.totals.Loss),
	}); err != nil {
		log.Error().Err(err).Msg("failed to save profit/loss totals")
	}
}

// ResetWeeklyQuota clears the weekly withdrawal counter.
func (l *Ledger) ResetWeeklyQuota() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withdrawals = 0
	if err := l.store.Set(map[string]string{store.KeyWithdrawalsThisWeek: store.EncodeInt(0)}); err != nil {
		log.Error().Err(err).Msg("failed to save ledger after weekly reset")
	}
}

func (l *Ledger) withActivity(kind model.ActivityType, amount decimal.Decimal, now time.Time, balance decimal.Decimal) []model.Activity {
	out := make([]model.Activity, len(l.activities), len(l.activities)+1)
	copy(out, l.activities)
	return append(out, model.Activity{Type: kind, Amount: amount, Time: now, BalanceAfter: balance})
}
