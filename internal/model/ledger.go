package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType names a balance-changing event.
type ActivityType string

const (
	ActivityDeposit    ActivityType = "Deposit"
	ActivityWithdrawal ActivityType = "Withdrawal"
	ActivityBuy        ActivityType = "Buy"
	ActivitySell       ActivityType = "Sell"
)

// Activity is one entry of the persisted activity log.
type Activity struct {
	Type         ActivityType    `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Time         time.Time       `json:"time"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
}

// Totals holds the running profit and loss of all closed trades.
type Totals struct {
	Profit decimal.Decimal
	Loss   decimal.Decimal
}

// LedgerState is a point-in-time copy of the ledger.
type LedgerState struct {
	Balance             decimal.Decimal
	LastDepositAmount   decimal.Decimal
	WithdrawalsThisWeek int
	UsedDepositCodes    []string
	Totals              Totals
	Activities          []Activity
}

// Receipt is handed to the QR encoder after a successful withdrawal.
type Receipt struct {
	Username          string
	Address           string
	Telephone         string
	Amount            decimal.Decimal
	Timestamp         time.Time
	LastDepositAmount decimal.Decimal
}
