package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"DailyInvestTrade/internal/model"
)

// Persisted keys. Each key has exactly one schema, encoded by the helpers below.
const (
	KeyBalance             = "userBalance"         // decimal text
	KeyLastDepositAmount   = "lastDepositAmount"   // decimal text
	KeyActivities          = "tradeActivities"     // JSON array of model.Activity
	KeyUsedDepositCodes    = "usedDepositCodes"    // JSON array of strings
	KeyWithdrawalsThisWeek = "withdrawalsThisWeek" // integer text
	KeyTotalProfit         = "totalProfit"         // decimal text
	KeyTotalLoss           = "totalLoss"           // decimal text
	KeyTrades              = "trades"              // JSON array of model.Trade
)

func EncodeDecimal(d decimal.Decimal) string { return d.String() }

// DecodeDecimal treats an empty value as zero.
func DecodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func EncodeInt(n int) string { return strconv.Itoa(n) }

func DecodeInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func EncodeActivities(a []model.Activity) (string, error) {
	if a == nil {
		a = []model.Activity{}
	}
	b, err := json.Marshal(a)
	return string(b), err
}

func DecodeActivities(s string) ([]model.Activity, error) {
	var out []model.Activity
	if s == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

func EncodeCodes(codes []string) (string, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	return string(b), err
}

func DecodeCodes(s string) ([]string, error) {
	var out []string
	if s == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

func EncodeTrades(trades []model.Trade) (string, error) {
	if trades == nil {
		trades = []model.Trade{}
	}
	b, err := json.Marshal(trades)
	return string(b), err
}

func DecodeTrades(s string) ([]model.Trade, error) {
	var out []model.Trade
	if s == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

// Lookup reads key and decodes it with decode. A missing key decodes from "".
func Lookup[T any](s Store, key string, decode func(string) (T, error)) (T, error) {
	var zero T
	raw, _, err := s.Get(key)
	if err != nil {
		return zero, err
	}
	v, err := decode(raw)
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
