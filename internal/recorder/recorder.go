// Package recorder keeps an append-only history of desk events for later analysis.
package recorder

import "DailyInvestTrade/internal/model"

// Recorder persists historical data. Failures are reported but never block the desk.
type Recorder interface {
	RecordTrade(t model.Trade) error
	RecordActivity(a model.Activity) error
	RecordWithdrawal(r *model.Receipt) error
	RecordPrice(p model.PricePoint) error
	Close() error
}

// Open returns a SQLite recorder for path, or a no-op recorder when path is empty.
func Open(path string) (Recorder, error) {
	if path == "" {
		return NewNoopRecorder(), nil
	}
	return NewSQLiteRecorder(path)
}
