package recorder

import "DailyInvestTrade/internal/model"

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrade(_ model.Trade) error         { return nil }
func (n *NoopRecorder) RecordActivity(_ model.Activity) error   { return nil }
func (n *NoopRecorder) RecordWithdrawal(_ *model.Receipt) error { return nil }
func (n *NoopRecorder) RecordPrice(_ model.PricePoint) error    { return nil }
func (n *NoopRecorder) Close() error                            { return nil }
