package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"DailyInvestTrade/internal/model"
)

// SQLiteRecorder persists history to a SQLite database. Money is stored as
// decimal text so nothing is lost to float rounding.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			price       TEXT NOT NULL,
			status      TEXT NOT NULL,
			opened_at   INTEGER NOT NULL,
			closed_at   INTEGER,
			close_price TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_opened ON trades(opened_at)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			type          TEXT NOT NULL,
			amount        TEXT NOT NULL,
			balance_after TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_ts ON activities(timestamp)`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp           INTEGER NOT NULL,
			username            TEXT,
			address             TEXT,
			telephone           TEXT,
			amount              TEXT NOT NULL,
			last_deposit_amount TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS price_ticks (
			timestamp INTEGER NOT NULL,
			price     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_ts ON price_ticks(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTrade upserts t by ID so a closing sell updates the original buy row.
func (r *SQLiteRecorder) RecordTrade(t model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closedAt sql.NullInt64
	var closePrice sql.NullString
	if !t.ClosedAt.IsZero() {
		closedAt = sql.NullInt64{Int64: t.ClosedAt.Unix(), Valid: true}
		closePrice = sql.NullString{String: t.ClosePrice.String(), Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO trades
		(id, kind, price, status, opened_at, closed_at, close_price)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			closed_at = excluded.closed_at,
			close_price = excluded.close_price`,
		t.ID.String(), string(t.Kind), t.Price.String(), string(t.Status),
		t.OpenedAt.Unix(), closedAt, closePrice,
	)
	return err
}

func (r *SQLiteRecorder) RecordActivity(a model.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO activities
		(timestamp, type, amount, balance_after)
		VALUES (?,?,?,?)`,
		a.Time.Unix(), string(a.Type), a.Amount.String(), a.BalanceAfter.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordWithdrawal(rc *model.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO withdrawals
		(timestamp, username, address, telephone, amount, last_deposit_amount)
		VALUES (?,?,?,?,?,?)`,
		rc.Timestamp.Unix(), rc.Username, rc.Address, rc.Telephone,
		rc.Amount.String(), rc.LastDepositAmount.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordPrice(p model.PricePoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO price_ticks (timestamp, price) VALUES (?,?)`,
		p.Time.Unix(), p.Price.String(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
