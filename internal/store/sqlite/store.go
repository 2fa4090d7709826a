// Package sqlite persists scanner settings and the decision journal in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"swing-scannerv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the single SQLite connection. It backs both the settings
// row and the decision journal.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens the database with WAL mode and creates the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS app_state (
			id               INTEGER PRIMARY KEY CHECK (id = 1),
			account_size     REAL    NOT NULL,
			risk_pct         REAL    NOT NULL,
			max_account_size REAL    NOT NULL,
			tickers          TEXT    NOT NULL,
			updated_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS decisions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument   TEXT    NOT NULL,
			side         TEXT    NOT NULL,
			entry_price  REAL    NOT NULL,
			as_of        INTEGER NOT NULL,
			accepted     INTEGER NOT NULL,
			signal       TEXT    NOT NULL,
			reason       TEXT    NOT NULL,
			adx          REAL    NOT NULL,
			atr          REAL    NOT NULL,
			stop_loss    REAL    NOT NULL,
			target_price REAL    NOT NULL,
			risk_reward  REAL    NOT NULL,
			shares       INTEGER NOT NULL,
			cost         REAL    NOT NULL,
			risk_amount  REAL    NOT NULL,
			capped       INTEGER NOT NULL,
			recorded_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_decisions_instrument
			ON decisions (instrument, recorded_at);
	`)
	return err
}

// Load reads the settings row. Returns zero-value settings when nothing
// has been saved yet so a fresh database starts on defaults.
func (s *Store) Load(ctx context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out model.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT account_size, risk_pct, max_account_size, tickers
		FROM app_state WHERE id = 1
	`).Scan(&out.AccountEquity, &out.RiskPercent, &out.MaxAccountSize, &out.Tickers)
	if err == sql.ErrNoRows {
		return model.Settings{}, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("sqlite load settings: %w", err)
	}
	return out, nil
}

// Save upserts the single settings row.
func (s *Store) Save(ctx context.Context, settings model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (id, account_size, risk_pct, max_account_size, tickers, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			account_size     = excluded.account_size,
			risk_pct         = excluded.risk_pct,
			max_account_size = excluded.max_account_size,
			tickers          = excluded.tickers,
			updated_at       = excluded.updated_at
	`, settings.AccountEquity, settings.RiskPercent, settings.MaxAccountSize,
		settings.Tickers, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite save settings: %w", err)
	}
	return nil
}

// Record appends one decision to the journal.
func (s *Store) Record(ctx context.Context, d model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (
			instrument, side, entry_price, as_of, accepted, signal, reason,
			adx, atr, stop_loss, target_price, risk_reward,
			shares, cost, risk_amount, capped, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Instrument, string(d.Side), d.EntryPrice, d.AsOf.Unix(), boolInt(d.Accepted),
		string(d.Signal), d.Reason, d.ADX, d.ATR, d.StopLoss, d.TargetPrice,
		d.RiskReward, d.PositionSize, d.PositionCost, d.RiskAmount,
		boolInt(d.CappedBySize), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite record decision: %w", err)
	}
	return nil
}

// Recent returns the newest journal entries, most recent first. An empty
// instrument matches all instruments.
func (s *Store) Recent(ctx context.Context, instrument string, limit int) ([]model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT instrument, side, entry_price, as_of, accepted, signal, reason,
		       adx, atr, stop_loss, target_price, risk_reward,
		       shares, cost, risk_amount, capped
		FROM decisions`
	args := []any{}
	if instrument != "" {
		query += ` WHERE instrument = ?`
		args = append(args, instrument)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query decisions: %w", err)
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var d model.Decision
		var side, signal string
		var asOf int64
		var accepted, capped int
		err := rows.Scan(&d.Instrument, &side, &d.EntryPrice, &asOf, &accepted,
			&signal, &d.Reason, &d.ADX, &d.ATR, &d.StopLoss, &d.TargetPrice,
			&d.RiskReward, &d.PositionSize, &d.PositionCost, &d.RiskAmount, &capped)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan decision: %w", err)
		}
		d.Side = model.Side(side)
		d.Signal = model.Signal(signal)
		d.AsOf = time.Unix(asOf, 0).UTC()
		d.Accepted = accepted != 0
		d.CappedBySize = capped != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
