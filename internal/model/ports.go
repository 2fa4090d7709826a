package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the computational core from the I/O
// collaborators (broker APIs, SQLite, Redis). The core only ever sees
// already-materialized ordered bar sequences and value objects.

// BarSource supplies an ordered PriceBar sequence for an instrument.
// Implementations own all blocking I/O (HTTP sessions, files); bars must
// come back in strictly increasing timestamp order.
type BarSource interface {
	// Bars returns up to lookback bars ending at the most recent available.
	Bars(ctx context.Context, instrument string, lookback int) ([]PriceBar, error)

	// Name identifies the source variant ("broker", "manual").
	Name() string
}

// Settings is the persisted scanner configuration, mirroring what a trader
// keeps between sessions: sizing inputs plus the watchlist.
type Settings struct {
	AccountEquity  float64 `json:"account_equity"`
	RiskPercent    float64 `json:"risk_percent"`
	MaxAccountSize float64 `json:"max_account_size"`
	Tickers        string  `json:"tickers"` // comma-separated watchlist
}

// SettingsStore loads settings on start and saves them when a scan changes
// them. The core never touches storage format.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	Close() error
}

// DecisionJournal receives an audit record of each Decision.
type DecisionJournal interface {
	Record(ctx context.Context, d Decision) error
	// Recent returns the newest entries, most recent first. An empty
	// instrument matches all instruments.
	Recent(ctx context.Context, instrument string, limit int) ([]Decision, error)
	Close() error
}

// SnapshotStore reads and writes indicator engine snapshots as raw JSON.
// Using []byte avoids a model→indicator→model import cycle.
type SnapshotStore interface {
	SaveSnapshotJSON(ctx context.Context, data []byte) error
	ReadLatestSnapshotJSON(ctx context.Context) ([]byte, error)
}

// DecisionPublisher fans a decided evaluation out to live consumers
// (dashboard WebSocket clients, Redis subscribers).
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, d Decision) error
}
