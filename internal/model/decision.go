package model

import (
	"encoding/json"
	"time"
)

// Signal classifies how actionable a setup looks once it has cleared (or
// failed) the trend gate. Advisory only; it never overrides the
// acceptance invariant on Decision.
type Signal string

const (
	SignalStrongBuy Signal = "STRONG BUY"
	SignalBuy       Signal = "BUY SIGNAL"
	SignalWatchlist Signal = "WATCHLIST"
	SignalWait      Signal = "WAIT"
	SignalAvoid     Signal = "AVOID"
	SignalError     Signal = "ERROR"
)

// signalPriority orders scan results: actionable setups first.
var signalPriority = map[Signal]int{
	SignalStrongBuy: 0,
	SignalBuy:       1,
	SignalWatchlist: 2,
	SignalWait:      3,
	SignalAvoid:     4,
	SignalError:     5,
}

// Priority returns the sort rank for a signal (lower is more actionable).
func (s Signal) Priority() int {
	if p, ok := signalPriority[s]; ok {
		return p
	}
	return 5
}

// Decision is the terminal output of one evaluation. Rejected decisions
// still carry whatever levels and sizing were computed before the
// rejection, for diagnostic display.
//
// Invariant: Accepted is true only when the evaluated ADX was at or above
// the configured threshold, PositionSize > 0, RiskAmount is within the
// account risk budget, and PositionSize×EntryPrice fits under the account
// size cap.
type Decision struct {
	Instrument string    `json:"instrument"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	AsOf       time.Time `json:"as_of"`

	Accepted bool   `json:"accepted"`
	Signal   Signal `json:"signal"`
	Reason   string `json:"reason"`

	ADX float64 `json:"adx"`
	ATR float64 `json:"atr"`

	StopLoss    float64 `json:"stop_loss"`
	TargetPrice float64 `json:"target_price"`
	RiskReward  float64 `json:"risk_reward"`

	PositionSize int64   `json:"position_size"`
	PositionCost float64 `json:"position_cost"`
	RiskAmount   float64 `json:"risk_amount"`
	CappedBySize bool    `json:"capped_by_size"` // account-size cap, not risk budget, set the size
}

// JSON returns the JSON-encoded decision (ignoring errors for hot-path usage).
func (d *Decision) JSON() []byte {
	data, _ := json.Marshal(d)
	return data
}
