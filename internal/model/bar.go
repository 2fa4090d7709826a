// Package model defines the core value objects shared across the scanner:
// price bars, indicator readings, risk parameters, trade setups, decisions,
// and the error taxonomy. Everything here is a plain immutable value; the
// packages that compute over them own all mutable state.
package model

import (
	"encoding/json"
	"time"
)

// PriceBar is one OHLCV bar for a single instrument. Bars are daily by
// default but the core only uses timestamps as ordering keys, so any
// timeframe works. Prices are float64 dollars.
type PriceBar struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate checks bar integrity. A bar with High < Low or any non-positive
// OHLC field is malformed input from the price collaborator.
func (b *PriceBar) Validate() error {
	if b.TS.IsZero() {
		return &DataIntegrityError{Detail: "bar has zero timestamp"}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return &DataIntegrityError{Detail: "bar has missing or non-positive OHLC field"}
	}
	if b.High < b.Low {
		return &DataIntegrityError{Detail: "bar high is below low"}
	}
	return nil
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
