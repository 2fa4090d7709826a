package model

import (
	"encoding/json"
	"time"
)

// IndicatorReading is an immutable snapshot of one instrument's indicator
// values as of the most recently fed bar. Produced fresh on each engine
// update; never mutated afterwards.
type IndicatorReading struct {
	Instrument string    `json:"instrument"`
	AsOf       time.Time `json:"as_of"`

	ATR     float64 `json:"atr"`
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`

	// Regime and momentum context for the signal ladder.
	EMA200     float64 `json:"ema_200"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`

	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	AvgVolume int64   `json:"avg_volume"`
}

// JSON returns the JSON-encoded reading (ignoring errors for hot-path usage).
func (r *IndicatorReading) JSON() []byte {
	data, _ := json.Marshal(r)
	return data
}
