package indicator

import (
	"encoding/json"
	"errors"
	"time"
)

var errSnapshotShape = errors.New("indicator snapshot missing required fields")

// Snapshottable is implemented by indicators that support state serialization.
type Snapshottable interface {
	Indicator
	Snapshot() IndicatorSnapshot
	RestoreFromSnapshot(snap IndicatorSnapshot) error
}

// IndicatorSnapshot holds the serialized state of a single indicator
// instance. One flat struct covers every indicator type; unused fields are
// omitted from the JSON.
type IndicatorSnapshot struct {
	Type    string  `json:"type"` // "ATR", "ADX", "EMA", "RSI", "MACD"
	Period  int     `json:"period,omitempty"`
	Count   int     `json:"count,omitempty"`
	Sum     float64 `json:"sum,omitempty"`
	Current float64 `json:"current"`

	// ATR / RSI fields
	PrevClose float64 `json:"prev_close,omitempty"`
	SawRange  bool    `json:"saw_range,omitempty"`
	AvgGain   float64 `json:"avg_gain,omitempty"`
	AvgLoss   float64 `json:"avg_loss,omitempty"`

	// ADX fields
	PrevHigh  float64 `json:"prev_high,omitempty"`
	PrevLow   float64 `json:"prev_low,omitempty"`
	PlusSum   float64 `json:"plus_sum,omitempty"`
	MinusSum  float64 `json:"minus_sum,omitempty"`
	Seeded    bool    `json:"seeded,omitempty"`
	SmTR      float64 `json:"sm_tr,omitempty"`
	SmPlusDM  float64 `json:"sm_plus_dm,omitempty"`
	SmMinusDM float64 `json:"sm_minus_dm,omitempty"`
	PlusDI    float64 `json:"plus_di,omitempty"`
	MinusDI   float64 `json:"minus_di,omitempty"`
	DXSum     float64 `json:"dx_sum,omitempty"`
	DXCount   int     `json:"dx_count,omitempty"`

	// EMA fields
	Multiplier float64 `json:"multiplier,omitempty"`

	// MACD sub-states
	FastEMA   *IndicatorSnapshot `json:"fast_ema,omitempty"`
	SlowEMA   *IndicatorSnapshot `json:"slow_ema,omitempty"`
	SignalEMA *IndicatorSnapshot `json:"signal_ema,omitempty"`
}

// InstrumentSnapshot holds the full serialized state of one instrument's
// engine: every indicator plus the bar-ordering and volume-window state.
type InstrumentSnapshot struct {
	Instrument string    `json:"instrument"`
	BarCount   int       `json:"bar_count"`
	LastTS     time.Time `json:"last_ts"`
	LastClose  float64   `json:"last_close"`
	LastVolume int64     `json:"last_volume"`

	VolBuf []int64 `json:"vol_buf,omitempty"`
	VolIdx int     `json:"vol_idx,omitempty"`
	VolSum int64   `json:"vol_sum,omitempty"`

	ATR  IndicatorSnapshot `json:"atr"`
	ADX  IndicatorSnapshot `json:"adx"`
	EMA  IndicatorSnapshot `json:"ema"`
	RSI  IndicatorSnapshot `json:"rsi"`
	MACD IndicatorSnapshot `json:"macd"`
}

// EngineSnapshot holds the state of every instrument engine in a Set.
type EngineSnapshot struct {
	Version     int                  `json:"version"` // schema version for forward compat
	TakenAt     time.Time            `json:"taken_at"`
	Instruments []InstrumentSnapshot `json:"instruments"`
}

const snapshotVersion = 1

// Marshal serializes the engine snapshot to JSON.
func (es *EngineSnapshot) Marshal() ([]byte, error) {
	return json.Marshal(es)
}

// UnmarshalEngineSnapshot deserializes an engine snapshot from JSON.
func UnmarshalEngineSnapshot(data []byte) (*EngineSnapshot, error) {
	var es EngineSnapshot
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, err
	}
	return &es, nil
}
