package indicator

import "swing-scannerv1/internal/model"

// EMA calculates Exponential Moving Average over bar closes.
// O(1) per update; no window storage needed.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(bar model.PriceBar) {
	e.updatePrice(bar.Close)
}

// updatePrice feeds a raw value. MACD reuses this to smooth its own line.
func (e *EMA) updatePrice(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA formula: EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Snapshot serializes the EMA state for checkpoint persistence.
func (e *EMA) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:       "EMA",
		Period:     e.period,
		Multiplier: e.multiplier,
		Current:    e.current,
		Count:      e.count,
		Sum:        e.sum,
	}
}

// RestoreFromSnapshot restores EMA state from a checkpoint.
func (e *EMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	e.period = snap.Period
	e.multiplier = snap.Multiplier
	e.current = snap.Current
	e.count = snap.Count
	e.sum = snap.Sum
	return nil
}
