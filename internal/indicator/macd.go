package indicator

import "swing-scannerv1/internal/model"

// MACD calculates Moving Average Convergence Divergence: the difference of
// a fast and a slow EMA of closes, with a signal EMA over that difference.
// Standard parameters are 12/26/9.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given fast/slow/signal periods.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(bar model.PriceBar) {
	m.fast.Update(bar)
	m.slow.Update(bar)
	if m.slow.Ready() {
		// The MACD line exists once the slow EMA is seeded; the signal
		// line smooths it from that point on.
		m.signal.updatePrice(m.fast.Value() - m.slow.Value())
	}
}

// Value returns the MACD line (fast EMA - slow EMA).
func (m *MACD) Value() float64 {
	if !m.slow.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// SignalValue returns the signal line (EMA of the MACD line).
func (m *MACD) SignalValue() float64 { return m.signal.Value() }

// Histogram returns MACD line minus signal line.
func (m *MACD) Histogram() float64 { return m.Value() - m.SignalValue() }

func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }

// Snapshot serializes the MACD state for checkpoint persistence.
func (m *MACD) Snapshot() IndicatorSnapshot {
	fast := m.fast.Snapshot()
	slow := m.slow.Snapshot()
	sig := m.signal.Snapshot()
	return IndicatorSnapshot{
		Type:      "MACD",
		FastEMA:   &fast,
		SlowEMA:   &slow,
		SignalEMA: &sig,
		Current:   m.Value(),
	}
}

// RestoreFromSnapshot restores MACD state from a checkpoint.
func (m *MACD) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.FastEMA == nil || snap.SlowEMA == nil || snap.SignalEMA == nil {
		return errSnapshotShape
	}
	m.fast = &EMA{}
	m.slow = &EMA{}
	m.signal = &EMA{}
	if err := m.fast.RestoreFromSnapshot(*snap.FastEMA); err != nil {
		return err
	}
	if err := m.slow.RestoreFromSnapshot(*snap.SlowEMA); err != nil {
		return err
	}
	return m.signal.RestoreFromSnapshot(*snap.SignalEMA)
}
