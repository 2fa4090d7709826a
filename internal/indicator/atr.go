package indicator

import (
	"math"

	"swing-scannerv1/internal/model"
)

// ATR calculates Average True Range using Wilder's smoothing.
// The first value is a simple average of the first `period` true ranges,
// then atr = (atr*(period-1) + tr) / period. O(1) per bar.
type ATR struct {
	period    int
	count     int // bars seen (true ranges = count-1)
	prevClose float64
	trSum     float64 // accumulates warm-up true ranges
	current   float64
	sawRange  bool // any positive true range observed
}

// NewATR creates a new ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return "ATR" }

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(bar model.PriceBar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if hc := math.Abs(bar.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(bar.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func (a *ATR) Update(bar model.PriceBar) {
	a.count++
	if a.count == 1 {
		// First bar; no previous close, no true range yet.
		a.prevClose = bar.Close
		return
	}

	tr := trueRange(bar, a.prevClose)
	a.prevClose = bar.Close
	if tr > 0 {
		a.sawRange = true
	}

	if a.count <= a.period+1 {
		a.trSum += tr
		if a.count == a.period+1 {
			a.current = a.trSum / float64(a.period)
		}
		return
	}

	p := float64(a.period)
	a.current = (a.current*(p-1) + tr) / p
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count > a.period }

// HadRange reports whether any positive true range was ever observed.
// A ready ATR of 0 with HadRange()==false means a frozen or halted
// instrument; no volatility basis exists, not a zero-width stop.
func (a *ATR) HadRange() bool { return a.sawRange }

// Snapshot serializes the ATR state for checkpoint persistence.
func (a *ATR) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "ATR",
		Period:    a.period,
		Count:     a.count,
		PrevClose: a.prevClose,
		Sum:       a.trSum,
		Current:   a.current,
		SawRange:  a.sawRange,
	}
}

// RestoreFromSnapshot restores ATR state from a checkpoint.
func (a *ATR) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	a.period = snap.Period
	a.count = snap.Count
	a.prevClose = snap.PrevClose
	a.trSum = snap.Sum
	a.current = snap.Current
	a.sawRange = snap.SawRange
	return nil
}
