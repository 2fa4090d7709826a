package indicator

import (
	"math"

	"swing-scannerv1/internal/model"
)

// ADX calculates the Average Directional Index with its +DI/-DI components
// using Wilder's method. Directional movement and true range are smoothed
// with the running form s = s - s/period + x; DX values are averaged over
// the first `period` readings to seed ADX, then Wilder-smoothed.
// O(1) per bar.
type ADX struct {
	period int
	count  int // bars seen (movements = count-1)

	prevHigh  float64
	prevLow   float64
	prevClose float64

	// warm-up accumulators for the first `period` movements
	trSum    float64
	plusSum  float64
	minusSum float64
	seeded   bool

	// Wilder running smoothed sums after seeding
	smTR      float64
	smPlusDM  float64
	smMinusDM float64

	plusDI  float64
	minusDI float64

	dxSum   float64
	dxCount int
	current float64
}

// NewADX creates a new ADX indicator with the given period (typically 14).
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string { return "ADX" }

func (a *ADX) Update(bar model.PriceBar) {
	a.count++
	if a.count == 1 {
		a.prevHigh = bar.High
		a.prevLow = bar.Low
		a.prevClose = bar.Close
		return
	}

	tr := trueRange(bar, a.prevClose)

	upMove := bar.High - a.prevHigh
	downMove := a.prevLow - bar.Low
	plusDM, minusDM := 0.0, 0.0
	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}

	a.prevHigh = bar.High
	a.prevLow = bar.Low
	a.prevClose = bar.Close

	if !a.seeded {
		a.trSum += tr
		a.plusSum += plusDM
		a.minusSum += minusDM
		if a.count == a.period+1 {
			a.smTR = a.trSum
			a.smPlusDM = a.plusSum
			a.smMinusDM = a.minusSum
			a.seeded = true
			a.step()
		}
		return
	}

	p := float64(a.period)
	a.smTR = a.smTR - a.smTR/p + tr
	a.smPlusDM = a.smPlusDM - a.smPlusDM/p + plusDM
	a.smMinusDM = a.smMinusDM - a.smMinusDM/p + minusDM
	a.step()
}

// step derives DI and DX from the current smoothed sums and folds the DX
// into the ADX average.
func (a *ADX) step() {
	if a.smTR > 0 {
		a.plusDI = 100 * a.smPlusDM / a.smTR
		a.minusDI = 100 * a.smMinusDM / a.smTR
	} else {
		a.plusDI = 0
		a.minusDI = 0
	}

	// DX is defined as 0 when both DIs are 0 (no directional movement).
	dx := 0.0
	if sum := a.plusDI + a.minusDI; sum > 0 {
		dx = 100 * math.Abs(a.plusDI-a.minusDI) / sum
	}

	a.dxCount++
	if a.dxCount <= a.period {
		// ADX warm-up: simple average of DX values so far. At exactly
		// `period` values this is the standard Wilder seed.
		a.dxSum += dx
		a.current = a.dxSum / float64(a.dxCount)
		return
	}
	p := float64(a.period)
	a.current = (a.current*(p-1) + dx) / p
}

func (a *ADX) Value() float64 { return a.current }

// Ready reports whether the directional warm-up window is complete and DI/DX
// values exist. The ADX average keeps refining over the next `period` bars.
func (a *ADX) Ready() bool { return a.dxCount >= 1 }

// PlusDI returns the current +DI value (0 to 100).
func (a *ADX) PlusDI() float64 { return a.plusDI }

// MinusDI returns the current -DI value (0 to 100).
func (a *ADX) MinusDI() float64 { return a.minusDI }

// Snapshot serializes the ADX state for checkpoint persistence.
func (a *ADX) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "ADX",
		Period:    a.period,
		Count:     a.count,
		PrevHigh:  a.prevHigh,
		PrevLow:   a.prevLow,
		PrevClose: a.prevClose,
		Sum:       a.trSum,
		PlusSum:   a.plusSum,
		MinusSum:  a.minusSum,
		Seeded:    a.seeded,
		SmTR:      a.smTR,
		SmPlusDM:  a.smPlusDM,
		SmMinusDM: a.smMinusDM,
		PlusDI:    a.plusDI,
		MinusDI:   a.minusDI,
		DXSum:     a.dxSum,
		DXCount:   a.dxCount,
		Current:   a.current,
	}
}

// RestoreFromSnapshot restores ADX state from a checkpoint.
func (a *ADX) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	a.period = snap.Period
	a.count = snap.Count
	a.prevHigh = snap.PrevHigh
	a.prevLow = snap.PrevLow
	a.prevClose = snap.PrevClose
	a.trSum = snap.Sum
	a.plusSum = snap.PlusSum
	a.minusSum = snap.MinusSum
	a.seeded = snap.Seeded
	a.smTR = snap.SmTR
	a.smPlusDM = snap.SmPlusDM
	a.smMinusDM = snap.SmMinusDM
	a.plusDI = snap.PlusDI
	a.minusDI = snap.MinusDI
	a.dxSum = snap.DXSum
	a.dxCount = snap.DXCount
	a.current = snap.Current
	return nil
}
