// Package indicator provides Wilder-style technical indicator calculations
// over ordered price bars: ATR, ADX (+DI/-DI), EMA, RSI, and MACD.
//
// Every indicator is an explicit state-transition object; each update is
// O(1) and the new smoothed value depends on the previous one, so state is
// only valid when bars are replayed in order from the same starting point.
// All indicators implement the Indicator interface and support snapshot /
// restore for checkpoint persistence.
package indicator

import "swing-scannerv1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "ATR", "ADX").
	Name() string

	// Update feeds the next bar in sequence and recalculates.
	Update(bar model.PriceBar)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when the warm-up window has been accumulated.
	Ready() bool
}
