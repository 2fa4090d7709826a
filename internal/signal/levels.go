package signal

import "swing-scannerv1/internal/model"

// Levels holds the volatility-derived exit prices for a setup.
type Levels struct {
	StopLoss    float64
	TargetPrice float64 // 0 when no reward multiple is configured
	RiskReward  float64
}

// ComputeLevels derives stop-loss and target prices from ATR. For a long
// setup the stop sits multiplier×ATR below entry; for a short, above. The
// target, when a reward multiple is configured, extends the per-share risk
// in the trade direction.
//
// A non-positive ATR means no volatility basis exists for a stop; the
// setup must be rejected, never defaulted to a zero-width stop.
func ComputeLevels(entry, atr float64, side model.Side, multiplier, rewardMultiple float64) (Levels, error) {
	if atr <= 0 {
		return Levels{}, &model.InvalidInputError{
			Field:  "atr",
			Reason: "no volatility basis for a stop",
		}
	}
	if entry <= 0 {
		return Levels{}, &model.InvalidInputError{
			Field:  "entry_price",
			Reason: "must be positive",
		}
	}
	if multiplier <= 0 {
		return Levels{}, &model.InvalidInputError{
			Field:  "atr_multiplier",
			Reason: "must be positive",
		}
	}

	risk := multiplier * atr
	var lv Levels
	switch side {
	case model.Short:
		lv.StopLoss = entry + risk
		if rewardMultiple > 0 {
			lv.TargetPrice = entry - rewardMultiple*risk
			lv.RiskReward = rewardMultiple
		}
	default: // long
		lv.StopLoss = entry - risk
		if rewardMultiple > 0 {
			lv.TargetPrice = entry + rewardMultiple*risk
			lv.RiskReward = rewardMultiple
		}
	}
	return lv, nil
}
