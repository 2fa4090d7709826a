package signal

import (
	"math"

	"swing-scannerv1/internal/model"
)

// Sizing is the banker's answer: how many shares fit inside both the risk
// budget and the account-size cap, and how much is actually at risk.
// RiskAmount may come in under the budget after capping; that is reported,
// never hidden, so the caller sees the real risk taken.
type Sizing struct {
	Shares       int64
	RiskPerShare float64
	RiskBudget   float64
	RiskAmount   float64
	PositionCost float64
	CappedBySize bool
	Approved     bool
	Reason       string
}

// Size computes a share quantity for the given entry/stop pair under the
// account's risk budget (equity × riskPercent) and hard size cap.
//
// When risk-sized shares would exceed the account-size cap, the cap takes
// priority and the verdict notes it; "insufficient capital" is reported
// only when the capped size rounds down to zero.
func Size(entry, stop, equity, riskPercent, maxAccountSize float64) (Sizing, error) {
	if entry <= 0 {
		return Sizing{}, &model.InvalidInputError{Field: "entry_price", Reason: "must be positive"}
	}
	riskPerShare := math.Abs(entry - stop)
	if riskPerShare == 0 {
		return Sizing{}, &model.InvalidInputError{
			Field:  "stop_loss",
			Reason: "stop equals entry; no risk-defined trade",
		}
	}

	s := Sizing{
		RiskPerShare: riskPerShare,
		RiskBudget:   equity * riskPercent,
	}

	shares := int64(math.Floor(s.RiskBudget / riskPerShare))
	if float64(shares)*entry > maxAccountSize {
		shares = int64(math.Floor(maxAccountSize / entry))
		s.CappedBySize = true
	}

	if shares <= 0 {
		s.Shares = 0
		s.Reason = "insufficient capital for minimum position"
		return s, nil
	}

	s.Shares = shares
	s.RiskAmount = float64(shares) * riskPerShare
	s.PositionCost = float64(shares) * entry
	s.Approved = true
	if s.CappedBySize {
		s.Reason = "position capped by account-size limit"
	}
	return s, nil
}
