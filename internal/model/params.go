package model

// Documented defaults for the risk configuration surface.
const (
	DefaultADXThreshold  = 20.0
	DefaultATRPeriod     = 14
	DefaultATRMultiplier = 2.0
)

// RiskParameters is the per-evaluation risk configuration. It is an
// explicit value object passed into each evaluation; persistence of these
// settings between sessions lives entirely at the collaborator boundary
// (see store/sqlite), never as hidden process-wide state.
type RiskParameters struct {
	ADXThreshold   float64 `json:"adx_threshold"`
	ATRMultiplier  float64 `json:"atr_multiplier"`
	RewardMultiple float64 `json:"reward_multiple"` // 0 = no target price
	AccountEquity  float64 `json:"account_equity"`
	RiskPercent    float64 `json:"risk_percent"` // fraction in (0, 1]
	MaxAccountSize float64 `json:"max_account_size"`
}

// WithDefaults returns a copy with zero-valued optional fields replaced by
// the documented defaults. Required fields (equity, risk percent, max
// account size) are left alone; Validate catches those.
func (p RiskParameters) WithDefaults() RiskParameters {
	if p.ADXThreshold == 0 {
		p.ADXThreshold = DefaultADXThreshold
	}
	if p.ATRMultiplier == 0 {
		p.ATRMultiplier = DefaultATRMultiplier
	}
	return p
}

// Validate checks the required fields.
func (p RiskParameters) Validate() error {
	if p.AccountEquity <= 0 {
		return &InvalidInputError{Field: "account_equity", Reason: "must be positive"}
	}
	if p.RiskPercent <= 0 || p.RiskPercent > 1 {
		return &InvalidInputError{Field: "risk_percent", Reason: "must be a fraction in (0, 1]"}
	}
	if p.MaxAccountSize <= 0 {
		return &InvalidInputError{Field: "max_account_size", Reason: "must be positive"}
	}
	if p.ATRMultiplier < 0 || p.RewardMultiple < 0 || p.ADXThreshold < 0 {
		return &InvalidInputError{Field: "multipliers", Reason: "must not be negative"}
	}
	return nil
}
