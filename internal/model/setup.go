package model

// Side is the direction of a candidate trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// TradeSetup is one candidate entry to evaluate: an instrument, the price
// the trader would enter at, and the trade direction.
type TradeSetup struct {
	Instrument string  `json:"instrument"`
	EntryPrice float64 `json:"entry_price"`
	Side       Side    `json:"side"`
}

// Validate checks setup fields before evaluation.
func (s TradeSetup) Validate() error {
	if s.Instrument == "" {
		return &InvalidInputError{Field: "instrument", Reason: "must not be empty"}
	}
	if s.EntryPrice <= 0 {
		return &InvalidInputError{Field: "entry_price", Reason: "must be positive"}
	}
	if s.Side != Long && s.Side != Short {
		return &InvalidInputError{Field: "side", Reason: "must be LONG or SHORT"}
	}
	return nil
}
