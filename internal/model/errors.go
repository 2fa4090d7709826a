package model

import "fmt"

// DataIntegrityError reports malformed or out-of-order bars from the price
// collaborator. Fatal to the evaluation that saw it, never retried.
type DataIntegrityError struct {
	Instrument string
	Detail     string
}

func (e *DataIntegrityError) Error() string {
	if e.Instrument == "" {
		return "data integrity: " + e.Detail
	}
	return fmt.Sprintf("data integrity: %s: %s", e.Instrument, e.Detail)
}

// InsufficientHistoryError means fewer bars have been fed than the
// indicator warm-up window needs. The caller must gather more data before
// a reading exists.
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: have %d bars, need %d", e.Have, e.Need)
}

// InvalidInputError is a terminal rejection of one evaluation: non-positive
// ATR or entry price, zero risk-per-share. Always surfaced in the
// Decision's reason, never silently defaulted.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}
