// Package signal implements the decision pipeline over indicator readings:
// the trend-quality gate, the volatility risk calculator, the position
// sizing and solvency checker ("banker"), and the orchestrator that
// composes them into one Decision per evaluation. Every step is a pure
// deterministic computation; failures are terminal rejections of that
// evaluation, never transient errors.
package signal

import "fmt"

// Verdict is the outcome of a pure gate check.
type Verdict struct {
	Accept bool
	Reason string
}

// EvaluateTrend gates a setup on trend strength: accept iff adx >= threshold.
// Markets below the threshold are in a chop zone where trend-following
// entries get whipsawed.
func EvaluateTrend(adx, threshold float64) Verdict {
	if adx >= threshold {
		return Verdict{Accept: true}
	}
	return Verdict{
		Accept: false,
		Reason: fmt.Sprintf("chop zone: ADX %.1f < %.1f", adx, threshold),
	}
}
