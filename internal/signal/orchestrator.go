package signal

import "swing-scannerv1/internal/model"

// State tracks an evaluation's progress through the pipeline.
type State string

const (
	StatePending         State = "PENDING"
	StateTrendChecked    State = "TREND_CHECKED"
	StateRiskComputed    State = "RISK_COMPUTED"
	StateSolvencyChecked State = "SOLVENCY_CHECKED"
	StateDecided         State = "DECIDED"
)

// Orchestrator composes the trend gate, risk calculator, and banker into
// one Decision per evaluation request. It holds no state between
// evaluations; all inputs arrive as value objects, so evaluations for
// different instruments can run in parallel freely.
type Orchestrator struct{}

// NewOrchestrator creates the evaluation pipeline.
func NewOrchestrator() *Orchestrator { return &Orchestrator{} }

// evaluation is the in-flight state machine for a single request.
type evaluation struct {
	state   State
	setup   model.TradeSetup
	reading model.IndicatorReading
	params  model.RiskParameters

	levels   Levels
	sizing   Sizing
	decision model.Decision
}

// Evaluate runs the full pipeline:
//
//	Pending → TrendChecked → RiskComputed → SolvencyChecked → Decided
//
// A chop-zone reject or invalid input short-circuits straight to Decided.
// Rejected decisions still carry every field computed before the
// rejection, for diagnostic display. No retries; every step is a pure
// deterministic computation, so any failure is a terminal rejection of
// this evaluation. Evaluate never mutates the indicator state the reading
// came from.
func (o *Orchestrator) Evaluate(setup model.TradeSetup, reading model.IndicatorReading, params model.RiskParameters) model.Decision {
	ev := &evaluation{
		state:   StatePending,
		setup:   setup,
		reading: reading,
		params:  params.WithDefaults(),
		decision: model.Decision{
			Instrument: setup.Instrument,
			Side:       setup.Side,
			EntryPrice: setup.EntryPrice,
			AsOf:       reading.AsOf,
			ADX:        reading.ADX,
			ATR:        reading.ATR,
		},
	}

	for ev.state != StateDecided {
		switch ev.state {
		case StatePending:
			ev.checkTrend()
		case StateTrendChecked:
			ev.computeRisk()
		case StateRiskComputed:
			ev.checkSolvency()
		case StateSolvencyChecked:
			ev.decide()
		}
	}
	return ev.decision
}

// reject short-circuits to Decided with accepted=false.
func (ev *evaluation) reject(sig model.Signal, reason string) {
	ev.decision.Accepted = false
	ev.decision.Signal = sig
	ev.decision.Reason = reason
	ev.state = StateDecided
}

// checkTrend: Pending → TrendChecked, gated on input validity and ADX.
func (ev *evaluation) checkTrend() {
	if err := ev.setup.Validate(); err != nil {
		ev.reject(model.SignalError, err.Error())
		return
	}
	if err := ev.params.Validate(); err != nil {
		ev.reject(model.SignalError, err.Error())
		return
	}

	verdict := EvaluateTrend(ev.reading.ADX, ev.params.ADXThreshold)
	if !verdict.Accept {
		ev.reject(model.SignalAvoid, verdict.Reason)
		return
	}
	ev.state = StateTrendChecked
}

// computeRisk: TrendChecked → RiskComputed via the volatility calculator.
func (ev *evaluation) computeRisk() {
	levels, err := ComputeLevels(ev.setup.EntryPrice, ev.reading.ATR, ev.setup.Side,
		ev.params.ATRMultiplier, ev.params.RewardMultiple)
	if err != nil {
		ev.reject(model.SignalError, err.Error())
		return
	}
	ev.levels = levels
	ev.decision.StopLoss = levels.StopLoss
	ev.decision.TargetPrice = levels.TargetPrice
	ev.decision.RiskReward = levels.RiskReward
	ev.state = StateRiskComputed
}

// checkSolvency: RiskComputed → SolvencyChecked via the banker.
func (ev *evaluation) checkSolvency() {
	sizing, err := Size(ev.setup.EntryPrice, ev.levels.StopLoss,
		ev.params.AccountEquity, ev.params.RiskPercent, ev.params.MaxAccountSize)
	if err != nil {
		ev.reject(model.SignalError, err.Error())
		return
	}
	ev.sizing = sizing
	ev.decision.PositionSize = sizing.Shares
	ev.decision.PositionCost = sizing.PositionCost
	ev.decision.RiskAmount = sizing.RiskAmount
	ev.decision.CappedBySize = sizing.CappedBySize
	ev.state = StateSolvencyChecked
}

// decide: SolvencyChecked → Decided with the banker's verdict and the
// advisory signal ladder.
func (ev *evaluation) decide() {
	ev.decision.Accepted = ev.sizing.Approved
	ev.decision.Reason = ev.sizing.Reason
	if ev.decision.Accepted && ev.decision.Reason == "" {
		ev.decision.Reason = "setup within risk limits"
	}
	ev.decision.Signal = classify(ev.setup.Side, ev.reading)
	ev.state = StateDecided
}

// classify applies the advisory signal ladder: regime first (long setups
// below the 200 EMA are counter-trend), then RSI pullback depth with MACD
// confirmation. It annotates the decision for display ordering and never
// overrides the acceptance invariant.
func classify(side model.Side, r model.IndicatorReading) model.Signal {
	rsi := r.RSI
	macdConfirms := r.MACD > r.MACDSignal
	withTrend := r.EMA200 == 0 || r.Close >= r.EMA200

	if side == model.Short {
		// Mirror the ladder for shorts.
		rsi = 100 - r.RSI
		macdConfirms = r.MACD < r.MACDSignal
		withTrend = r.EMA200 == 0 || r.Close <= r.EMA200
	}

	switch {
	case !withTrend:
		return model.SignalAvoid
	case rsi < 30:
		return model.SignalStrongBuy
	case rsi < 50 && macdConfirms:
		return model.SignalBuy
	case rsi < 50:
		return model.SignalWatchlist
	default:
		return model.SignalWait
	}
}
