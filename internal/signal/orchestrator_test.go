package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-scannerv1/internal/model"
)

func baseParams() model.RiskParameters {
	return model.RiskParameters{
		AccountEquity:  10000,
		RiskPercent:    0.01,
		MaxAccountSize: 1_000_000,
	}
}

func trendingReading(adx float64) model.IndicatorReading {
	return model.IndicatorReading{
		Instrument: "AAPL",
		AsOf:       time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		ATR:        2,
		ADX:        adx,
		PlusDI:     30,
		MinusDI:    10,
		EMA200:     90,
		RSI:        42,
		MACD:       1.2,
		MACDSignal: 0.8,
		Close:      100,
	}
}

func longSetup() model.TradeSetup {
	return model.TradeSetup{Instrument: "AAPL", EntryPrice: 100, Side: model.Long}
}

func TestEvaluate_ChopZoneShortCircuits(t *testing.T) {
	o := NewOrchestrator()
	d := o.Evaluate(longSetup(), trendingReading(14), baseParams())

	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "chop zone")
	assert.Equal(t, model.SignalAvoid, d.Signal)
	// Short-circuit before risk computation: no stop, no sizing.
	assert.Zero(t, d.StopLoss)
	assert.Zero(t, d.PositionSize)
}

func TestEvaluate_ChopZoneBoundary(t *testing.T) {
	o := NewOrchestrator()
	// ADX exactly at the threshold passes the gate.
	d := o.Evaluate(longSetup(), trendingReading(20), baseParams())
	assert.NotContains(t, d.Reason, "chop zone")
}

func TestEvaluate_AcceptedDecisionFull(t *testing.T) {
	o := NewOrchestrator()
	d := o.Evaluate(longSetup(), trendingReading(32), baseParams())

	require.True(t, d.Accepted, "reason: %s", d.Reason)
	assert.InDelta(t, 96.0, d.StopLoss, 1e-12)
	assert.EqualValues(t, 25, d.PositionSize)
	assert.InDelta(t, 100.0, d.RiskAmount, 1e-12)
	assert.InDelta(t, 2500.0, d.PositionCost, 1e-12)
	assert.Equal(t, model.SignalBuy, d.Signal, "RSI 42 pullback with MACD confirmation")
}

func TestEvaluate_AcceptanceInvariant(t *testing.T) {
	o := NewOrchestrator()
	params := baseParams()
	params.MaxAccountSize = 2000

	d := o.Evaluate(longSetup(), trendingReading(32), params)
	require.True(t, d.Accepted)
	assert.True(t, d.CappedBySize)
	assert.EqualValues(t, 20, d.PositionSize)
	assert.LessOrEqual(t, d.RiskAmount, params.AccountEquity*params.RiskPercent+1e-9)
	assert.LessOrEqual(t, float64(d.PositionSize)*d.EntryPrice, params.MaxAccountSize+1e-9)
	assert.GreaterOrEqual(t, d.ADX, params.ADXThreshold)
}

func TestEvaluate_NoVolatilityBasis(t *testing.T) {
	o := NewOrchestrator()
	r := trendingReading(32)
	r.ATR = 0 // frozen instrument

	d := o.Evaluate(longSetup(), r, baseParams())
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "no volatility basis")
	assert.Equal(t, model.SignalError, d.Signal)
}

func TestEvaluate_InsufficientCapitalRejectedWithDiagnostics(t *testing.T) {
	o := NewOrchestrator()
	params := baseParams()
	params.MaxAccountSize = 50 // below one share

	d := o.Evaluate(longSetup(), trendingReading(32), params)
	assert.False(t, d.Accepted)
	assert.Equal(t, "insufficient capital for minimum position", d.Reason)
	// Rejected decisions still carry the computed stop for display.
	assert.InDelta(t, 96.0, d.StopLoss, 1e-12)
	assert.Zero(t, d.PositionSize)
}

func TestEvaluate_BadSetupIsTerminal(t *testing.T) {
	o := NewOrchestrator()
	setup := longSetup()
	setup.EntryPrice = -5

	d := o.Evaluate(setup, trendingReading(32), baseParams())
	assert.False(t, d.Accepted)
	assert.Equal(t, model.SignalError, d.Signal)
	assert.Contains(t, d.Reason, "entry_price")
}

func TestEvaluate_ShortSide(t *testing.T) {
	o := NewOrchestrator()
	r := trendingReading(32)
	r.EMA200 = 110 // price below regime EMA favors shorts
	r.RSI = 75     // mirrored ladder: 100-75=25 → deep pullback for a short
	r.MACD = -1
	r.MACDSignal = -0.5

	setup := model.TradeSetup{Instrument: "AAPL", EntryPrice: 100, Side: model.Short}
	d := o.Evaluate(setup, r, baseParams())
	require.True(t, d.Accepted, "reason: %s", d.Reason)
	assert.InDelta(t, 104.0, d.StopLoss, 1e-12)
	assert.Equal(t, model.SignalStrongBuy, d.Signal)
}

func TestEvaluate_CounterTrendLongIsAdvisoryAvoid(t *testing.T) {
	o := NewOrchestrator()
	r := trendingReading(32)
	r.EMA200 = 120 // close 100 sits below the regime EMA

	d := o.Evaluate(longSetup(), r, baseParams())
	// The ladder flags the counter-trend entry, but acceptance is purely
	// the gate/solvency invariant.
	assert.True(t, d.Accepted)
	assert.Equal(t, model.SignalAvoid, d.Signal)
}

func TestEvaluate_TargetWithRewardMultiple(t *testing.T) {
	o := NewOrchestrator()
	params := baseParams()
	params.RewardMultiple = 1.5

	d := o.Evaluate(longSetup(), trendingReading(32), params)
	require.True(t, d.Accepted)
	assert.InDelta(t, 106.0, d.TargetPrice, 1e-12)
	assert.InDelta(t, 1.5, d.RiskReward, 1e-12)
}
