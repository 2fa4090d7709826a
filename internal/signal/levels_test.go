package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-scannerv1/internal/model"
)

func TestComputeLevels_Long(t *testing.T) {
	lv, err := ComputeLevels(100, 2, model.Long, 2, 0)
	require.NoError(t, err)
	assert.InDelta(t, 96.0, lv.StopLoss, 1e-12)
	assert.Zero(t, lv.TargetPrice, "no reward multiple configured")
	assert.Zero(t, lv.RiskReward)
}

func TestComputeLevels_LongWithTarget(t *testing.T) {
	lv, err := ComputeLevels(100, 2, model.Long, 2, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 96.0, lv.StopLoss, 1e-12)
	assert.InDelta(t, 106.0, lv.TargetPrice, 1e-12)
	assert.InDelta(t, 1.5, lv.RiskReward, 1e-12)
}

func TestComputeLevels_Short(t *testing.T) {
	lv, err := ComputeLevels(50, 1.25, model.Short, 2, 3)
	require.NoError(t, err)
	assert.InDelta(t, 52.5, lv.StopLoss, 1e-12)
	assert.InDelta(t, 42.5, lv.TargetPrice, 1e-12)
}

func TestComputeLevels_ZeroATRIsInvalidInput(t *testing.T) {
	_, err := ComputeLevels(100, 0, model.Long, 2, 0)
	require.Error(t, err)
	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "no volatility basis")
}

func TestComputeLevels_NegativeATRIsInvalidInput(t *testing.T) {
	_, err := ComputeLevels(100, -0.5, model.Long, 2, 0)
	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestComputeLevels_BadEntryIsInvalidInput(t *testing.T) {
	_, err := ComputeLevels(0, 2, model.Long, 2, 0)
	var invalid *model.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "entry_price", invalid.Field)
}
