package dimmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCyclesFromPeriodBars(t *testing.T) {
	cycles, err := CyclesFromPeriodBars(8000, 2, 2000) // 8s duration, 2-bar period, 2000ms/bar
	require.NoError(t, err)
	assert.InDelta(t, 2.0, cycles, 1e-9)
}

func TestCyclesFromPeriodBarsRejectsZeroPeriod(t *testing.T) {
	_, err := CyclesFromPeriodBars(8000, 0, 2000)
	require.Error(t, err)
}

func TestCyclesFromPeriodBarsRejectsZeroMsPerBar(t *testing.T) {
	_, err := CyclesFromPeriodBars(8000, 2, 0)
	require.Error(t, err)
}

func TestResolveUnknownDimmer(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nonexistent", Params{}, 0, 255)
	require.Error(t, err)
	assert.IsType(t, ErrUnknownDimmer{}, err)
}

func TestHoldDimmerIsStatic(t *testing.T) {
	r := NewRegistry()
	v, err := r.Resolve("hold", Params{Intensity: Bold}, 0, 255)
	require.NoError(t, err)
	assert.False(t, v.HasCurve)
}

func TestPulseDimmerIsCurveBacked(t *testing.T) {
	r := NewRegistry()
	v, err := r.Resolve("pulse", Params{Intensity: Smooth, PeriodBars: 2, DurationMs: 8000, MsPerBar: 2000}, 0, 255)
	require.NoError(t, err)
	assert.True(t, v.HasCurve)
}

func TestPulseDimmerPropagatesCycleError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("pulse", Params{PeriodBars: 0, DurationMs: 8000, MsPerBar: 2000}, 0, 255)
	require.Error(t, err)
}

func TestFadeInRampsFromMinToMax(t *testing.T) {
	r := NewRegistry()
	v, err := r.Resolve("fade_in", Params{Intensity: Extreme}, 0, 255)
	require.NoError(t, err)
	require.True(t, v.HasCurve)
	start, err := v.Curve.Sample(0)
	require.NoError(t, err)
	end, err := v.Curve.Sample(1)
	require.NoError(t, err)
	assert.Less(t, start, end)
}

func TestResolvedRangeHonorsExplicitOverrides(t *testing.T) {
	min, max := resolvedRange(Params{Intensity: Smooth, MinNorm: 0.2, MaxNorm: 0.9})
	assert.Equal(t, 0.2, min)
	assert.Equal(t, 0.9, max)
}
