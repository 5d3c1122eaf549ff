package transitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/curves"
)

func TestBlendSnapSwitchesAtMidpoint(t *testing.T) {
	assert.Equal(t, uint8(10), BlendSnap(10, 200, 0.49))
	assert.Equal(t, uint8(200), BlendSnap(10, 200, 0.5))
}

func TestBlendCrossfadeEndpoints(t *testing.T) {
	assert.Equal(t, uint8(100), BlendCrossfade(100, 200, 0))
	assert.Equal(t, uint8(200), BlendCrossfade(100, 200, 1))
}

func TestBlendFadeViaBlackDipsToZeroAtMidpoint(t *testing.T) {
	assert.Equal(t, uint8(0), BlendFadeViaBlack(255, 255, 0.5))
	assert.Equal(t, uint8(255), BlendFadeViaBlack(0, 255, 1.0))
}

func TestBlendSequencePhases(t *testing.T) {
	assert.Equal(t, uint8(0), BlendSequence(200, 200, 0.5))
	assert.Equal(t, uint8(200), BlendSequence(100, 200, 1.0))
}

func TestBlendSmoothInterpolationHonorsEndpoints(t *testing.T) {
	c := curves.Curve{Native: curves.NativeSpec{Kind: curves.Linear, Params: curves.Params{0, 1}}}
	v, err := BlendSmoothInterpolation(c, 10, 200, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), v)
	v, err = BlendSmoothInterpolation(c, 10, 200, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), v)
}

func TestHintIsSnapWhenZeroDuration(t *testing.T) {
	h := Hint{Mode: ModeCrossfade, DurationBars: 0}
	assert.True(t, h.IsSnap())
}

func TestHintStrategyForHonorsOverride(t *testing.T) {
	h := Hint{Mode: ModeCrossfade, DurationBars: 1, PerChannelOverrides: map[channels.Name]Strategy{
		channels.Shutter: StrategySequence,
	}}
	assert.Equal(t, StrategySequence, h.StrategyFor(channels.Shutter))
	assert.Equal(t, StrategyCrossfade, h.StrategyFor(channels.Pan))
}

func TestBuildBlendedCurveAllSamplesClampedToByteRange(t *testing.T) {
	c := curves.Curve{Native: curves.NativeSpec{Kind: curves.Sine, Center: 0.5, Params: curves.Params{1, 2, 0, 1, 0}}}
	points, err := BuildBlendedCurve(StrategyCrossfade, c, 0, 255, 32)
	require.NoError(t, err)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.V, 0.0)
		assert.LessOrEqual(t, p.V, 1.0)
	}
}

func TestSnapTransitionWindowClampsWhenLarger(t *testing.T) {
	offset, dur := SnapTransitionWindow(2000, 500)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(500), dur)
}

func TestSnapTransitionWindowCentersWhenSmaller(t *testing.T) {
	offset, dur := SnapTransitionWindow(200, 1000)
	assert.Equal(t, int64(400), offset)
	assert.Equal(t, int64(200), dur)
}

func TestSnapTransitionWindowFillsEntirelyForTinyGaps(t *testing.T) {
	offset, dur := SnapTransitionWindow(500, 5)
	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(5), dur)
}

func TestCollapseAdjacentGapsMergesWithinTolerance(t *testing.T) {
	gaps := []RawGap{{StartMs: 0, EndMs: 100}, {StartMs: 100, EndMs: 250}, {StartMs: 500, EndMs: 600}}
	out := CollapseAdjacentGaps(gaps)
	require.Len(t, out, 2)
	assert.Equal(t, RawGap{StartMs: 0, EndMs: 250}, out[0])
	assert.Equal(t, RawGap{StartMs: 500, EndMs: 600}, out[1])
}

func TestCollapseAdjacentGapsLeavesDistinctGapsSeparate(t *testing.T) {
	gaps := []RawGap{{StartMs: 0, EndMs: 100}, {StartMs: 200, EndMs: 300}}
	out := CollapseAdjacentGaps(gaps)
	assert.Len(t, out, 2)
}

func TestLargeGapPhasesSplit404020(t *testing.T) {
	out, dip, easeIn := LargeGapPhases(10000)
	assert.Equal(t, int64(0), out.StartMs)
	assert.Equal(t, int64(4000), out.EndMs)
	assert.Equal(t, int64(4000), dip.StartMs)
	assert.Equal(t, int64(6000), dip.EndMs)
	assert.Equal(t, int64(6000), easeIn.StartMs)
	assert.Equal(t, int64(10000), easeIn.EndMs)
}
