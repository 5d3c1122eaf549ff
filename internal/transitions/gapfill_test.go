package transitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/curves"
	"github.com/cartomix/twinklr/internal/rig"
)

func TestClassifyGapSequenceStart(t *testing.T) {
	cfg := DefaultGapFillConfig()
	assert.Equal(t, GapSequenceStart, ClassifyGap(false, true, 2000, cfg))
}

func TestClassifyGapSequenceEnd(t *testing.T) {
	cfg := DefaultGapFillConfig()
	assert.Equal(t, GapSequenceEnd, ClassifyGap(true, false, 2000, cfg))
}

func TestClassifyGapSmallVsLarge(t *testing.T) {
	cfg := DefaultGapFillConfig()
	assert.Equal(t, GapSmall, ClassifyGap(true, true, 4999, cfg))
	assert.Equal(t, GapLarge, ClassifyGap(true, true, 5000, cfg))
}

func TestRenderSmallGapFallsBackToSoftHomeWhenAnchorMissing(t *testing.T) {
	cal := rig.DefaultCalibration()
	cfg := DefaultGapFillConfig()
	next := Anchor{PanDMX: 200, TiltDMX: 200, Valid: true}
	filled, err := RenderSmallGap(Anchor{}, next, cal, cfg, curves.SmoothStep, 16)
	require.NoError(t, err)
	start, err := filled.Pan.Curve.Sample(0)
	require.NoError(t, err)
	home := softHomeDMX(cfg.SoftHomePanDeg, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
	assert.InDelta(t, float64(home)/255.0, start, 1e-9)
}

func TestRenderLargeGapDipNeverReachesZero(t *testing.T) {
	cal := rig.DefaultCalibration()
	cfg := DefaultGapFillConfig()
	prev := Anchor{PanDMX: 50, TiltDMX: 50, Valid: true}
	next := Anchor{PanDMX: 200, TiltDMX: 200, Valid: true}
	_, dip, _, err := RenderLargeGap(prev, next, 255, 255, cal, cfg, curves.SmoothStep, 8)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		v, err := dip.Dimmer.Curve.Sample(float64(i) / 7.0)
		require.NoError(t, err)
		assert.Greater(t, v, 0.0, "dimmer dip must never reach absolute zero")
	}
}

func TestSoftHomeAnchorUsesConfiguredPose(t *testing.T) {
	cal := rig.DefaultCalibration()
	cfg := GapFillConfig{SoftHomePanDeg: 10, SoftHomeTiltDeg: -5}
	anchor := SoftHomeAnchor(cfg, cal)
	assert.True(t, anchor.Valid)
}
