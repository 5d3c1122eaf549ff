package movement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/rig"
)

func TestResolveUnknownMovement(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nonexistent", Params{}, rig.DefaultCalibration())
	require.Error(t, err)
	assert.IsType(t, ErrUnknownMovement{}, err)
}

func TestSweepLRProducesCurvePan(t *testing.T) {
	r := NewRegistry()
	result, err := r.Resolve("sweep_lr", Params{Intensity: Bold, Geometry: geometry.FixtureGeometry{TiltRole: geometry.Up}}, rig.DefaultCalibration())
	require.NoError(t, err)
	assert.True(t, result.Pan.HasCurve)
	assert.False(t, result.Tilt.HasCurve)
}

func TestStaticAimHoldsBothAxesStatic(t *testing.T) {
	r := NewRegistry()
	result, err := r.Resolve("static_aim", Params{Geometry: geometry.FixtureGeometry{PanOffsetDeg: 10, TiltRole: geometry.Zero}}, rig.DefaultCalibration())
	require.NoError(t, err)
	assert.False(t, result.Pan.HasCurve)
	assert.False(t, result.Tilt.HasCurve)
}

func TestCircleDrivesBothAxesWithCurves(t *testing.T) {
	r := NewRegistry()
	result, err := r.Resolve("circle", Params{Intensity: Smooth}, rig.DefaultCalibration())
	require.NoError(t, err)
	assert.True(t, result.Pan.HasCurve)
	assert.True(t, result.Tilt.HasCurve)
}

func TestUnrecognizedIntensityFallsBackToSmooth(t *testing.T) {
	assert.Equal(t, defaultIntensityParams[Smooth], paramsFor(Intensity("bogus")))
}

func TestDegreesToDMXCentersAtMidRange(t *testing.T) {
	v := degreesToDMX(0, 270, 0, 255)
	assert.InDelta(t, 127, int(v), 1)
}

func TestDMXToDegreesRoundTripsWithinOneDMXStep(t *testing.T) {
	cal := rig.DefaultCalibration()
	for deg := -260.0; deg <= 260.0; deg += 17.5 {
		dmx := DegreesToDMX(deg, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
		back := DMXToDegrees(dmx, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
		roundTripped := DegreesToDMX(back, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
		assert.InDelta(t, int(dmx), int(roundTripped), 1, "deg=%v dmx=%v back=%v", deg, dmx, back)
	}
}

func TestDMXToDegreesClampsToCalibratedRange(t *testing.T) {
	deg := DMXToDegrees(0, 270, 10, 245)
	assert.Equal(t, -135.0, deg)
	deg = DMXToDegrees(245, 270, 10, 245)
	assert.Equal(t, 135.0, deg)
}

func TestDegreesToDMXEveryValueClampsWithinCalibrationRange(t *testing.T) {
	cal := rig.Calibration{PanMinDMX: 20, PanMaxDMX: 200, PanRangeDeg: 540}
	for deg := -1000.0; deg <= 1000.0; deg += 37 {
		v := degreesToDMX(deg, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
		assert.GreaterOrEqual(t, v, cal.PanMinDMX)
		assert.LessOrEqual(t, v, cal.PanMaxDMX)
	}
}
