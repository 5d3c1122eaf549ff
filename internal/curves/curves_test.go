package curves

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRejectsLowSampleCount(t *testing.T) {
	_, err := Generate(NativeSpec{Kind: Sine, Center: 0.5}, 1)
	require.Error(t, err)
	assert.IsType(t, ErrInvalidSampleCount{}, err)
}

func TestGenerateRejectsNegativeCycles(t *testing.T) {
	spec := NativeSpec{Kind: Sine, Center: 0.5, Params: Params{0.5, 0, 0, 0, 0}}
	spec.Params[1] = -1
	spec.Params[3] = 1
	_, err := Generate(spec, 8)
	require.Error(t, err)
	assert.IsType(t, ErrInvalidCycles{}, err)
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate(NativeSpec{Kind: NativeKind(999)}, 8)
	require.Error(t, err)
}

func TestSineStaysInUnitRange(t *testing.T) {
	spec := NativeSpec{Kind: Sine, Center: 0.5, Params: Params{1.0, 2, 0, 1, 0}}
	pts, err := Generate(spec, 64)
	require.NoError(t, err)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.V, 0.0)
		assert.LessOrEqual(t, p.V, 1.0)
	}
}

func TestHoldIsConstant(t *testing.T) {
	spec := NativeSpec{Kind: Hold, Params: Params{0.75, 0, 0, 0, 0}}
	pts, err := Generate(spec, 10)
	require.NoError(t, err)
	for _, p := range pts {
		assert.InDelta(t, 0.75, p.V, 1e-9)
	}
}

func TestAllSixteenKindsGenerate(t *testing.T) {
	kinds := []NativeKind{Linear, Hold, Sine, Cosine, Triangle, Pulse, Square,
		SmoothStep, SmootherStep, SCurve, Ramp, Parabolic, SawTooth, AbsSine,
		Exponential, Logarithmic}
	require.Len(t, kinds, 16) // Linear/Hold + the 14 other native kinds
	for _, k := range kinds {
		spec := NativeSpec{Kind: k, Center: 0.5, Params: Params{0.8, 2, 0, 1, 0.5}}
		pts, err := Generate(spec, 32)
		require.NoErrorf(t, err, "kind %s", k)
		assert.Len(t, pts, 32)
	}
}

func TestSampleAgreesWithGeneratedPoints(t *testing.T) {
	spec := NativeSpec{Kind: Sine, Center: 0.5, Params: Params{1.0, 3, 0, 1, 0}}
	c := Curve{Native: spec}
	pts, err := Generate(spec, 256)
	require.NoError(t, err)

	for i := 0; i < len(pts); i += 17 {
		v, err := c.Sample(pts[i].T)
		require.NoError(t, err)
		assert.InDelta(t, pts[i].V, v, 0.02)
	}
}

func TestTuneNativeRecentersOutOfRangeSine(t *testing.T) {
	spec := NativeSpec{Kind: Sine, Center: 0.5, Params: Params{1.0, 2, 0, 1, 0}}
	tuned := TuneNative(spec, 0.2, 0.6)
	assert.InDelta(t, 0.4, tuned.Center, 1e-9)
	assert.InDelta(t, 0.4, tuned.Params[0], 1e-9)
}

func TestTuneNativeLeavesInRangeSineAlone(t *testing.T) {
	spec := NativeSpec{Kind: Sine, Center: 0.5, Params: Params{0.2, 2, 0, 1, 0}}
	tuned := TuneNative(spec, 0.0, 1.0)
	assert.InDelta(t, 0.5, tuned.Center, 1e-9)
	assert.InDelta(t, 0.2, tuned.Params[0], 1e-9)
}

func TestTuneNativeClampsRampEndpoints(t *testing.T) {
	spec := NativeSpec{Kind: Ramp, Params: Params{0.0, 1.0, 0, 0, 0}}
	tuned := TuneNative(spec, 0.3, 0.7)
	assert.InDelta(t, 0.3, tuned.Params[0], 1e-9)
	assert.InDelta(t, 0.7, tuned.Params[1], 1e-9)
}

func TestMapToDMXAbsolute(t *testing.T) {
	pts := []CurvePoint{{T: 0, V: 0}, {T: 1, V: 1}}
	mapped := MapToDMX(pts, Absolute, 0, 0, 50, 200, false)
	assert.InDelta(t, 50.0/255.0, mapped[0].V, 1e-9)
	assert.InDelta(t, 200.0/255.0, mapped[1].V, 1e-9)
}

func TestMapToDMXOffsetCentered(t *testing.T) {
	pts := []CurvePoint{{T: 0, V: 0.5}}
	mapped := MapToDMX(pts, OffsetCentered, 128, 50, 0, 255, false)
	assert.InDelta(t, 128.0/255.0, mapped[0].V, 1e-9)
}

func TestMapToDMXInversion(t *testing.T) {
	pts := []CurvePoint{{T: 0, V: 0}}
	mapped := MapToDMX(pts, Absolute, 0, 0, 0, 255, true)
	assert.InDelta(t, 1.0, mapped[0].V, 1e-9)
}

func TestMapValueToDMXClampsToByteRange(t *testing.T) {
	v := MapValueToDMX(2.0, Absolute, 0, 0, 0, 255, false)
	assert.Equal(t, uint8(255), v)
}
