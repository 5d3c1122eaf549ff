package xsq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/curves"
)

func TestEncodeNativeValueCurve(t *testing.T) {
	vc := ValueCurve{Channel: 1, NativeType: curves.Sine, P1: 0.5, P2: 2, Min: 0, Max: 255}
	s := vc.Encode()
	assert.Contains(t, s, "Id=ID_VALUECURVE_DMX1|")
	assert.Contains(t, s, "Type=Sine|")
	assert.Contains(t, s, "Min=0.00|")
	assert.Contains(t, s, "Max=255.00|")
	assert.True(t, s[len(s)-1] == '|')
}

func TestEncodeCustomValueCurveAddsMissingAnchors(t *testing.T) {
	vc := ValueCurve{
		Channel:  2,
		IsCustom: true,
		Points:   []curves.CurvePoint{{T: 0.5, V: 0.5}},
		Min:      0, Max: 255,
	}
	s := vc.Encode()
	assert.Contains(t, s, "Values=0.0000:0.50;0.5000:0.50;1.0000:0.50|")
}

func TestValueCurveRoundTripNative(t *testing.T) {
	vc := ValueCurve{Channel: 3, NativeType: curves.Ramp, P1: 0.1, P2: 0.9, Min: 0, Max: 255}
	encoded := vc.Encode()
	parsed, err := ParseValueCurve(encoded)
	require.NoError(t, err)
	assert.Equal(t, vc.Channel, parsed.Channel)
	assert.Equal(t, curves.Ramp, parsed.NativeType)
	assert.InDelta(t, 0.1, parsed.P1, 1e-9)
}

func TestValueCurveRoundTripCustom(t *testing.T) {
	vc := ValueCurve{
		Channel: 4, IsCustom: true,
		Points: []curves.CurvePoint{{T: 0, V: 0}, {T: 1, V: 1}},
		Min:    0, Max: 255,
	}
	encoded := vc.Encode()
	parsed, err := ParseValueCurve(encoded)
	require.NoError(t, err)
	assert.True(t, parsed.IsCustom)
	require.Len(t, parsed.Points, 2)
	assert.InDelta(t, 1.0, parsed.Points[1].V, 1e-9)
}

func TestParseValueCurveRejectsMissingId(t *testing.T) {
	_, err := ParseValueCurve("Active=TRUE|Type=Sine|")
	require.Error(t, err)
}
