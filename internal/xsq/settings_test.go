package xsq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/curves"
)

func TestChannelCountRoundsUpToNearest16(t *testing.T) {
	assert.Equal(t, 16, channelCount(1))
	assert.Equal(t, 16, channelCount(16))
	assert.Equal(t, 32, channelCount(17))
}

func TestEncodeSettingsStringStaticChannel(t *testing.T) {
	s := EncodeSettingsString([]ChannelSetting{{Index: 1, Static: 200, Inverted: true}})
	assert.Contains(t, s, "E_CHECKBOX_INVDMX1=1,")
	assert.Contains(t, s, "E_SLIDER_DMX1=200,")
	assert.Contains(t, s, "B_CHOICE_BufferStyle=Per Model Default,")
}

func TestEncodeSettingsStringCurveChannelForcesSliderZero(t *testing.T) {
	vc := ValueCurve{Channel: 2, NativeType: curves.Sine, Min: 0, Max: 255}
	s := EncodeSettingsString([]ChannelSetting{{Index: 2, Curve: &vc}})
	assert.Contains(t, s, "E_SLIDER_DMX2=0,")
	assert.Contains(t, s, "E_VALUECURVE_DMX2=")
}

func TestSettingsStringRoundTrip(t *testing.T) {
	vc := ValueCurve{Channel: 3, NativeType: curves.Ramp, Min: 0, Max: 255}
	original := []ChannelSetting{
		{Index: 1, Static: 100, Inverted: true},
		{Index: 3, Curve: &vc},
	}
	encoded := EncodeSettingsString(original)
	parsed, err := ParseSettingsString(encoded)
	require.NoError(t, err)

	byIndex := make(map[int]ChannelSetting)
	for _, c := range parsed {
		byIndex[c.Index] = c
	}
	require.Contains(t, byIndex, 1)
	assert.Equal(t, uint8(100), byIndex[1].Static)
	assert.True(t, byIndex[1].Inverted)
	require.Contains(t, byIndex, 3)
	require.NotNil(t, byIndex[3].Curve)
	assert.Equal(t, curves.Ramp, byIndex[3].Curve.NativeType)
}
