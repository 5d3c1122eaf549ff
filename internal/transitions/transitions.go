// Package transitions implements C4: the boundary/gap-fill engine that
// blends adjacent FixtureSegments and fills holes in the per-fixture
// timeline. Grounded on
// original_source/.../moving_heads/compile/channel_blender.py (the five
// per-channel blend strategies, ported value-for-value from its
// _blend_snap/_blend_smooth/_blend_crossfade/_blend_fade_via_black/
// _blend_sequence methods) and .../transitions/handlers/gap_fill.py (the
// SequenceStart/SequenceEnd/small-gap/large-gap routing).
package transitions

import (
	"fmt"
	"math"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/curves"
)

// Mode is a TransitionHint's declared blend mode (§4.4).
type Mode int

const (
	ModeSnap Mode = iota
	ModeCrossfade
	ModeFadeViaBlack
	ModeSequence
	ModeGapFill
)

// Strategy is the per-channel blend strategy actually applied. A Mode maps
// to a default Strategy per channel, overridable per-channel by a Hint.
type Strategy int

const (
	StrategySnap Strategy = iota
	StrategySmoothInterpolation
	StrategyCrossfade
	StrategyFadeViaBlack
	StrategySequence
)

// Hint is a boundary's declared transition request (§4.4). A hint is Snap
// either when Mode is explicitly ModeSnap or when DurationBars == 0.
type Hint struct {
	Mode                Mode
	DurationBars        float64
	Curve               curves.NativeKind
	PerChannelOverrides map[channels.Name]Strategy
}

func (h Hint) IsSnap() bool {
	return h.Mode == ModeSnap || h.DurationBars == 0
}

// StrategyFor resolves the strategy for a single channel, honoring
// per-channel overrides before falling back to the mode's default.
func (h Hint) StrategyFor(ch channels.Name) Strategy {
	if h.PerChannelOverrides != nil {
		if s, ok := h.PerChannelOverrides[ch]; ok {
			return s
		}
	}
	if h.IsSnap() {
		return StrategySnap
	}
	switch h.Mode {
	case ModeCrossfade:
		return StrategyCrossfade
	case ModeFadeViaBlack:
		return StrategyFadeViaBlack
	case ModeSequence:
		return StrategySequence
	case ModeGapFill:
		return StrategySmoothInterpolation
	default:
		return StrategySnap
	}
}

func clampDMX(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// BlendSnap: source for t<0.5, target for t>=0.5.
func BlendSnap(src, tgt uint8, t float64) uint8 {
	if t < 0.5 {
		return src
	}
	return tgt
}

// BlendSmoothInterpolation samples curve at t and lerps src->tgt by that
// factor.
func BlendSmoothInterpolation(curve curves.Curve, src, tgt uint8, t float64) (uint8, error) {
	if t <= 0 {
		return src, nil
	}
	if t >= 1 {
		return tgt, nil
	}
	factor, err := curve.Sample(t)
	if err != nil {
		return 0, err
	}
	blended := float64(src) + factor*(float64(tgt)-float64(src))
	return clampDMX(math.Round(blended)), nil
}

// BlendCrossfade is an equal-power crossfade: cos(t*pi/2)*src + sin(t*pi/2)*tgt.
func BlendCrossfade(src, tgt uint8, t float64) uint8 {
	fadeOut := math.Cos(t * math.Pi / 2)
	fadeIn := math.Sin(t * math.Pi / 2)
	return clampDMX(float64(src)*fadeOut + float64(tgt)*fadeIn)
}

// BlendFadeViaBlack fades source to 0 over the first half, then 0 to target
// over the second half.
func BlendFadeViaBlack(src, tgt uint8, t float64) uint8 {
	if t < 0.5 {
		fadeOut := 1.0 - t*2.0
		return clampDMX(float64(src) * fadeOut)
	}
	fadeIn := (t - 0.5) * 2.0
	return clampDMX(float64(tgt) * fadeIn)
}

// BlendSequence is the three-phase shutter sequence: close [0,0.33), hold
// closed [0.33,0.66), open [0.66,1].
func BlendSequence(src, tgt uint8, t float64) uint8 {
	if t >= 1.0 {
		return tgt
	}
	if t < 0.33 {
		fade := 1.0 - t/0.33
		return clampDMX(math.Round(float64(src) * fade))
	}
	if t < 0.66 {
		return 0
	}
	fade := (t - 0.66) / 0.34
	return clampDMX(math.Round(float64(tgt) * fade))
}

// Blend dispatches to the strategy's blend function. curve is only
// consulted by StrategySmoothInterpolation.
func Blend(strategy Strategy, curve curves.Curve, src, tgt uint8, t float64) (uint8, error) {
	switch strategy {
	case StrategySnap:
		return BlendSnap(src, tgt, t), nil
	case StrategySmoothInterpolation:
		return BlendSmoothInterpolation(curve, src, tgt, t)
	case StrategyCrossfade:
		return BlendCrossfade(src, tgt, t), nil
	case StrategyFadeViaBlack:
		return BlendFadeViaBlack(src, tgt, t), nil
	case StrategySequence:
		return BlendSequence(src, tgt, t), nil
	default:
		return 0, fmt.Errorf("transitions: unknown strategy %d", strategy)
	}
}

// BuildBlendedCurve samples a full [0,1] blended curve across nSamples
// points, each point's V already normalized to [0,1] DMX-fraction space.
func BuildBlendedCurve(strategy Strategy, curve curves.Curve, src, tgt uint8, nSamples int) ([]curves.CurvePoint, error) {
	if nSamples < 2 {
		return nil, fmt.Errorf("transitions: nSamples must be >= 2, got %d", nSamples)
	}
	points := make([]curves.CurvePoint, nSamples)
	for i := 0; i < nSamples; i++ {
		t := float64(i) / float64(nSamples-1)
		v, err := Blend(strategy, curve, src, tgt, t)
		if err != nil {
			return nil, err
		}
		points[i] = curves.CurvePoint{T: t, V: float64(v) / 255.0}
	}
	return points, nil
}

// BuildBlendedChannelValue wraps a blended curve into a channels.Value
// ready to feed C5, following channel_blender.py's
// create_blended_channel_value.
func BuildBlendedChannelValue(ch channels.Name, strategy Strategy, curve curves.Curve, src, tgt uint8, clampMin, clampMax uint8, nSamples int) (channels.Value, error) {
	points, err := BuildBlendedCurve(strategy, curve, src, tgt, nSamples)
	if err != nil {
		return channels.Value{}, err
	}
	return channels.NewCurve(ch, curves.NewCustom(points), clampMin, clampMax), nil
}
