// Package channels implements the closed-set ChannelName enum and the
// ChannelValue per-segment channel spec (§3.5), including the Override/Add
// blend modes recovered from original_source's
// core/sequencer/moving_heads/channels/state.py for combining overlapping
// channel values at transition boundaries.
package channels

import (
	"fmt"

	"github.com/cartomix/twinklr/internal/curves"
)

// Name is the closed set of channels the compiler knows about.
type Name int

const (
	Pan Name = iota
	Tilt
	Dimmer
	Shutter
	Color
	Gobo
)

func (n Name) String() string {
	switch n {
	case Pan:
		return "Pan"
	case Tilt:
		return "Tilt"
	case Dimmer:
		return "Dimmer"
	case Shutter:
		return "Shutter"
	case Color:
		return "Color"
	case Gobo:
		return "Gobo"
	default:
		return "Unknown"
	}
}

// AllNames lists every channel in the closed set, in the canonical emission
// order used by the serializer.
var AllNames = []Name{Pan, Tilt, Dimmer, Shutter, Color, Gobo}

// BlendMode controls how two ChannelValues for the same channel combine when
// windows overlap (normally only during a synthesized transition).
type BlendMode int

const (
	Override BlendMode = iota
	Add
)

// Value is a per-segment per-channel spec. Exactly one of StaticDMX or Curve
// is meaningful, selected by HasCurve. Channel must equal the key this value
// is stored under in a FixtureSegment's Channels map — callers validate this
// invariant (see Validate).
type Value struct {
	Channel Name

	HasCurve bool
	StaticDMX uint8
	Curve     curves.Curve

	// OffsetCentered: when true, Curve is read as a signed offset around 0.5
	// and combined with BaseDMX/AmplitudeDMX (movement-style mapping).
	OffsetCentered bool
	BaseDMX        float64
	AmplitudeDMX   float64

	ClampMin uint8
	ClampMax uint8

	Blend BlendMode
}

// DefaultClampMax is the full-range DMX ceiling callers pass explicitly to
// NewStatic/NewCurve. A ClampMax left at its zero value is not replaced by
// it; that value clamps the channel to 0.
const DefaultClampMax = 255

// NewStatic builds a static (non-curve) channel value.
func NewStatic(ch Name, dmx uint8, clampMin, clampMax uint8) Value {
	return Value{Channel: ch, StaticDMX: dmx, ClampMin: clampMin, ClampMax: clampMax}
}

// NewCurve builds a curve-backed channel value.
func NewCurve(ch Name, c curves.Curve, clampMin, clampMax uint8) Value {
	return Value{Channel: ch, HasCurve: true, Curve: c, ClampMin: clampMin, ClampMax: clampMax}
}

// Validate checks the channel-key and clamp-ordering invariants from
// spec.md §3.5. The xor(static,curve) invariant is structural (HasCurve
// selects the form) and is not checked here.
func (v Value) Validate(storedUnder Name) error {
	if v.Channel != storedUnder {
		return fmt.Errorf("channel value stored under %s but Channel field is %s", storedUnder, v.Channel)
	}
	if v.ClampMax < v.ClampMin {
		return fmt.Errorf("channel %s: clamp_max %d < clamp_min %d", v.Channel, v.ClampMax, v.ClampMin)
	}
	return nil
}

// Resolve evaluates this channel value at a moment t in [0,1] of its
// segment's lifetime, returning a final DMX byte, honoring clamp bounds and
// inversion.
func (v Value) Resolve(t float64, inverted bool) (uint8, error) {
	if !v.HasCurve {
		return applyInversionClamp(v.StaticDMX, v.ClampMin, v.ClampMax, inverted), nil
	}

	sample, err := v.Curve.Sample(t)
	if err != nil {
		return 0, err
	}

	mode := curves.Absolute
	if v.OffsetCentered {
		mode = curves.OffsetCentered
	}
	dmx := curves.MapValueToDMX(sample, mode, v.BaseDMX, v.AmplitudeDMX, float64(v.ClampMin), float64(v.ClampMax), inverted)
	return dmx, nil
}

func applyInversionClamp(dmx, clampMin, clampMax uint8, inverted bool) uint8 {
	v := dmx
	if v < clampMin {
		v = clampMin
	}
	if v > clampMax {
		v = clampMax
	}
	if inverted {
		return 255 - v
	}
	return v
}

// Combine merges two ChannelValues for the same channel across an
// overlapping window per Blend mode: Override replaces a with b; Add sums
// their resolved DMX values (clamped to [0,255]) — used when two
// simultaneously-active templates target the same channel across a
// transition boundary.
func Combine(a, b Value, t float64, invertedA, invertedB bool) (uint8, error) {
	av, err := a.Resolve(t, invertedA)
	if err != nil {
		return 0, err
	}
	if b.Blend == Override {
		return b.Resolve(t, invertedB)
	}
	bv, err := b.Resolve(t, invertedB)
	if err != nil {
		return 0, err
	}
	sum := int(av) + int(bv)
	if sum > 255 {
		sum = 255
	}
	return uint8(sum), nil
}
