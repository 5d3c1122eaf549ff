// Package movement implements the movement pattern registry referenced by
// PatternStep.movement_id (§3.3). A movement handler resolves an abstract
// pattern name plus categorical intensity into concrete pan/tilt channel
// values (static or curve-backed), honoring per-fixture geometry offsets.
// Grounded on
// original_source/.../templates/handlers/base_movement.py (the shared
// pan/tilt/curve-construction abstractions every movement handler builds
// on) and .../handlers/dimmers/default.py's categorical-intensity lookup
// idiom, reused here for pan/tilt instead of dimmer.
package movement

import (
	"fmt"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/curves"
	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/rig"
)

// Intensity is the categorical knob a template step chooses to scale a
// movement or dimmer pattern's amplitude/frequency. The closed set mirrors
// DEFAULT_DIMMER_PARAMS' categorical keys, with Smooth as the safe
// fallback for an unrecognized request.
type Intensity string

const (
	Subtle  Intensity = "SUBTLE"
	Smooth  Intensity = "SMOOTH"
	Bold    Intensity = "BOLD"
	Extreme Intensity = "EXTREME"
)

// categoricalParams is the per-intensity (amplitude fraction, base cycles)
// pair applied to a movement's native curve.
type categoricalParams struct {
	AmplitudeFraction float64
	BaseCycles        float64
}

var defaultIntensityParams = map[Intensity]categoricalParams{
	Subtle:  {AmplitudeFraction: 0.25, BaseCycles: 1},
	Smooth:  {AmplitudeFraction: 0.5, BaseCycles: 1},
	Bold:    {AmplitudeFraction: 0.75, BaseCycles: 2},
	Extreme: {AmplitudeFraction: 1.0, BaseCycles: 3},
}

func paramsFor(intensity Intensity) categoricalParams {
	if p, ok := defaultIntensityParams[intensity]; ok {
		return p
	}
	return defaultIntensityParams[Smooth]
}

// Params bundles a movement instruction's fields — the pattern's curve
// kind, categorical intensity, and the per-fixture geometry offset already
// resolved by internal/geometry for this fixture.
type Params struct {
	Kind      curves.NativeKind
	Intensity Intensity
	Geometry  geometry.FixtureGeometry
}

// Result is a resolved movement: one channel value per axis that carries
// per-fixture data (pan always; tilt always, even if zero-offset).
type Result struct {
	Pan  channels.Value
	Tilt channels.Value
}

// Handler resolves a movement_id's abstract spec into a Result for one
// fixture, given its calibration.
type Handler func(p Params, cal rig.Calibration) Result

// Registry is the read-only movement pattern registry populated once at
// startup, keyed by movement_id.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.registerBuiltins()
	return r
}

// ErrUnknownMovement is returned by Resolve for an unregistered movement_id.
type ErrUnknownMovement struct{ ID string }

func (e ErrUnknownMovement) Error() string { return fmt.Sprintf("movement: unknown id %q", e.ID) }

func (r *Registry) Resolve(movementID string, p Params, cal rig.Calibration) (Result, error) {
	h, ok := r.handlers[movementID]
	if !ok {
		return Result{}, ErrUnknownMovement{ID: movementID}
	}
	return h(p, cal), nil
}

func (r *Registry) registerBuiltins() {
	r.handlers["sweep_lr"] = sweepLR
	r.handlers["static_aim"] = staticAim
	r.handlers["circle"] = circle
}

// sweepLR sweeps pan via a sine curve (amplitude scaled by intensity,
// recentered to the fixture's pan limits via TuneNative) and holds tilt at
// the geometry's role-relative tilt offset.
func sweepLR(p Params, cal rig.Calibration) Result {
	ip := paramsFor(p.Intensity)
	spec := curves.NativeSpec{Kind: curves.Sine, Center: 0.5, Params: curves.Params{ip.AmplitudeFraction, ip.BaseCycles, 0, 1, 0}}
	tuned := curves.TuneNative(spec, float64(cal.PanMinDMX)/255.0, float64(cal.PanMaxDMX)/255.0)

	panOffsetFraction := p.Geometry.PanOffsetDeg / cal.PanRangeDeg
	tuned.Center += panOffsetFraction

	panCurve := curves.Curve{Native: tuned}
	pan := channels.NewCurve(channels.Pan, panCurve, cal.PanMinDMX, cal.PanMaxDMX)

	tiltDeg := geometry.ApplyTiltOffset(p.Geometry.TiltRole, p.Geometry.TiltOffsetDeg)
	tiltDMX := degreesToDMX(tiltDeg, cal.TiltRangeDeg, cal.TiltMinDMX, cal.TiltMaxDMX)
	tilt := channels.NewStatic(channels.Tilt, tiltDMX, cal.TiltMinDMX, cal.TiltMaxDMX)

	return Result{Pan: pan, Tilt: tilt}
}

// staticAim holds pan/tilt at the geometry-resolved offset with no motion.
func staticAim(p Params, cal rig.Calibration) Result {
	panDeg := p.Geometry.PanOffsetDeg
	panDMX := degreesToDMX(panDeg, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX)
	tiltDeg := geometry.ApplyTiltOffset(p.Geometry.TiltRole, p.Geometry.TiltOffsetDeg)
	tiltDMX := degreesToDMX(tiltDeg, cal.TiltRangeDeg, cal.TiltMinDMX, cal.TiltMaxDMX)

	return Result{
		Pan:  channels.NewStatic(channels.Pan, panDMX, cal.PanMinDMX, cal.PanMaxDMX),
		Tilt: channels.NewStatic(channels.Tilt, tiltDMX, cal.TiltMinDMX, cal.TiltMaxDMX),
	}
}

// circle drives pan with sine and tilt with cosine at the same cycle
// count; the sine/cosine pair supplies the quarter-cycle offset, and both
// curves leave the phase parameter at 0.
func circle(p Params, cal rig.Calibration) Result {
	ip := paramsFor(p.Intensity)

	panSpec := curves.NativeSpec{Kind: curves.Sine, Center: 0.5, Params: curves.Params{ip.AmplitudeFraction, ip.BaseCycles, 0, 1, 0}}
	panSpec = curves.TuneNative(panSpec, float64(cal.PanMinDMX)/255.0, float64(cal.PanMaxDMX)/255.0)
	pan := channels.NewCurve(channels.Pan, curves.Curve{Native: panSpec}, cal.PanMinDMX, cal.PanMaxDMX)

	tiltSpec := curves.NativeSpec{Kind: curves.Cosine, Center: 0.5, Params: curves.Params{ip.AmplitudeFraction, ip.BaseCycles, 0, 1, 0}}
	tiltSpec = curves.TuneNative(tiltSpec, float64(cal.TiltMinDMX)/255.0, float64(cal.TiltMaxDMX)/255.0)
	tilt := channels.NewCurve(channels.Tilt, curves.Curve{Native: tiltSpec}, cal.TiltMinDMX, cal.TiltMaxDMX)

	return Result{Pan: pan, Tilt: tilt}
}

func degreesToDMX(deg, rangeDeg float64, min, max uint8) uint8 {
	if rangeDeg == 0 {
		return min
	}
	frac := (deg/rangeDeg + 0.5)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	v := float64(min) + frac*float64(int(max)-int(min))
	return uint8(v)
}

// DMXToDegrees is degreesToDMX's inverse: it recovers the offset-from-center
// degree value a DMX count represents, honoring the same [min,max] span.
// Values outside the span clamp to the nearest end, matching degreesToDMX's
// own clamping so the pair round-trips exactly on valid input.
func DMXToDegrees(dmx uint8, rangeDeg float64, min, max uint8) float64 {
	if rangeDeg == 0 || max == min {
		return 0
	}
	frac := float64(int(dmx)-int(min)) / float64(int(max)-int(min))
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return (frac - 0.5) * rangeDeg
}

// DegreesToDMX exports degreesToDMX for callers outside this package (the
// DMX<->degrees round-trip property test in particular).
func DegreesToDMX(deg, rangeDeg float64, min, max uint8) uint8 {
	return degreesToDMX(deg, rangeDeg, min, max)
}
