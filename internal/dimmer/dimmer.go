// Package dimmer implements the dimmer pattern registry referenced by
// PatternStep.dimmer_id (§3.3). A dimmer handler receives an intensity, a
// [min,max] normalized brightness range, and (for bar-denominated
// patterns) the step's duration and the song's ms-per-bar, and produces
// either a static DMX level (hold patterns) or a curve-backed channel
// value. Grounded on
// original_source/.../handlers/dimmers/default.py's categorical-intensity
// lookup and bar-to-cycle conversion, and spec.md §5 step 2's explicit
// formula `cycles = duration_ms / (period_bars * ms_per_bar)`.
package dimmer

import (
	"fmt"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/curves"
)

// Intensity mirrors internal/movement.Intensity's closed set; kept as a
// distinct type since dimmer and movement patterns are resolved
// independently and may diverge in their categorical tables over time.
type Intensity string

const (
	Subtle  Intensity = "SUBTLE"
	Smooth  Intensity = "SMOOTH"
	Bold    Intensity = "BOLD"
	Extreme Intensity = "EXTREME"
)

type categoricalParams struct {
	MinFraction float64
	MaxFraction float64
}

var defaultParams = map[Intensity]categoricalParams{
	Subtle:  {MinFraction: 0.6, MaxFraction: 0.8},
	Smooth:  {MinFraction: 0.3, MaxFraction: 1.0},
	Bold:    {MinFraction: 0.1, MaxFraction: 1.0},
	Extreme: {MinFraction: 0.0, MaxFraction: 1.0},
}

func paramsFor(intensity Intensity) categoricalParams {
	if p, ok := defaultParams[intensity]; ok {
		return p
	}
	return defaultParams[Smooth]
}

// CyclesFromPeriodBars converts a bar-denominated period to a cycle count
// for a step of the given duration, per spec.md §5: cycles = duration_ms /
// (period_bars * ms_per_bar).
func CyclesFromPeriodBars(durationMs int64, periodBars float64, msPerBar float64) (float64, error) {
	if periodBars <= 0 {
		return 0, fmt.Errorf("dimmer: period_bars must be > 0, got %g", periodBars)
	}
	if msPerBar <= 0 {
		return 0, fmt.Errorf("dimmer: ms_per_bar must be > 0, got %g", msPerBar)
	}
	periodMs := periodBars * msPerBar
	return float64(durationMs) / periodMs, nil
}

// Params bundles one dimmer instruction's fields.
type Params struct {
	Intensity   Intensity
	MinNorm     float64 // brightness floor in [0,1], overrides the categorical default when > 0
	MaxNorm     float64 // brightness ceiling in [0,1]
	PeriodBars  float64 // bar-denominated cycle period; pulse/strobe reject values <= 0, other patterns ignore it
	DurationMs  int64
	MsPerBar    float64
}

// Handler resolves a dimmer_id's abstract spec into a channel value for
// one fixture, given its dimmer calibration floor/ceiling.
type Handler func(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error)

// Registry is the read-only dimmer pattern registry populated once at
// startup, keyed by dimmer_id.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.registerBuiltins()
	return r
}

// ErrUnknownDimmer is returned by Resolve for an unregistered dimmer_id.
type ErrUnknownDimmer struct{ ID string }

func (e ErrUnknownDimmer) Error() string { return fmt.Sprintf("dimmer: unknown id %q", e.ID) }

func (r *Registry) Resolve(dimmerID string, p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	h, ok := r.handlers[dimmerID]
	if !ok {
		return channels.Value{}, ErrUnknownDimmer{ID: dimmerID}
	}
	return h(p, floorDMX, ceilingDMX)
}

func (r *Registry) registerBuiltins() {
	r.handlers["hold"] = holdDimmer
	r.handlers["pulse"] = pulseDimmer
	r.handlers["strobe"] = strobeDimmer
	r.handlers["fade_in"] = fadeInDimmer
	r.handlers["fade_out"] = fadeOutDimmer
}

func resolvedRange(p Params) (min, max float64) {
	ip := paramsFor(p.Intensity)
	min, max = ip.MinFraction, ip.MaxFraction
	if p.MinNorm > 0 {
		min = p.MinNorm
	}
	if p.MaxNorm > 0 {
		max = p.MaxNorm
	}
	return min, max
}

// holdDimmer is a static brightness at the categorical max.
func holdDimmer(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	_, max := resolvedRange(p)
	dmx := uint8(float64(floorDMX) + max*float64(int(ceilingDMX)-int(floorDMX)))
	return channels.NewStatic(channels.Dimmer, dmx, floorDMX, ceilingDMX), nil
}

// pulseDimmer oscillates between min and max over PeriodBars-denominated
// cycles using a sine curve.
func pulseDimmer(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	min, max := resolvedRange(p)
	cycles, err := CyclesFromPeriodBars(p.DurationMs, p.PeriodBars, p.MsPerBar)
	if err != nil {
		return channels.Value{}, err
	}
	amp := max - min
	spec := curves.NativeSpec{Kind: curves.Sine, Center: min + amp/2, Params: curves.Params{amp, cycles, 0, 1, 0}}
	return channels.NewCurve(channels.Dimmer, curves.Curve{Native: spec}, floorDMX, ceilingDMX), nil
}

// strobeDimmer is a hard on/off square wave.
func strobeDimmer(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	_, max := resolvedRange(p)
	cycles, err := CyclesFromPeriodBars(p.DurationMs, p.PeriodBars, p.MsPerBar)
	if err != nil {
		return channels.Value{}, err
	}
	spec := curves.NativeSpec{Kind: curves.Square, Center: max / 2, Params: curves.Params{max, cycles, 0, 1, 0}}
	return channels.NewCurve(channels.Dimmer, curves.Curve{Native: spec}, floorDMX, ceilingDMX), nil
}

// fadeInDimmer ramps from min to max across the step's full duration.
func fadeInDimmer(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	min, max := resolvedRange(p)
	spec := curves.NativeSpec{Kind: curves.Ramp, Params: curves.Params{min, max, 0, 0, 0}}
	return channels.NewCurve(channels.Dimmer, curves.Curve{Native: spec}, floorDMX, ceilingDMX), nil
}

// fadeOutDimmer ramps from max to min across the step's full duration.
func fadeOutDimmer(p Params, floorDMX, ceilingDMX uint8) (channels.Value, error) {
	min, max := resolvedRange(p)
	spec := curves.NativeSpec{Kind: curves.Ramp, Params: curves.Params{max, min, 0, 0, 0}}
	return channels.NewCurve(channels.Dimmer, curves.Curve{Native: spec}, floorDMX, ceilingDMX), nil
}
