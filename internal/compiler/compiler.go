// Package compiler implements C3, the template compiler: expanding a
// template + preset + context into per-fixture FixtureSegments. Grounded
// on original_source/.../templates/planner.py's time-budgeting algorithm
// (transition budget, 80%/20% scale-down) and .../moving_heads/manager.py
// and pipeline.py's per-step per-fixture compile loop, adapted from the
// original's dict-keyed Timeline/TimelineEffect model to flat Go structs
// in the teacher's per-item-loop style (internal/planner/planner.go).
package compiler

import (
	"fmt"
	"math"
	"sort"

	"github.com/cartomix/twinklr/internal/beatgrid"
	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/corerr"
	"github.com/cartomix/twinklr/internal/dimmer"
	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/movement"
	"github.com/cartomix/twinklr/internal/palette"
	"github.com/cartomix/twinklr/internal/plan"
	"github.com/cartomix/twinklr/internal/rig"
	"github.com/cartomix/twinklr/internal/templates"
)

// DefaultNSamples is the default curve-sampling resolution used when a
// compile context does not specify one (§4.3).
const DefaultNSamples = 64

// FixtureContext is one fixture's compile-time identity: its ID, inferred
// spatial role name, position within the target group, and calibration.
type FixtureContext struct {
	FixtureID     string
	Role          string // e.g. OUTER_LEFT, from geometry.RoleStrategy
	IndexInTarget int
	Calibration   rig.Calibration
}

// Context bundles everything C3 needs beyond the template itself.
type Context struct {
	SectionID string
	Fixtures  []FixtureContext

	Grid         *beatgrid.Grid
	StartBar     int
	DurationBars int
	StartMs      int64
	DurationMs   int64
	MsPerBar     float64

	GeometryEngine *geometry.Engine
	Movements      *movement.Registry
	Dimmers        *dimmer.Registry
	Palettes       *palette.Registry // nil disables Color-channel resolution

	// MacroPlan supplies a section-spanning palette fallback when a step
	// names no palette tag of its own; nil disables the fallback.
	MacroPlan *plan.MacroPlan
	// AudioProfile supplies a per-section energy hint used to pick a
	// movement/dimmer Intensity when a step names none; nil falls back
	// to the registries' own SMOOTH default.
	AudioProfile *plan.AudioProfile

	NSamples int
}

func (c Context) nSamples() int {
	if c.NSamples > 0 {
		return c.NSamples
	}
	return DefaultNSamples
}

// Segment is a time-bounded bundle of per-channel DMX values for one
// fixture within one step (§3.5's FixtureSegment).
type Segment struct {
	SectionID  string
	StepID     string
	TemplateID string
	PresetID   string
	SegmentID  string
	FixtureID  string
	T0Ms       int64
	T1Ms       int64 // >= T0Ms
	Channels   map[channels.Name]channels.Value

	AllowGrouping bool
	Metadata      map[string]string

	// EntryTransitionBars/ExitTransitionBars carry the step's declared
	// transition durations (0 when undeclared), so C4 can reconstruct a
	// Hint without this package needing to import internal/transitions
	// (which itself imports compiler for Segment, making the reverse
	// import a cycle).
	EntryTransitionBars float64
	ExitTransitionBars  float64
}

// Result is C3's output contract.
type Result struct {
	Segments          []Segment
	NumCompleteCycles uint32
}

// stepWindow is one step's allotted [start,end) ms after time budgeting.
type stepWindow struct {
	step    templates.PatternStep
	startMs int64
	endMs   int64
}

// Compile expands tmpl (after applying preset) against ctx into
// FixtureSegments, implementing the algorithm in spec.md §4.3.
func Compile(tmpl templates.Template, ctx Context, preset *templates.Preset) (Result, error) {
	merged := templates.Apply(tmpl, preset)
	if err := merged.Validate(); err != nil {
		return Result{}, corerr.Template(err, ctx.SectionID)
	}

	windows, err := budgetStepWindows(merged, ctx)
	if err != nil {
		return Result{}, corerr.Template(err, ctx.SectionID)
	}

	var segments []Segment
	for _, w := range windows {
		stepSegments, err := compileStep(merged.TemplateID, presetID(preset), w, ctx)
		if err != nil {
			return Result{}, err
		}
		segments = append(segments, stepSegments...)
	}

	sort.Slice(segments, func(i, j int) bool {
		if segments[i].FixtureID != segments[j].FixtureID {
			return segments[i].FixtureID < segments[j].FixtureID
		}
		return segments[i].T0Ms < segments[j].T0Ms
	})

	return Result{Segments: segments, NumCompleteCycles: countCompleteCycles(merged, ctx)}, nil
}

func presetID(p *templates.Preset) string {
	if p == nil {
		return ""
	}
	return p.PresetID
}

// budgetStepWindows implements the time-budgeting discipline: transition
// bars are reserved first, capped at 80% of the total window so effects
// always retain at least 20%, then step durations are allocated
// proportionally across the remaining time.
func budgetStepWindows(tmpl templates.Template, ctx Context) ([]stepWindow, error) {
	if ctx.MsPerBar <= 0 {
		return nil, fmt.Errorf("compiler: ms_per_bar must be > 0")
	}

	var transitionBars float64
	var effectBars float64
	for _, s := range tmpl.Steps {
		if s.EntryTransition != nil {
			transitionBars += s.EntryTransition.DurationBars
		}
		if s.ExitTransition != nil {
			transitionBars += s.ExitTransition.DurationBars
		}
		effectBars += s.Timing.DurationBars
	}

	totalMs := float64(ctx.DurationMs)
	transitionMs := transitionBars * ctx.MsPerBar

	if transitionMs > totalMs*0.8 {
		transitionMs = totalMs * 0.8
	}
	effectMs := totalMs - transitionMs
	if effectMs < totalMs*0.2 {
		effectMs = totalMs * 0.2
	}

	if effectBars <= 0 {
		return nil, fmt.Errorf("compiler: template %q has zero total effect bars", tmpl.TemplateID)
	}

	windows := make([]stepWindow, len(tmpl.Steps))
	cursor := ctx.StartMs
	for i, s := range tmpl.Steps {
		share := s.Timing.DurationBars / effectBars
		stepMs := int64(math.Round(share * effectMs))
		windows[i] = stepWindow{step: s, startMs: cursor, endMs: cursor + stepMs}
		cursor += stepMs
	}
	if len(windows) > 0 {
		windows[len(windows)-1].endMs = ctx.StartMs + ctx.DurationMs
	}
	return windows, nil
}

func compileStep(templateID, presetID string, w stepWindow, ctx Context) ([]Segment, error) {
	n := len(ctx.Fixtures)
	usePerFixture := true
	if w.step.GeometryID != "" {
		usePerFixture = geometry.UsePerFixtureCurves(w.step.GeometryID, n)
	}

	fixtureIDs := make([]string, n)
	for i, fc := range ctx.Fixtures {
		fixtureIDs[i] = fc.FixtureID
	}

	var geomByFixture map[string]geometry.FixtureGeometry
	if w.step.GeometryID != "" {
		g, err := ctx.GeometryEngine.Apply(w.step.GeometryID, fixtureIDs, geometry.Params{})
		if err != nil {
			return nil, corerr.Geometry(err, ctx.SectionID, w.step.StepID)
		}
		geomByFixture = g
	}

	intensity := effectiveIntensity(w.step.Intensity, ctx)

	var sharedMovement *movement.Result
	segments := make([]Segment, 0, n)

	for i, fc := range ctx.Fixtures {
		fixGeom := geomByFixture[fc.FixtureID]

		var moveResult movement.Result
		if !usePerFixture && sharedMovement != nil {
			moveResult = *sharedMovement
		} else {
			r, err := ctx.Movements.Resolve(w.step.MovementID, movement.Params{Geometry: fixGeom, Intensity: movement.Intensity(intensity)}, fc.Calibration)
			if err != nil {
				return nil, corerr.Template(err, ctx.SectionID, w.step.StepID, fc.FixtureID)
			}
			moveResult = r
			if !usePerFixture && sharedMovement == nil {
				sharedMovement = &r
			}
		}

		var entryBars, exitBars float64
		if w.step.EntryTransition != nil {
			entryBars = w.step.EntryTransition.DurationBars
		}
		if w.step.ExitTransition != nil {
			exitBars = w.step.ExitTransition.DurationBars
		}

		durationMs := w.endMs - w.startMs
		dimVal, err := ctx.Dimmers.Resolve(w.step.DimmerID, dimmer.Params{
			Intensity:  dimmer.Intensity(intensity),
			PeriodBars: w.step.PeriodBars,
			DurationMs: durationMs,
			MsPerBar:   ctx.MsPerBar,
		}, fc.Calibration.DimmerFloorDMX, fc.Calibration.DimmerCeilingDMX)
		if err != nil {
			return nil, corerr.Template(err, ctx.SectionID, w.step.StepID, fc.FixtureID)
		}

		ch := map[channels.Name]channels.Value{
			channels.Pan:    moveResult.Pan,
			channels.Tilt:   moveResult.Tilt,
			channels.Dimmer: dimVal,
		}

		if paletteID := effectivePaletteID(w.step.PaletteID, ctx); paletteID != "" && ctx.Palettes != nil {
			def, err := ctx.Palettes.Get(paletteID)
			if err != nil {
				return nil, corerr.Template(err, ctx.SectionID, w.step.StepID, fc.FixtureID)
			}
			ch[channels.Color] = channels.NewStatic(channels.Color, def.DMXValue(), 0, channels.DefaultClampMax)
		}

		segments = append(segments, Segment{
			SectionID:     ctx.SectionID,
			StepID:        w.step.StepID,
			TemplateID:    templateID,
			PresetID:      presetID,
			SegmentID:     fmt.Sprintf("%s_%s_%s", ctx.SectionID, w.step.StepID, fc.FixtureID),
			FixtureID:     fc.FixtureID,
			T0Ms:          w.startMs,
			T1Ms:          w.endMs,
			Channels:      ch,
			AllowGrouping: !usePerFixture,

			EntryTransitionBars: entryBars,
			ExitTransitionBars:  exitBars,
		})
		_ = i
	}

	return segments, nil
}

// effectivePaletteID resolves a step's Color-channel palette tag, falling
// back to the section's MacroPlan palette when the step names none.
func effectivePaletteID(stepPaletteID string, ctx Context) string {
	if stepPaletteID != "" {
		return stepPaletteID
	}
	if ctx.MacroPlan != nil {
		return ctx.MacroPlan.PaletteID
	}
	return ""
}

// effectiveIntensity resolves a step's categorical intensity, falling back
// to an audio-energy-derived value when the step names none and the
// context carries an AudioProfile. An empty result defers to the
// movement/dimmer registries' own SMOOTH default.
func effectiveIntensity(stepIntensity string, ctx Context) string {
	if stepIntensity != "" {
		return stepIntensity
	}
	if ctx.AudioProfile != nil {
		return intensityFromEnergy(ctx.AudioProfile.EnergyFor(ctx.SectionID))
	}
	return ""
}

// intensityFromEnergy bands a [0,1] energy hint into the four categorical
// intensity levels movement/dimmer already define.
func intensityFromEnergy(energy float64) string {
	switch {
	case energy < 0.25:
		return "SUBTLE"
	case energy < 0.5:
		return "SMOOTH"
	case energy < 0.75:
		return "BOLD"
	default:
		return "EXTREME"
	}
}

func countCompleteCycles(tmpl templates.Template, ctx Context) uint32 {
	var total float64
	for _, s := range tmpl.Steps {
		total += s.Timing.DurationBars
	}
	if ctx.MsPerBar <= 0 {
		return 0
	}
	cycleBars := total
	if cycleBars <= 0 {
		return 0
	}
	return uint32(float64(ctx.DurationMs) / (cycleBars * ctx.MsPerBar))
}
