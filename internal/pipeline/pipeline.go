// Package pipeline wires C1 (plan/rig/beatgrid inputs) through C3 (the
// template compiler), C4 (transition/gap-fill), and C5 (the XSQ
// serializer) into one RenderingPipeline, per spec.md §5's ordering
// guarantees. Grounded on the teacher's internal/planner/planner.go
// top-level Plan-to-output orchestration and cmd/engine/main.go's
// single-entrypoint Run function shape.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cartomix/twinklr/internal/beatgrid"
	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/compiler"
	"github.com/cartomix/twinklr/internal/corerr"
	"github.com/cartomix/twinklr/internal/curves"
	"github.com/cartomix/twinklr/internal/dimmer"
	"github.com/cartomix/twinklr/internal/geometry"
	"github.com/cartomix/twinklr/internal/movement"
	"github.com/cartomix/twinklr/internal/palette"
	"github.com/cartomix/twinklr/internal/plan"
	"github.com/cartomix/twinklr/internal/rig"
	"github.com/cartomix/twinklr/internal/templates"
	"github.com/cartomix/twinklr/internal/transitions"
	"github.com/cartomix/twinklr/internal/xsq"
)

// SongMeta carries the head-level identifiers the XSQ document needs but
// that live outside the ChoreographyPlan model (§3.2 intentionally keeps
// these out of Section/Plan).
type SongMeta struct {
	MediaFile string
	Song      string
	Artist    string
}

// Engine bundles the read-only registries every section compile needs.
// Built once at startup and shared across renders, matching the teacher's
// read-only-registries-at-startup convention (internal/templates,
// internal/movement, internal/dimmer are themselves already built that
// way).
type Engine struct {
	Rig            *rig.Profile
	Splits         map[string]rig.SplitDefinition
	Templates      *templates.Registry
	Presets        map[string]*templates.Preset
	Movements      *movement.Registry
	Dimmers        *dimmer.Registry
	GeometryEngine *geometry.Engine
	Palettes       *palette.Registry

	GapFill  transitions.GapFillConfig
	NSamples int

	Logger *slog.Logger
}

// NewEngine builds an Engine with the defaults the teacher's constructors
// use (DefaultGapFillConfig, compiler.DefaultNSamples) when the
// corresponding fields are left zero.
func NewEngine(rigProfile *rig.Profile, tmpls *templates.Registry, moves *movement.Registry, dims *dimmer.Registry, geo *geometry.Engine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Rig:            rigProfile,
		Splits:         make(map[string]rig.SplitDefinition),
		Templates:      tmpls,
		Presets:        make(map[string]*templates.Preset),
		Movements:      moves,
		Dimmers:        dims,
		GeometryEngine: geo,
		Palettes:       palette.Default(),
		GapFill:        transitions.DefaultGapFillConfig(),
		NSamples:       compiler.DefaultNSamples,
		Logger:         logger,
	}
}

// Result is the pipeline's full output: the resolved segment timeline
// (post gap-fill) plus the XSQ document ready to serialize.
type Result struct {
	Segments []compiler.Segment
	Document xsq.Document
}

// Run executes the full C1->C5 chain: resolve every section's fixtures and
// bar window, compile each in plan order, fill fixture-by-fixture
// boundaries and gaps, then encode the result as an XSQ document. macro and
// profile are both optional upstream inputs (§3.2); either may be nil
// without failing the render.
func (e *Engine) Run(p plan.ChoreographyPlan, grid *beatgrid.Grid, meta SongMeta, macro *plan.MacroPlan, profile *plan.AudioProfile) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, corerr.Validation(err)
	}
	if err := beatgrid.ValidateGrid(grid); err != nil {
		return Result{}, corerr.Validation(err)
	}

	var all []compiler.Segment
	for _, section := range p.Sorted() {
		segs, err := e.compileSection(section, grid, macro, profile)
		if err != nil {
			return Result{}, err
		}
		all = append(all, segs...)
	}

	filled, err := e.fillBoundaries(all, grid.DurationMs)
	if err != nil {
		return Result{}, err
	}

	doc, err := e.encode(filled, grid, meta)
	if err != nil {
		return Result{}, err
	}

	return Result{Segments: filled, Document: doc}, nil
}

// compileSection resolves one section's fixture targets and bar window,
// then invokes C3.
func (e *Engine) compileSection(section plan.Section, grid *beatgrid.Grid, macro *plan.MacroPlan, profile *plan.AudioProfile) ([]compiler.Segment, error) {
	fixtureIDs, err := rig.Resolve(section.Target, e.Rig, e.Splits)
	if err != nil {
		return nil, corerr.Validation(err, section.Name)
	}

	tmpl, err := e.Templates.Get(section.TemplateID)
	if err != nil {
		return nil, corerr.Template(err, section.Name)
	}
	var preset *templates.Preset
	if section.PresetID != "" {
		p, ok := e.Presets[section.PresetID]
		if !ok {
			return nil, corerr.Template(fmt.Errorf("unknown preset_id %q", section.PresetID), section.Name)
		}
		preset = p
	}

	startMs, endMs, err := beatgrid.BarWindow(section.StartBar, section.EndBar, grid)
	if err != nil {
		return nil, corerr.Validation(err, section.Name)
	}
	msPerBar := grid.MsPerBeatAt(section.StartBar) * float64(grid.BeatsPerBar)

	fixtures := make([]compiler.FixtureContext, len(fixtureIDs))
	for i, fid := range fixtureIDs {
		f, ok := e.Rig.Fixture(fid)
		if !ok {
			return nil, corerr.Validation(fmt.Errorf("section %q: unknown fixture %q", section.Name, fid), section.Name)
		}
		fixtures[i] = compiler.FixtureContext{
			FixtureID:     fid,
			Role:          f.Role,
			IndexInTarget: i,
			Calibration:   f.Calibration,
		}
	}

	ctx := compiler.Context{
		SectionID:      section.Name,
		Fixtures:       fixtures,
		Grid:           grid,
		StartBar:       section.StartBar,
		DurationBars:   section.EndBar - section.StartBar,
		StartMs:        startMs,
		DurationMs:     endMs - startMs,
		MsPerBar:       msPerBar,
		GeometryEngine: e.GeometryEngine,
		Movements:      e.Movements,
		Dimmers:        e.Dimmers,
		Palettes:       e.Palettes,
		MacroPlan:      macro,
		AudioProfile:   profile,
		NSamples:       e.NSamples,
	}

	result, err := compiler.Compile(tmpl, ctx, preset)
	if err != nil {
		return nil, err
	}
	return result.Segments, nil
}

// fillBoundaries groups segments by fixture, then walks each fixture's
// boundary list synthesizing: declared entry/exit transition blends at
// zero-gap step/section boundaries, and gap-fill segments (soft-home,
// small-gap interpolation, large-gap three-phase ease) at actual silences,
// per spec.md §4.4.
func (e *Engine) fillBoundaries(segments []compiler.Segment, showEndMs int64) ([]compiler.Segment, error) {
	byFixture := transitions.GroupByFixture(segments)

	fixtureIDs := make([]string, 0, len(byFixture))
	for fid := range byFixture {
		fixtureIDs = append(fixtureIDs, fid)
	}
	sort.Strings(fixtureIDs)

	var out []compiler.Segment
	for _, fid := range fixtureIDs {
		segs := byFixture[fid]
		adjusted, err := e.fillFixtureBoundaries(fid, segs, showEndMs)
		if err != nil {
			return nil, err
		}
		out = append(out, adjusted...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FixtureID != out[j].FixtureID {
			return out[i].FixtureID < out[j].FixtureID
		}
		return out[i].T0Ms < out[j].T0Ms
	})
	return out, nil
}

func (e *Engine) fillFixtureBoundaries(fixtureID string, segments []compiler.Segment, showEndMs int64) ([]compiler.Segment, error) {
	cal := rig.DefaultCalibration()
	if f, ok := e.Rig.Fixture(fixtureID); ok {
		cal = f.Calibration
	}

	work := make([]compiler.Segment, len(segments))
	copy(work, segments)
	sort.Slice(work, func(i, j int) bool { return work[i].T0Ms < work[j].T0Ms })

	boundaries := transitions.BuildFixtureBoundaries(fixtureID, work, 0, showEndMs)

	indexOf := func(target *compiler.Segment) int {
		for i := range work {
			if work[i].SegmentID == target.SegmentID {
				return i
			}
		}
		return -1
	}

	var fillers []compiler.Segment
	for _, b := range boundaries {
		switch {
		case b.Kind == transitions.SequenceStart:
			seg, err := e.renderSequenceStartFiller(fixtureID, b, cal)
			if err != nil {
				return nil, err
			}
			if seg != nil {
				fillers = append(fillers, *seg)
			}

		case b.Kind == transitions.SequenceEnd:
			seg, err := e.renderSequenceEndFiller(fixtureID, b, cal)
			if err != nil {
				return nil, err
			}
			if seg != nil {
				fillers = append(fillers, *seg)
			}

		case b.GapMs > 0:
			segs, err := e.renderMidGapFiller(fixtureID, b, cal)
			if err != nil {
				return nil, err
			}
			fillers = append(fillers, segs...)

		default:
			seg, err := e.renderDeclaredTransition(fixtureID, b, cal, work, indexOf)
			if err != nil {
				return nil, err
			}
			if seg != nil {
				fillers = append(fillers, *seg)
			}
		}
	}

	result := make([]compiler.Segment, 0, len(work)+len(fillers))
	result = append(result, work...)
	result = append(result, fillers...)
	return result, nil
}

func (e *Engine) renderSequenceStartFiller(fixtureID string, b transitions.Boundary, cal rig.Calibration) (*compiler.Segment, error) {
	if b.GapMs <= 0 {
		return nil, nil
	}
	tgt, err := transitions.EdgeAnchor(b.Right, false)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	src := transitions.SoftHomeAnchor(e.GapFill, cal)
	filled, err := transitions.RenderSequenceBoundary(src, tgt, cal, curves.Linear, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	seg := filledToSegment(fixtureID, "sequence_start", b.Right.T0Ms-b.GapMs, b.Right.T0Ms, filled, cal)
	return &seg, nil
}

func (e *Engine) renderSequenceEndFiller(fixtureID string, b transitions.Boundary, cal rig.Calibration) (*compiler.Segment, error) {
	if b.GapMs <= 0 {
		return nil, nil
	}
	src, err := transitions.EdgeAnchor(b.Left, true)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	tgt := transitions.SoftHomeAnchor(e.GapFill, cal)
	filled, err := transitions.RenderSequenceBoundary(src, tgt, cal, curves.Linear, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	seg := filledToSegment(fixtureID, "sequence_end", b.Left.T1Ms, b.Left.T1Ms+b.GapMs, filled, cal)
	return &seg, nil
}

func (e *Engine) renderMidGapFiller(fixtureID string, b transitions.Boundary, cal rig.Calibration) ([]compiler.Segment, error) {
	kind := transitions.ClassifyGap(b.Left != nil, b.Right != nil, b.GapMs, e.GapFill)

	prev, err := transitions.EdgeAnchor(b.Left, true)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	next, err := transitions.EdgeAnchor(b.Right, false)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}

	gapStart := b.Right.T0Ms - b.GapMs
	if b.Left != nil {
		gapStart = b.Left.T1Ms
	}
	gapEnd := gapStart + b.GapMs

	if kind != transitions.GapLarge {
		filled, err := transitions.RenderSmallGap(prev, next, cal, e.GapFill, curves.Linear, e.NSamples)
		if err != nil {
			return nil, corerr.Boundary(err, "", "", fixtureID)
		}
		return []compiler.Segment{filledToSegment(fixtureID, "gap_fill", gapStart, gapEnd, filled, cal)}, nil
	}

	dimmerPrev := resolveDimmerEdge(b.Left, true)
	dimmerNext := resolveDimmerEdge(b.Right, false)
	easeOut, dip, easeIn, err := transitions.RenderLargeGap(prev, next, dimmerPrev, dimmerNext, cal, e.GapFill, curves.Linear, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	phaseOut, phaseDip, phaseIn := transitions.LargeGapPhases(b.GapMs)
	return []compiler.Segment{
		filledToSegment(fixtureID, "gap_ease_out", gapStart+phaseOut.StartMs, gapStart+phaseOut.EndMs, easeOut, cal),
		filledToSegment(fixtureID, "gap_dip", gapStart+phaseDip.StartMs, gapStart+phaseDip.EndMs, dip, cal),
		filledToSegment(fixtureID, "gap_ease_in", gapStart+phaseIn.StartMs, gapStart+phaseIn.EndMs, easeIn, cal),
	}, nil
}

// renderDeclaredTransition synthesizes a crossfade overlay across a
// zero-gap step/section boundary when either side declared an entry/exit
// transition duration, trimming the adjacent segments' windows in work so
// the overlay does not double-cover time.
func (e *Engine) renderDeclaredTransition(fixtureID string, b transitions.Boundary, cal rig.Calibration, work []compiler.Segment, indexOf func(*compiler.Segment) int) (*compiler.Segment, error) {
	if b.Left == nil || b.Right == nil {
		return nil, nil
	}
	bars := b.Left.ExitTransitionBars
	if b.Right.EntryTransitionBars > bars {
		bars = b.Right.EntryTransitionBars
	}
	if bars <= 0 {
		return nil, nil
	}

	leftDur := b.Left.T1Ms - b.Left.T0Ms
	rightDur := b.Right.T1Ms - b.Right.T0Ms
	avail := leftDur
	if rightDur < avail {
		avail = rightDur
	}
	if avail <= 0 {
		return nil, nil
	}

	declaredMs := int64(bars * msPerBarForSegment(b.Left))
	_, duration := transitions.SnapTransitionWindow(declaredMs, avail)
	if duration <= 0 {
		return nil, nil
	}

	start := b.Left.T1Ms - duration/2
	end := start + duration

	li, ri := indexOf(b.Left), indexOf(b.Right)
	if li >= 0 {
		work[li].T1Ms = start
	}
	if ri >= 0 {
		work[ri].T0Ms = end
	}

	pan, err := blendedTransitionChannel(channels.Pan, b.Left, b.Right, cal, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	tilt, err := blendedTransitionChannel(channels.Tilt, b.Left, b.Right, cal, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}
	dimmer, err := blendedTransitionChannel(channels.Dimmer, b.Left, b.Right, cal, e.NSamples)
	if err != nil {
		return nil, corerr.Boundary(err, "", "", fixtureID)
	}

	seg := compiler.Segment{
		SectionID:  b.Right.SectionID,
		StepID:     "transition",
		TemplateID: b.Right.TemplateID,
		FixtureID:  fixtureID,
		SegmentID:  fmt.Sprintf("%s_transition_%d", fixtureID, start),
		T0Ms:       start,
		T1Ms:       end,
		Channels: map[channels.Name]channels.Value{
			channels.Pan:    pan,
			channels.Tilt:   tilt,
			channels.Dimmer: dimmer,
		},
	}
	return &seg, nil
}

// msPerBarForSegment approximates the bar duration at a boundary from the
// adjoining segment's own window and declared transition bars, since
// compiler.Segment doesn't independently carry a bar count.
func msPerBarForSegment(seg *compiler.Segment) float64 {
	if seg.ExitTransitionBars > 0 {
		return float64(seg.T1Ms-seg.T0Ms) / seg.ExitTransitionBars
	}
	return float64(seg.T1Ms - seg.T0Ms)
}

func blendedTransitionChannel(ch channels.Name, left, right *compiler.Segment, cal rig.Calibration, nSamples int) (channels.Value, error) {
	lv, lok := left.Channels[ch]
	rv, rok := right.Channels[ch]
	if !lok || !rok {
		return channels.Value{}, fmt.Errorf("transition: channel %s missing on one side of boundary", ch)
	}
	src, err := lv.Resolve(1.0, false)
	if err != nil {
		return channels.Value{}, err
	}
	tgt, err := rv.Resolve(0.0, false)
	if err != nil {
		return channels.Value{}, err
	}
	clampMin, clampMax := clampRangeFor(ch, cal)
	curve := curves.NewNative(curves.Linear, curves.Params{})
	return transitions.BuildBlendedChannelValue(ch, transitions.StrategyCrossfade, curve, src, tgt, clampMin, clampMax, nSamples)
}

func clampRangeFor(ch channels.Name, cal rig.Calibration) (uint8, uint8) {
	switch ch {
	case channels.Pan:
		return cal.PanMinDMX, cal.PanMaxDMX
	case channels.Tilt:
		return cal.TiltMinDMX, cal.TiltMaxDMX
	case channels.Dimmer:
		return cal.DimmerFloorDMX, cal.DimmerCeilingDMX
	default:
		return 0, 255
	}
}

func resolveDimmerEdge(seg *compiler.Segment, atEnd bool) uint8 {
	if seg == nil {
		return 0
	}
	v, ok := seg.Channels[channels.Dimmer]
	if !ok {
		return 0
	}
	t := 0.0
	if atEnd {
		t = 1.0
	}
	dmx, err := v.Resolve(t, false)
	if err != nil {
		return 0
	}
	return dmx
}

func filledToSegment(fixtureID, stepID string, startMs, endMs int64, filled transitions.FilledChannels, cal rig.Calibration) compiler.Segment {
	dimmerVal := filled.Dimmer
	if !dimmerVal.HasCurve && dimmerVal.ClampMax == 0 {
		// RenderSmallGap/RenderSequenceBoundary only fill pan/tilt; hold
		// the dimmer at the fixture's idle floor rather than an
		// unclamped zero value.
		dimmerVal = channels.NewStatic(channels.Dimmer, cal.DimmerFloorDMX, cal.DimmerFloorDMX, cal.DimmerCeilingDMX)
	}
	return compiler.Segment{
		StepID:    stepID,
		FixtureID: fixtureID,
		SegmentID: fmt.Sprintf("%s_%s_%d", fixtureID, stepID, startMs),
		T0Ms:      startMs,
		T1Ms:      endMs,
		Channels: map[channels.Name]channels.Value{
			channels.Pan:    filled.Pan,
			channels.Tilt:   filled.Tilt,
			channels.Dimmer: dimmerVal,
		},
	}
}

// dmxChannelIndex is this pipeline's fixed moving-head channel layout: pan,
// tilt, dimmer, and an optional color-macro channel on a single "Dmx"
// xLights model. Color is only present in a segment's Channels map when
// its step named a palette tag (see internal/compiler's Palettes
// resolution); its absence falls through the "ok" check in
// encodeSegmentSettings before dmxChannelIndex is ever consulted.
func dmxChannelIndex(ch channels.Name) int {
	switch ch {
	case channels.Pan:
		return 1
	case channels.Tilt:
		return 2
	case channels.Dimmer:
		return 3
	case channels.Color:
		return 4
	default:
		return 0
	}
}

// encode assembles the fully gap-filled segment timeline into an XSQ
// document: one DisplayElement/EffectsElement per rig-declared fixture,
// each effect's settings-string interned into a shared EffectDB per §4.5.
func (e *Engine) encode(segments []compiler.Segment, grid *beatgrid.Grid, meta SongMeta) (xsq.Document, error) {
	byFixture := transitions.GroupByFixture(segments)
	db := xsq.NewEffectDB()

	var displayElements []xsq.DisplayElement
	var effectElements []xsq.EffectsElement

	for _, f := range e.Rig.Fixtures {
		segs, ok := byFixture[f.ID]
		if !ok {
			continue
		}
		sort.Slice(segs, func(i, j int) bool { return segs[i].T0Ms < segs[j].T0Ms })

		name := "Dmx " + f.ID
		displayElements = append(displayElements, xsq.DisplayElement{Type: "model", Name: name})

		effects := make([]xsq.Effect, 0, len(segs))
		for _, seg := range segs {
			settings, err := e.encodeSegmentSettings(seg, f.Calibration)
			if err != nil {
				return xsq.Document{}, corerr.Emission(err, seg.SectionID, seg.StepID, f.ID)
			}
			ref := db.Intern(settings)
			effects = append(effects, xsq.Effect{
				HasRef:      true,
				Ref:         ref,
				Name:        "DMX",
				StartTimeMs: seg.T0Ms,
				EndTimeMs:   seg.T1Ms,
			})
		}
		effectElements = append(effectElements, xsq.EffectsElement{
			Type: "model", Name: name,
			Layers: []xsq.EffectLayer{{Effects: effects}},
		})
	}

	doc := xsq.Document{
		Head: xsq.Head{
			Version:          "2024.1",
			MediaFile:        meta.MediaFile,
			SequenceDuration: xsq.FormatDurationSeconds(grid.DurationMs),
			Song:             meta.Song,
			Artist:           meta.Artist,
		},
		EffectDB:        xsq.EffectDBXML{Effects: db.Entries()},
		DisplayElements: xsq.DisplayElements{Elements: displayElements},
		ElementEffects:  xsq.ElementEffects{Elements: effectElements},
	}
	return doc, nil
}

func (e *Engine) encodeSegmentSettings(seg compiler.Segment, cal rig.Calibration) (string, error) {
	var settings []xsq.ChannelSetting
	for _, name := range channels.AllNames {
		val, ok := seg.Channels[name]
		if !ok {
			continue
		}
		idx := dmxChannelIndex(name)
		if idx == 0 {
			continue
		}
		inverted := invertedFor(name, cal)
		if !val.HasCurve {
			dmx, err := val.Resolve(0, inverted)
			if err != nil {
				return "", err
			}
			settings = append(settings, xsq.ChannelSetting{Index: idx, Inverted: inverted, Static: dmx})
			continue
		}

		points := make([]curves.CurvePoint, e.NSamples)
		for i := 0; i < e.NSamples; i++ {
			t := float64(i) / float64(e.NSamples-1)
			dmx, err := val.Resolve(t, inverted)
			if err != nil {
				return "", err
			}
			points[i] = curves.CurvePoint{T: t, V: float64(dmx) / 255.0}
		}
		vc := xsq.ValueCurve{
			Channel: idx, IsCustom: true,
			Points: points,
			Min:    float64(val.ClampMin), Max: float64(val.ClampMax),
		}
		settings = append(settings, xsq.ChannelSetting{Index: idx, Inverted: inverted, Curve: &vc})
	}
	return xsq.EncodeSettingsString(settings), nil
}

func invertedFor(ch channels.Name, cal rig.Calibration) bool {
	switch ch {
	case channels.Pan:
		return cal.PanInverted
	case channels.Tilt:
		return cal.TiltInverted
	default:
		return false
	}
}
