package transitions

import (
	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/curves"
	"github.com/cartomix/twinklr/internal/rig"
)

// GapKind classifies a hole in a fixture's timeline where no segment exists,
// per §4.4's gap-fill special cases.
type GapKind int

const (
	GapSmall GapKind = iota
	GapLarge
	GapSequenceStart
	GapSequenceEnd
)

// GapFillConfig configures the soft-home pose and the small/large gap
// threshold. Defaults match spec.md §4.4.
type GapFillConfig struct {
	LargeGapThresholdMs int64
	SoftHomePanDeg      float64
	SoftHomeTiltDeg     float64
}

// DefaultGapFillConfig returns the spec's defaults: 5000ms threshold,
// soft-home pose (0,0).
func DefaultGapFillConfig() GapFillConfig {
	return GapFillConfig{LargeGapThresholdMs: 5000}
}

// Anchor is a resolved pan/tilt DMX pair at a segment's edge. Valid is false
// when no adjoining segment exists, meaning the gap-fill must hold at
// soft-home instead.
type Anchor struct {
	PanDMX  uint8
	TiltDMX uint8
	Valid   bool
}

// ClassifyGap determines which gap-fill special case applies.
func ClassifyGap(hasPrev, hasNext bool, durationMs int64, cfg GapFillConfig) GapKind {
	if !hasPrev {
		return GapSequenceStart
	}
	if !hasNext {
		return GapSequenceEnd
	}
	if durationMs >= cfg.LargeGapThresholdMs {
		return GapLarge
	}
	return GapSmall
}

func softHomeDMX(deg, rangeDeg float64, min, max uint8) uint8 {
	if rangeDeg == 0 {
		return min
	}
	frac := deg/rangeDeg + 0.5
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	v := float64(min) + frac*float64(int(max)-int(min))
	return clampDMX(v)
}

// SoftHomeAnchor resolves the configured soft-home pose to this fixture's
// calibration.
func SoftHomeAnchor(cfg GapFillConfig, cal rig.Calibration) Anchor {
	return Anchor{
		PanDMX:  softHomeDMX(cfg.SoftHomePanDeg, cal.PanRangeDeg, cal.PanMinDMX, cal.PanMaxDMX),
		TiltDMX: softHomeDMX(cfg.SoftHomeTiltDeg, cal.TiltRangeDeg, cal.TiltMinDMX, cal.TiltMaxDMX),
		Valid:   true,
	}
}

// FilledChannels is the set of pan/tilt/dimmer channel.Values synthesized to
// cover one gap-fill boundary.
type FilledChannels struct {
	Pan    channels.Value
	Tilt   channels.Value
	Dimmer channels.Value
}

// RenderSmallGap directly interpolates previous-end anchor to next-start
// anchor. Missing anchors hold at soft-home.
func RenderSmallGap(prev, next Anchor, cal rig.Calibration, cfg GapFillConfig, curve curves.NativeKind, nSamples int) (FilledChannels, error) {
	home := SoftHomeAnchor(cfg, cal)
	if !prev.Valid {
		prev = home
	}
	if !next.Valid {
		next = home
	}
	c := curves.Curve{Native: curves.NativeSpec{Kind: curve, Center: 0.5}}

	pan, err := BuildBlendedChannelValue(channels.Pan, StrategySmoothInterpolation, c, prev.PanDMX, next.PanDMX, cal.PanMinDMX, cal.PanMaxDMX, nSamples)
	if err != nil {
		return FilledChannels{}, err
	}
	tilt, err := BuildBlendedChannelValue(channels.Tilt, StrategySmoothInterpolation, c, prev.TiltDMX, next.TiltDMX, cal.TiltMinDMX, cal.TiltMaxDMX, nSamples)
	if err != nil {
		return FilledChannels{}, err
	}
	return FilledChannels{Pan: pan, Tilt: tilt}, nil
}

// RenderSequenceBoundary eases between the soft-home pose and a single known
// anchor, used for both SequenceStart (anchor = next segment's opening
// state) and SequenceEnd (anchor = previous segment's final state) — the
// caller picks src/tgt order to match which direction the ease runs.
func RenderSequenceBoundary(src, tgt Anchor, cal rig.Calibration, curve curves.NativeKind, nSamples int) (FilledChannels, error) {
	c := curves.Curve{Native: curves.NativeSpec{Kind: curve, Center: 0.5}}
	pan, err := BuildBlendedChannelValue(channels.Pan, StrategySmoothInterpolation, c, src.PanDMX, tgt.PanDMX, cal.PanMinDMX, cal.PanMaxDMX, nSamples)
	if err != nil {
		return FilledChannels{}, err
	}
	tilt, err := BuildBlendedChannelValue(channels.Tilt, StrategySmoothInterpolation, c, src.TiltDMX, tgt.TiltDMX, cal.TiltMinDMX, cal.TiltMaxDMX, nSamples)
	if err != nil {
		return FilledChannels{}, err
	}
	return FilledChannels{Pan: pan, Tilt: tilt}, nil
}

// LargeGapPhase is one of the three 40/20/40 windows of a large gap, in
// milliseconds relative to the gap's own start.
type LargeGapPhase struct {
	StartMs int64
	EndMs   int64
}

// LargeGapPhases splits a gap duration into the 40/20/40 phase split.
func LargeGapPhases(durationMs int64) (easeOut, dip, easeIn LargeGapPhase) {
	p1 := int64(float64(durationMs) * 0.4)
	p2 := int64(float64(durationMs) * 0.2)
	easeOut = LargeGapPhase{StartMs: 0, EndMs: p1}
	dip = LargeGapPhase{StartMs: p1, EndMs: p1 + p2}
	easeIn = LargeGapPhase{StartMs: p1 + p2, EndMs: durationMs}
	return
}

// LargeGapDimmerFloor is the dip's minimum dimmer DMX value — low enough to
// read as a dramatic pause but never zero, so the cut never reads as an
// output failure.
const LargeGapDimmerFloor uint8 = 12

// RenderLargeGap builds the three-phase fill: ease prev->home over the first
// 40%, hold at home with dimmer pulled low (but nonzero) over the middle
// 20%, ease home->next over the last 40%.
func RenderLargeGap(prev, next Anchor, dimmerPrev, dimmerNext uint8, cal rig.Calibration, cfg GapFillConfig, curve curves.NativeKind, nSamples int) (easeOut, dip, easeIn FilledChannels, err error) {
	home := SoftHomeAnchor(cfg, cal)
	if !prev.Valid {
		prev = home
	}
	if !next.Valid {
		next = home
	}

	easeOut, err = RenderSequenceBoundary(prev, home, cal, curve, nSamples)
	if err != nil {
		return
	}
	easeIn, err = RenderSequenceBoundary(home, next, cal, curve, nSamples)
	if err != nil {
		return
	}

	dipFloor := LargeGapDimmerFloor
	lo := dimmerPrev
	if dimmerNext < lo {
		lo = dimmerNext
	}
	if dipFloor > lo {
		dipFloor = lo
	}
	if dipFloor == 0 {
		dipFloor = LargeGapDimmerFloor
	}

	dimCurve := curves.Curve{Native: curves.NativeSpec{Kind: curves.Cosine, Center: 0.5, Params: curves.Params{0.5, 1, 0, 1, 0}}}
	dimVal, derr := BuildBlendedChannelValue(channels.Dimmer, StrategySmoothInterpolation, dimCurve, dipFloor, dipFloor, 0, 255, nSamples)
	if derr != nil {
		err = derr
		return
	}
	hold, herr := RenderSequenceBoundary(home, home, cal, curve, nSamples)
	if herr != nil {
		err = herr
		return
	}
	dip = FilledChannels{Pan: hold.Pan, Tilt: hold.Tilt, Dimmer: dimVal}
	return
}

// SnapTransitionWindow implements the "timing snap" rule (§4.4): a declared
// transition longer than the available gap clamps to the gap; shorter than
// the gap is centered (padded equally); gaps under 10ms are filled entirely
// regardless of the declared duration.
func SnapTransitionWindow(declaredMs, gapMs int64) (offsetMs, durationMs int64) {
	if gapMs < 10 {
		return 0, gapMs
	}
	if declaredMs >= gapMs {
		return 0, gapMs
	}
	pad := (gapMs - declaredMs) / 2
	return pad, declaredMs
}

// CollapseAdjacentGaps merges adjacent gap boundaries (ExitGapEndMs ==
// EntryGapStartMs within 1ms) into a single combined gap per §4.4's
// adjacent-gap collapse rule. Gaps must be sorted by start time.
type RawGap struct {
	StartMs int64
	EndMs   int64
}

func CollapseAdjacentGaps(gaps []RawGap) []RawGap {
	if len(gaps) == 0 {
		return nil
	}
	out := make([]RawGap, 0, len(gaps))
	cur := gaps[0]
	for _, g := range gaps[1:] {
		if g.StartMs-cur.EndMs <= 1 {
			cur.EndMs = g.EndMs
			continue
		}
		out = append(out, cur)
		cur = g
	}
	out = append(out, cur)
	return out
}
