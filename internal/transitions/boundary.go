package transitions

import (
	"sort"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/compiler"
)

// BoundaryKind names the four boundary types of §4.4's model.
type BoundaryKind int

const (
	SectionBoundary BoundaryKind = iota
	StepBoundary
	SequenceStart
	SequenceEnd
)

// Boundary is a pair of adjacent segments on one fixture (or a virtual
// neighbor at the timeline's edges) plus the gap between them, if any.
type Boundary struct {
	Kind      BoundaryKind
	FixtureID string
	Left      *compiler.Segment // nil for SequenceStart
	Right     *compiler.Segment // nil for SequenceEnd
	GapMs     int64             // Right.T0Ms - Left.T1Ms, 0 for abutting segments
}

// gapTolerance is the threshold below which two segments are considered
// abutting rather than separated by a fillable gap.
const gapTolerance = int64(1)

// BuildFixtureBoundaries walks one fixture's segments (already sorted by
// T0Ms) and produces the ordered Boundary list: a SequenceStart before the
// first segment, a boundary between each adjacent pair, and a SequenceEnd
// after the last.
func BuildFixtureBoundaries(fixtureID string, segments []compiler.Segment, showStartMs, showEndMs int64) []Boundary {
	if len(segments) == 0 {
		return nil
	}
	sorted := make([]compiler.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T0Ms < sorted[j].T0Ms })

	var boundaries []Boundary

	first := sorted[0]
	if first.T0Ms-showStartMs > gapTolerance {
		boundaries = append(boundaries, Boundary{
			Kind: SequenceStart, FixtureID: fixtureID, Right: &sorted[0], GapMs: first.T0Ms - showStartMs,
		})
	}

	for i := 0; i+1 < len(sorted); i++ {
		left, right := &sorted[i], &sorted[i+1]
		gap := right.T0Ms - left.T1Ms
		kind := StepBoundary
		if left.SectionID != right.SectionID {
			kind = SectionBoundary
		}
		if gap < 0 {
			gap = 0
		}
		boundaries = append(boundaries, Boundary{Kind: kind, FixtureID: fixtureID, Left: left, Right: right, GapMs: gap})
	}

	last := sorted[len(sorted)-1]
	if showEndMs-last.T1Ms > gapTolerance {
		boundaries = append(boundaries, Boundary{
			Kind: SequenceEnd, FixtureID: fixtureID, Left: &sorted[len(sorted)-1], GapMs: showEndMs - last.T1Ms,
		})
	}

	return boundaries
}

// GroupByFixture splits a flat, already (fixture_id, t0_ms)-sorted segment
// slice (as produced by compiler.Compile) into per-fixture slices,
// preserving order.
func GroupByFixture(segments []compiler.Segment) map[string][]compiler.Segment {
	out := make(map[string][]compiler.Segment)
	for _, s := range segments {
		out[s.FixtureID] = append(out[s.FixtureID], s)
	}
	return out
}

// EdgeAnchor resolves a segment's pan/tilt DMX values at its own start (t=0)
// or end (t=1) edge, used as a gap-fill anchor.
func EdgeAnchor(seg *compiler.Segment, atEnd bool) (Anchor, error) {
	if seg == nil {
		return Anchor{}, nil
	}
	t := 0.0
	if atEnd {
		t = 1.0
	}
	pan, ok := seg.Channels[channels.Pan]
	if !ok {
		return Anchor{}, nil
	}
	tilt, ok := seg.Channels[channels.Tilt]
	if !ok {
		return Anchor{}, nil
	}
	panDMX, err := pan.Resolve(t, false)
	if err != nil {
		return Anchor{}, err
	}
	tiltDMX, err := tilt.Resolve(t, false)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{PanDMX: panDMX, TiltDMX: tiltDMX, Valid: true}, nil
}
