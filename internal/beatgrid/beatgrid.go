// Package beatgrid implements C1: the beat grid and time resolver. It
// converts between milliseconds, beats, bars, and symbolic time-refs against
// a tempo map. Both exported operations (Resolve and BarWindow) are pure
// functions of their inputs, matching the teacher's estimateBPM /
// scoreEdge style of reading a precomputed grid rather than recomputing
// tempo from scratch.
package beatgrid

import (
	"fmt"
	"log/slog"
)

// Grid is an immutable tempo map. Boundaries are strictly ascending
// millisecond offsets; bar_boundaries[0] == 0 and beat boundaries align with
// bar boundaries every BeatsPerBar entries.
type Grid struct {
	TempoBPM       float64
	BeatsPerBar    int
	DurationMs     int64
	BarBoundaries  []int64
	BeatBoundaries []int64
	EighthBounds   []int64
	SixteenthBound []int64
	// Confidence indicates whether this grid was detected from audio
	// analysis (closer to 1.0) or synthesized from a constant BPM guess
	// (closer to 0.0). The compiler never acts on it directly, but the
	// pipeline surfaces a warning when it is low (see internal/report).
	Confidence float64
}

// NewConstantBPM synthesizes a grid from a fixed tempo, used when no audio
// analysis is available (the external collaborator boundary, §6.2).
func NewConstantBPM(bpm float64, beatsPerBar int, durationMs int64) *Grid {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	msPerBeat := 60000.0 / bpm
	msPerBar := msPerBeat * float64(beatsPerBar)

	var bars, beats, eighths, sixteenths []int64
	for ms := 0.0; ms < float64(durationMs); ms += msPerBar {
		bars = append(bars, int64(ms))
	}
	for ms := 0.0; ms < float64(durationMs); ms += msPerBeat {
		beats = append(beats, int64(ms))
	}
	for ms := 0.0; ms < float64(durationMs); ms += msPerBeat / 2 {
		eighths = append(eighths, int64(ms))
	}
	for ms := 0.0; ms < float64(durationMs); ms += msPerBeat / 4 {
		sixteenths = append(sixteenths, int64(ms))
	}

	return &Grid{
		TempoBPM:       bpm,
		BeatsPerBar:    beatsPerBar,
		DurationMs:     durationMs,
		BarBoundaries:  bars,
		BeatBoundaries: beats,
		EighthBounds:   eighths,
		SixteenthBound: sixteenths,
		Confidence:     0.0,
	}
}

// TotalBars returns the number of bar boundaries known to the grid.
func (g *Grid) TotalBars() int { return len(g.BarBoundaries) }

// MsPerBeatAt returns the beat duration in ms around 1-indexed bar b, read
// from the grid rather than recomputed from tempo, so tempo-variable grids
// are handled correctly.
func (g *Grid) MsPerBeatAt(bar int) float64 {
	idx := (bar - 1) * g.BeatsPerBar
	if idx < 0 {
		idx = 0
	}
	if idx+1 >= len(g.BeatBoundaries) {
		if len(g.BeatBoundaries) >= 2 {
			n := len(g.BeatBoundaries)
			return float64(g.BeatBoundaries[n-1] - g.BeatBoundaries[n-2])
		}
		return 60000.0 / g.TempoBPM
	}
	return float64(g.BeatBoundaries[idx+1] - g.BeatBoundaries[idx])
}

// SectionWindow maps a section_id to its resolved (start_ms, end_ms) range.
type SectionWindow struct {
	StartMs int64
	EndMs   int64
}

// TimeRef is a tagged union of AbsoluteMs | BarBeat | Symbolic.
type TimeRef struct {
	kind         timeRefKind
	absoluteMs   int64
	bar          int
	beat         int
	subdivision  int // 0 = none, otherwise 8 or 16
	sectionID    string
	endOfSection bool
}

type timeRefKind int

const (
	kindAbsoluteMs timeRefKind = iota
	kindBarBeat
	kindSymbolic
)

func AbsoluteMs(ms int64) TimeRef {
	return TimeRef{kind: kindAbsoluteMs, absoluteMs: ms}
}

// BarBeat builds a 1-indexed bar/beat time-ref, with an optional subdivision
// (8 or 16) for eighth/sixteenth-note offsets within the beat.
func BarBeat(bar, beat int, subdivision ...int) TimeRef {
	sub := 0
	if len(subdivision) > 0 {
		sub = subdivision[0]
	}
	return TimeRef{kind: kindBarBeat, bar: bar, beat: beat, subdivision: sub}
}

func Symbolic(sectionID string, endOfSection bool) TimeRef {
	return TimeRef{kind: kindSymbolic, sectionID: sectionID, endOfSection: endOfSection}
}

// Resolve converts a TimeRef to absolute milliseconds against grid and the
// section_id -> window map. Out-of-range bar/beat indices clamp to the
// nearest boundary and emit a warning rather than failing.
func Resolve(ref TimeRef, grid *Grid, sections map[string]SectionWindow, logger *slog.Logger) (int64, error) {
	switch ref.kind {
	case kindAbsoluteMs:
		return ref.absoluteMs, nil

	case kindBarBeat:
		return resolveBarBeat(ref, grid, logger), nil

	case kindSymbolic:
		win, ok := sections[ref.sectionID]
		if !ok {
			return 0, fmt.Errorf("unknown section_id %q", ref.sectionID)
		}
		if ref.endOfSection {
			return win.EndMs, nil
		}
		return win.StartMs, nil

	default:
		return 0, fmt.Errorf("unrecognized TimeRef kind")
	}
}

func resolveBarBeat(ref TimeRef, grid *Grid, logger *slog.Logger) int64 {
	bar := ref.bar
	beat := ref.beat

	if bar < 1 {
		if logger != nil {
			logger.Warn("time resolution: bar index below range, clamping", "bar", bar)
		}
		bar = 1
	}
	if bar > len(grid.BarBoundaries) {
		if logger != nil {
			logger.Warn("time resolution: bar index above range, clamping", "bar", bar, "total_bars", len(grid.BarBoundaries))
		}
		bar = len(grid.BarBoundaries)
	}

	barStart := grid.BarBoundaries[bar-1]
	msPerBeat := grid.MsPerBeatAt(bar)

	if beat < 1 {
		if logger != nil {
			logger.Warn("time resolution: beat index below range, clamping", "beat", beat)
		}
		beat = 1
	}
	if beat > grid.BeatsPerBar {
		if logger != nil {
			logger.Warn("time resolution: beat index above range, clamping", "beat", beat, "beats_per_bar", grid.BeatsPerBar)
		}
		beat = grid.BeatsPerBar
	}

	offsetMs := float64(beat-1) * msPerBeat
	switch ref.subdivision {
	case 8:
		offsetMs += msPerBeat / 2
	case 16:
		offsetMs += msPerBeat / 4
	}

	return barStart + int64(offsetMs)
}

// BarWindow resolves a 1-indexed, inclusive start_bar..end_bar range to
// (start_ms, end_ms). end_ms is exclusive: when end_bar < total_bars the
// window closes where bar end_bar+1 begins (bar_boundaries[end_bar]);
// otherwise it closes at the grid's duration.
func BarWindow(startBar, endBar int, grid *Grid) (int64, int64, error) {
	total := grid.TotalBars()
	if startBar < 1 || startBar > total {
		return 0, 0, fmt.Errorf("start_bar %d out of range [1,%d]", startBar, total)
	}
	if endBar < startBar {
		return 0, 0, fmt.Errorf("end_bar %d precedes start_bar %d", endBar, startBar)
	}

	startMs := grid.BarBoundaries[startBar-1]
	var endMs int64
	if endBar < total {
		endMs = grid.BarBoundaries[endBar]
	} else {
		endMs = grid.DurationMs
	}
	return startMs, endMs, nil
}

// ValidateGrid checks the grid's core invariants: strictly ascending
// boundaries, bar[0] == 0, and beat/bar alignment every BeatsPerBar entries.
func ValidateGrid(g *Grid) error {
	if len(g.BarBoundaries) == 0 {
		return fmt.Errorf("beat grid has no bar boundaries")
	}
	if g.BarBoundaries[0] != 0 {
		return fmt.Errorf("beat grid bar_boundaries[0] must be 0, got %d", g.BarBoundaries[0])
	}
	for i := 1; i < len(g.BarBoundaries); i++ {
		if g.BarBoundaries[i] <= g.BarBoundaries[i-1] {
			return fmt.Errorf("beat grid bar_boundaries must be strictly ascending")
		}
	}
	for i := 1; i < len(g.BeatBoundaries); i++ {
		if g.BeatBoundaries[i] <= g.BeatBoundaries[i-1] {
			return fmt.Errorf("beat grid beat_boundaries must be strictly ascending")
		}
	}
	for k, barMs := range g.BarBoundaries {
		idx := k * g.BeatsPerBar
		if idx >= len(g.BeatBoundaries) {
			break
		}
		if g.BeatBoundaries[idx] != barMs {
			return fmt.Errorf("beat grid misaligned at bar %d: beat_boundaries[%d]=%d != bar_boundaries[%d]=%d",
				k+1, idx, g.BeatBoundaries[idx], k, barMs)
		}
	}
	return nil
}
