// Package report implements the post-compile compliance pass: a
// structural sweep over the rendered FixtureSegments counting boundary
// clamp saturation and synthesized (as opposed to template-authored)
// curve events, warning when either exceeds a configurable ratio of the
// total segment count. Grounded on
// original_source/.../reporting/evaluation/compliance.py's
// verify_template_compliance (per-item checks accumulated into an issues
// list plus an overall pass/fail bool), adapted from that function's
// curve/modifier/geometry checks to the concrete signals this port's
// Segment/ChannelValue model actually carries.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/compiler"
)

// synthesizedStepIDs are step_ids pipeline.fillBoundaries assigns to
// segments it synthesizes itself rather than ones compiler.Compile
// produced from a template's declared steps - i.e. places where a curve
// was substituted for the lack of one explicitly authored by the
// template/preset.
var synthesizedStepIDs = map[string]bool{
	"sequence_start": true,
	"sequence_end":   true,
	"gap_fill":        true,
	"gap_ease_out":    true,
	"gap_dip":         true,
	"gap_ease_in":     true,
	"transition":      true,
}

// SectionCompliance is one section's share of the overall counts.
type SectionCompliance struct {
	SectionID          string `json:"section_id"`
	Segments           int    `json:"segments"`
	ClampEvents        int    `json:"clamp_events"`
	SubstitutionEvents int    `json:"substitution_events"`
}

// ComplianceReport is the artifact bundle's sidecar: a per-section and
// overall tally of structural warning signals from one render.
type ComplianceReport struct {
	MediaFile          string              `json:"media_file"`
	TotalSegments      int                 `json:"total_segments"`
	ClampEvents        int                 `json:"clamp_events"`
	SubstitutionEvents int                 `json:"substitution_events"`
	Sections           []SectionCompliance `json:"sections"`
	Warnings           []string            `json:"warnings,omitempty"`
	OverallCompliant   bool                `json:"overall_compliant"`
}

// Thresholds configures the fraction of segments that may trip a signal
// before Generate appends a warning. Mirrors internal/config.AppConfig's
// optional-tunable-with-documented-default shape.
type Thresholds struct {
	MaxClampRatio        float64
	MaxSubstitutionRatio float64
	MinGridConfidence    float64
}

// DefaultThresholds matches the original's informal "flag if this looks
// like it's fighting the rig" guidance: more than 15% of segments
// saturating a clamp, or more than a quarter of segments being
// synthesized filler rather than template-authored content, is worth a
// human look. MinGridConfidence of 0.3 flags grids synthesized from a
// constant-BPM guess rather than detected from audio (beatgrid.Grid's
// Confidence field).
func DefaultThresholds() Thresholds {
	return Thresholds{MaxClampRatio: 0.15, MaxSubstitutionRatio: 0.25, MinGridConfidence: 0.3}
}

// Generate runs the compliance pass over a completed render's segments.
// gridConfidence is the beatgrid.Grid.Confidence the render compiled
// against, surfaced here so a low-confidence (synthesized) grid produces
// a warning without internal/report needing to import internal/beatgrid
// for a single float.
func Generate(mediaFile string, segments []compiler.Segment, gridConfidence float64, thresholds Thresholds) ComplianceReport {
	bySection := make(map[string]*SectionCompliance)
	order := make([]string, 0)

	total, clamps, substitutions := 0, 0, 0

	for _, seg := range segments {
		sc, ok := bySection[seg.SectionID]
		if !ok {
			sc = &SectionCompliance{SectionID: seg.SectionID}
			bySection[seg.SectionID] = sc
			order = append(order, seg.SectionID)
		}

		sc.Segments++
		total++

		segClamped := segmentClamped(seg)
		if segClamped {
			sc.ClampEvents++
			clamps++
		}
		if synthesizedStepIDs[seg.StepID] {
			sc.SubstitutionEvents++
			substitutions++
		}
	}

	sort.Strings(order)
	sections := make([]SectionCompliance, 0, len(order))
	for _, id := range order {
		sections = append(sections, *bySection[id])
	}

	var warnings []string
	if total > 0 {
		if ratio := float64(clamps) / float64(total); ratio > thresholds.MaxClampRatio {
			warnings = append(warnings, fmt.Sprintf(
				"%d/%d segments (%.0f%%) saturate a channel clamp, above the %.0f%% threshold - fixtures may be fighting their mechanical range",
				clamps, total, ratio*100, thresholds.MaxClampRatio*100))
		}
		if ratio := float64(substitutions) / float64(total); ratio > thresholds.MaxSubstitutionRatio {
			warnings = append(warnings, fmt.Sprintf(
				"%d/%d segments (%.0f%%) are synthesized filler rather than template-authored content, above the %.0f%% threshold",
				substitutions, total, ratio*100, thresholds.MaxSubstitutionRatio*100))
		}
	}
	if gridConfidence < thresholds.MinGridConfidence {
		warnings = append(warnings, fmt.Sprintf(
			"compiled against a synthesized grid (confidence %.2f, below %.2f) - section boundaries may not match the actual track",
			gridConfidence, thresholds.MinGridConfidence))
	}

	return ComplianceReport{
		MediaFile:          mediaFile,
		TotalSegments:      total,
		ClampEvents:        clamps,
		SubstitutionEvents: substitutions,
		Sections:           sections,
		Warnings:           warnings,
		OverallCompliant:   len(warnings) == 0,
	}
}

// segmentClamped reports whether any of a segment's channel values
// saturate at their clamp boundary at either edge of the segment's
// lifetime (t=0 or t=1), for static values the one boundary they have.
func segmentClamped(seg compiler.Segment) bool {
	for _, name := range channels.AllNames {
		v, ok := seg.Channels[name]
		if !ok {
			continue
		}
		if v.ClampMax <= v.ClampMin {
			continue
		}
		if !v.HasCurve {
			if v.StaticDMX <= v.ClampMin || v.StaticDMX >= v.ClampMax {
				return true
			}
			continue
		}
		for _, t := range []float64{0, 1} {
			dmx, err := v.Resolve(t, false)
			if err != nil {
				continue
			}
			if dmx <= v.ClampMin || dmx >= v.ClampMax {
				return true
			}
		}
	}
	return false
}

// WriteJSON writes the report as the artifact bundle's
// "<base>.compliance.json" sidecar.
func WriteJSON(r ComplianceReport, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
