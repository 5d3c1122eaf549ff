// Package plan implements the ChoreographyPlan data model (§3.2): an
// ordered list of Sections covering a song, plus the optional upstream
// MacroPlan and AudioProfile inputs. Validation style (explicit Validate
// methods returning wrapped errors, sorted-range-coverage checks) is
// grounded on the teacher's internal/planner/planner.go and
// internal/httpapi/httpapi.go request validation, generalized from
// track-selection constraints to bar-range coverage constraints.
package plan

import (
	"fmt"
	"sort"

	"github.com/cartomix/twinklr/internal/rig"
)

// Section names a template, an optional preset, a bar range, and a target
// for one stretch of the song.
type Section struct {
	Name       string
	StartBar   int
	EndBar     int // exclusive
	TemplateID string
	PresetID   string // empty means no preset overlay
	Target     rig.Target
	Modifiers  map[string]string
}

func (s Section) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("section: name is required")
	}
	if s.TemplateID == "" {
		return fmt.Errorf("section %q: template_id is required", s.Name)
	}
	if s.EndBar <= s.StartBar {
		return fmt.Errorf("section %q: end_bar %d must be greater than start_bar %d", s.Name, s.EndBar, s.StartBar)
	}
	return nil
}

// ChoreographyPlan is the top-level compiler input: an ordered, validated
// list of Sections plus a free-text strategy label carried through to
// reporting.
type ChoreographyPlan struct {
	Sections       []Section
	OverallStrategy string
}

// Validate enforces §3.2's coverage invariant: sections sorted by
// start_bar, no overlaps, no gaps between sections (gaps at the very start
// or end of the song are allowed, since they are outside any section's
// range by construction).
func (p ChoreographyPlan) Validate() error {
	if len(p.Sections) == 0 {
		return fmt.Errorf("choreography plan: at least one section is required")
	}

	for _, s := range p.Sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	sorted := make([]Section, len(p.Sections))
	copy(sorted, p.Sections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartBar < sorted[j].StartBar })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.StartBar < prev.EndBar {
			return fmt.Errorf("sections %q and %q overlap: %q ends at bar %d but %q starts at bar %d",
				prev.Name, cur.Name, prev.Name, prev.EndBar, cur.Name, cur.StartBar)
		}
		if cur.StartBar > prev.EndBar {
			return fmt.Errorf("gap between sections %q (ends bar %d) and %q (starts bar %d): sections must tile contiguously",
				prev.Name, prev.EndBar, cur.Name, cur.StartBar)
		}
	}

	return nil
}

// Sorted returns the plan's sections ordered by start_bar, the order the
// pipeline walks them in.
func (p ChoreographyPlan) Sorted() []Section {
	out := make([]Section, len(p.Sections))
	copy(out, p.Sections)
	sort.Slice(out, func(i, j int) bool { return out[i].StartBar < out[j].StartBar })
	return out
}

// MacroPlan is an optional upstream input carrying overall story, palette,
// and per-section energy/style hints. Its absence must never fail the
// pipeline; components that read it fall back to defaults.
type MacroPlan struct {
	Story          string
	PaletteID      string
	SectionEnergy  map[string]float64 // section name -> energy in [0,1]
	SectionStyle   map[string]string  // section name -> style hint
}

// EnergyFor returns the energy hint for a section, defaulting to 0.5
// (neutral) when no MacroPlan or no entry for that section is present.
func (m *MacroPlan) EnergyFor(sectionName string) float64 {
	if m == nil || m.SectionEnergy == nil {
		return 0.5
	}
	if e, ok := m.SectionEnergy[sectionName]; ok {
		return e
	}
	return 0.5
}

// StyleFor returns the style hint for a section, defaulting to "" (no
// preference) when absent.
func (m *MacroPlan) StyleFor(sectionName string) string {
	if m == nil || m.SectionStyle == nil {
		return ""
	}
	return m.SectionStyle[sectionName]
}

// AudioProfile carries optional audio-analysis metadata beyond the raw
// BeatGrid — loudness/energy curves and section-level descriptors supplied
// by the external audio-analysis collaborator (§6). Concrete shape
// grounded on original_source's agents/audio/profile/models.py.
type AudioProfile struct {
	OverallEnergy   float64
	SectionEnergy   map[string]float64 // section name -> energy in [0,1]
	DominantKey     string
	EstimatedGenre  string
}

// EnergyFor mirrors MacroPlan.EnergyFor's nil-safety: an absent
// AudioProfile must never fail the pipeline.
func (a *AudioProfile) EnergyFor(sectionName string) float64 {
	if a == nil || a.SectionEnergy == nil {
		return a.overallOrNeutral()
	}
	if e, ok := a.SectionEnergy[sectionName]; ok {
		return e
	}
	return a.overallOrNeutral()
}

func (a *AudioProfile) overallOrNeutral() float64 {
	if a == nil {
		return 0.5
	}
	if a.OverallEnergy == 0 {
		return 0.5
	}
	return a.OverallEnergy
}
