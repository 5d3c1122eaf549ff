// Package jobfile is the JSON-on-disk shape of a single render invocation:
// rig, split declarations, template library, presets, and the
// choreography plan itself, bundled into one file so cmd/twinklr-render
// has a single --config input. The domain packages (rig, templates, plan)
// intentionally carry no JSON tags of their own, matching their in-memory,
// programmatically-constructed use in tests; this package is the
// boundary that maps a tagged wire shape onto them, following the
// teacher's internal/config.AppConfig JSON-loading style.
package jobfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cartomix/twinklr/internal/pipeline"
	"github.com/cartomix/twinklr/internal/plan"
	"github.com/cartomix/twinklr/internal/rig"
	"github.com/cartomix/twinklr/internal/templates"
)

type calibrationDTO struct {
	PanMinDMX        uint8   `json:"pan_min_dmx"`
	PanMaxDMX        uint8   `json:"pan_max_dmx"`
	TiltMinDMX       uint8   `json:"tilt_min_dmx"`
	TiltMaxDMX       uint8   `json:"tilt_max_dmx"`
	PanInverted      bool    `json:"pan_inverted"`
	TiltInverted     bool    `json:"tilt_inverted"`
	DimmerFloorDMX   uint8   `json:"dimmer_floor_dmx"`
	DimmerCeilingDMX uint8   `json:"dimmer_ceiling_dmx"`
	PanRangeDeg      float64 `json:"pan_range_deg"`
	TiltRangeDeg     float64 `json:"tilt_range_deg"`
}

func (c calibrationDTO) orDefault() rig.Calibration {
	if c == (calibrationDTO{}) {
		return rig.DefaultCalibration()
	}
	return rig.Calibration{
		PanMinDMX: c.PanMinDMX, PanMaxDMX: c.PanMaxDMX,
		TiltMinDMX: c.TiltMinDMX, TiltMaxDMX: c.TiltMaxDMX,
		PanInverted: c.PanInverted, TiltInverted: c.TiltInverted,
		DimmerFloorDMX: c.DimmerFloorDMX, DimmerCeilingDMX: c.DimmerCeilingDMX,
		PanRangeDeg: c.PanRangeDeg, TiltRangeDeg: c.TiltRangeDeg,
	}
}

type fixtureDTO struct {
	ID           string         `json:"id"`
	Universe     int            `json:"universe"`
	StartAddress int            `json:"start_address"`
	Role         string         `json:"role,omitempty"`
	Calibration  calibrationDTO `json:"calibration,omitempty"`
}

type groupDTO struct {
	ID         string   `json:"id"`
	FixtureIDs []string `json:"fixture_ids"`
	Order      string   `json:"order,omitempty"`
}

type splitDTO struct {
	GroupID string              `json:"group_id"`
	Splits  map[string][]string `json:"splits"`
}

type rigDTO struct {
	ID       string       `json:"id"`
	Fixtures []fixtureDTO `json:"fixtures"`
	Groups   []groupDTO   `json:"groups"`
}

type transitionDTO struct {
	DurationBars float64 `json:"duration_bars"`
}

type stepDTO struct {
	StepID          string         `json:"step_id"`
	MovementID      string         `json:"movement_id"`
	GeometryID      string         `json:"geometry_id,omitempty"`
	DimmerID        string         `json:"dimmer_id"`
	PaletteID       string         `json:"palette_id,omitempty"`
	PeriodBars      float64        `json:"period_bars,omitempty"`
	Intensity       string         `json:"intensity,omitempty"`
	DurationBars    float64        `json:"duration_bars"`
	EntryTransition *transitionDTO `json:"entry_transition,omitempty"`
	ExitTransition  *transitionDTO `json:"exit_transition,omitempty"`
}

type templateDTO struct {
	TemplateID string    `json:"template_id"`
	Name       string    `json:"name,omitempty"`
	Steps      []stepDTO `json:"steps"`
}

type stepOverrideDTO struct {
	StepID       string  `json:"step_id"`
	MovementID   string  `json:"movement_id,omitempty"`
	GeometryID   string  `json:"geometry_id,omitempty"`
	DimmerID     string  `json:"dimmer_id,omitempty"`
	PaletteID    string  `json:"palette_id,omitempty"`
	PeriodBars   float64 `json:"period_bars,omitempty"`
	Intensity    string  `json:"intensity,omitempty"`
	DurationBars float64 `json:"duration_bars,omitempty"`
}

type presetDTO struct {
	PresetID  string            `json:"preset_id"`
	Overrides []stepOverrideDTO `json:"overrides,omitempty"`
}

type targetDTO struct {
	Kind         string `json:"kind"` // group | zone | split | fixture
	GroupID      string `json:"group_id,omitempty"`
	ZoneID       string `json:"zone_id,omitempty"`
	FixtureID    string `json:"fixture_id,omitempty"`
	SplitGroupID string `json:"split_group_id,omitempty"`
	SplitName    string `json:"split_name,omitempty"`
}

func (t targetDTO) toTarget() (rig.Target, error) {
	switch t.Kind {
	case "group":
		return rig.GroupTarget(t.GroupID), nil
	case "fixture":
		return rig.FixtureTarget(t.FixtureID), nil
	case "split":
		return rig.SplitTarget(t.SplitGroupID, t.SplitName), nil
	case "zone":
		return rig.Target{Kind: rig.TargetZone, ZoneID: t.ZoneID}, nil
	default:
		return rig.Target{}, fmt.Errorf("jobfile: unknown target kind %q", t.Kind)
	}
}

type sectionDTO struct {
	Name       string            `json:"name"`
	StartBar   int               `json:"start_bar"`
	EndBar     int               `json:"end_bar"`
	TemplateID string            `json:"template_id"`
	PresetID   string            `json:"preset_id,omitempty"`
	Target     targetDTO         `json:"target"`
	Modifiers  map[string]string `json:"modifiers,omitempty"`
}

type planDTO struct {
	Sections        []sectionDTO `json:"sections"`
	OverallStrategy string       `json:"overall_strategy,omitempty"`
}

type songDTO struct {
	MediaFile string `json:"media_file"`
	Song      string `json:"song,omitempty"`
	Artist    string `json:"artist,omitempty"`
}

// macroPlanDTO is the optional upstream story/palette/energy input (§3.2's
// MacroPlan); its absence from the job file must never fail Resolve.
type macroPlanDTO struct {
	Story         string             `json:"story,omitempty"`
	PaletteID     string             `json:"palette_id,omitempty"`
	SectionEnergy map[string]float64 `json:"section_energy,omitempty"`
	SectionStyle  map[string]string  `json:"section_style,omitempty"`
}

// Job is the full contents of a --config render job file.
type Job struct {
	Rig       rigDTO                 `json:"rig"`
	Splits    []splitDTO             `json:"splits,omitempty"`
	Templates []templateDTO          `json:"templates"`
	Presets   []presetDTO            `json:"presets,omitempty"`
	Plan      planDTO                `json:"plan"`
	Song      songDTO                `json:"song"`
	MacroPlan *macroPlanDTO          `json:"macro_plan,omitempty"`
}

// Load reads and parses a job file; it does not yet build the domain
// objects, since those require cross-validation (Resolved below).
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jobfile: read %s: %w", path, err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("jobfile: parse %s: %w", path, err)
	}
	return &j, nil
}

// Resolved is a job file's contents converted into the domain types the
// pipeline operates on.
type Resolved struct {
	Rig       *rig.Profile
	Splits    map[string]rig.SplitDefinition
	Templates *templates.Registry
	Presets   map[string]*templates.Preset
	Plan      plan.ChoreographyPlan
	Song      pipeline.SongMeta
	MacroPlan *plan.MacroPlan // nil when the job file declares none
}

// Resolve converts the job file's tagged DTOs into domain objects,
// registering templates and validating the rig and split declarations.
func (j *Job) Resolve() (*Resolved, error) {
	fixtures := make([]rig.Fixture, len(j.Rig.Fixtures))
	for i, f := range j.Rig.Fixtures {
		fixtures[i] = rig.Fixture{
			ID:           f.ID,
			Universe:     f.Universe,
			StartAddress: f.StartAddress,
			Role:         f.Role,
			Calibration:  f.Calibration.orDefault(),
		}
	}
	groups := make([]rig.Group, len(j.Rig.Groups))
	for i, g := range j.Rig.Groups {
		order := rig.LeftToRight
		if g.Order != "" {
			order = rig.ChaseOrder(g.Order)
		}
		groups[i] = rig.Group{ID: g.ID, FixtureIDs: g.FixtureIDs, Order: order}
	}
	rigProfile, err := rig.NewProfile(j.Rig.ID, fixtures, groups)
	if err != nil {
		return nil, err
	}

	splits := make(map[string]rig.SplitDefinition, len(j.Splits))
	for _, s := range j.Splits {
		def := rig.SplitDefinition{GroupID: s.GroupID, Splits: s.Splits}
		if err := def.Validate(rigProfile); err != nil {
			return nil, err
		}
		splits[s.GroupID] = def
	}

	tmplRegistry := templates.NewRegistry()
	for _, t := range j.Templates {
		steps := make([]templates.PatternStep, len(t.Steps))
		for i, s := range t.Steps {
			steps[i] = templates.PatternStep{
				StepID:     s.StepID,
				MovementID: s.MovementID,
				GeometryID: s.GeometryID,
				DimmerID:   s.DimmerID,
				PaletteID:  s.PaletteID,
				PeriodBars: s.PeriodBars,
				Intensity:  s.Intensity,
				Timing:     templates.Timing{DurationBars: s.DurationBars},
			}
			if s.EntryTransition != nil {
				steps[i].EntryTransition = &templates.Transition{DurationBars: s.EntryTransition.DurationBars}
			}
			if s.ExitTransition != nil {
				steps[i].ExitTransition = &templates.Transition{DurationBars: s.ExitTransition.DurationBars}
			}
		}
		if err := tmplRegistry.Register(templates.Template{
			TemplateID: t.TemplateID,
			Name:       t.Name,
			Steps:      steps,
		}); err != nil {
			return nil, err
		}
	}

	presets := make(map[string]*templates.Preset, len(j.Presets))
	for _, p := range j.Presets {
		overrides := make([]templates.StepOverride, len(p.Overrides))
		for i, o := range p.Overrides {
			overrides[i] = templates.StepOverride{
				StepID:       o.StepID,
				MovementID:   o.MovementID,
				GeometryID:   o.GeometryID,
				DimmerID:     o.DimmerID,
				PaletteID:    o.PaletteID,
				PeriodBars:   o.PeriodBars,
				Intensity:    o.Intensity,
				DurationBars: o.DurationBars,
			}
		}
		preset := templates.Preset{PresetID: p.PresetID, Overrides: overrides}
		presets[p.PresetID] = &preset
	}

	sections := make([]plan.Section, len(j.Plan.Sections))
	for i, s := range j.Plan.Sections {
		target, err := s.Target.toTarget()
		if err != nil {
			return nil, err
		}
		sections[i] = plan.Section{
			Name:       s.Name,
			StartBar:   s.StartBar,
			EndBar:     s.EndBar,
			TemplateID: s.TemplateID,
			PresetID:   s.PresetID,
			Target:     target,
			Modifiers:  s.Modifiers,
		}
	}
	choreography := plan.ChoreographyPlan{Sections: sections, OverallStrategy: j.Plan.OverallStrategy}
	if err := choreography.Validate(); err != nil {
		return nil, err
	}

	var macro *plan.MacroPlan
	if j.MacroPlan != nil {
		macro = &plan.MacroPlan{
			Story:         j.MacroPlan.Story,
			PaletteID:     j.MacroPlan.PaletteID,
			SectionEnergy: j.MacroPlan.SectionEnergy,
			SectionStyle:  j.MacroPlan.SectionStyle,
		}
	}

	return &Resolved{
		Rig:       rigProfile,
		Splits:    splits,
		Templates: tmplRegistry,
		Presets:   presets,
		Plan:      choreography,
		Song: pipeline.SongMeta{
			MediaFile: j.Song.MediaFile,
			Song:      j.Song.Song,
			Artist:    j.Song.Artist,
		},
		MacroPlan: macro,
	}, nil
}
