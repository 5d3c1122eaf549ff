package jobfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalJob() *Job {
	return &Job{
		Rig: rigDTO{
			ID: "test-rig",
			Fixtures: []fixtureDTO{
				{ID: "MH1", Universe: 1, StartAddress: 1},
			},
		},
		Templates: []templateDTO{
			{
				TemplateID: "fan_pulse",
				Steps: []stepDTO{
					{StepID: "s1", MovementID: "sweep_lr", DimmerID: "pulse", PeriodBars: 2, Intensity: "BOLD", DurationBars: 4},
				},
			},
		},
		Plan: planDTO{
			Sections: []sectionDTO{
				{Name: "intro", StartBar: 0, EndBar: 4, TemplateID: "fan_pulse", Target: targetDTO{Kind: "fixture", FixtureID: "MH1"}},
			},
		},
		Song: songDTO{MediaFile: "song.mp3"},
	}
}

func TestResolveCarriesPeriodBarsAndIntensityIntoTemplate(t *testing.T) {
	resolved, err := minimalJob().Resolve()
	require.NoError(t, err)

	tmpl, err := resolved.Templates.Get("fan_pulse")
	require.NoError(t, err)
	require.Len(t, tmpl.Steps, 1)
	assert.Equal(t, 2.0, tmpl.Steps[0].PeriodBars)
	assert.Equal(t, "BOLD", tmpl.Steps[0].Intensity)
}

func TestResolveWithoutMacroPlanLeavesItNil(t *testing.T) {
	resolved, err := minimalJob().Resolve()
	require.NoError(t, err)
	assert.Nil(t, resolved.MacroPlan)
}

func TestResolveParsesMacroPlan(t *testing.T) {
	job := minimalJob()
	job.MacroPlan = &macroPlanDTO{
		Story:         "build-and-release",
		PaletteID:     "core.magma",
		SectionEnergy: map[string]float64{"intro": 0.3},
	}
	resolved, err := job.Resolve()
	require.NoError(t, err)
	require.NotNil(t, resolved.MacroPlan)
	assert.Equal(t, "core.magma", resolved.MacroPlan.PaletteID)
	assert.Equal(t, 0.3, resolved.MacroPlan.EnergyFor("intro"))
}

func TestResolveRejectsUnknownTargetKind(t *testing.T) {
	job := minimalJob()
	job.Plan.Sections[0].Target = targetDTO{Kind: "bogus"}
	_, err := job.Resolve()
	require.Error(t, err)
}
