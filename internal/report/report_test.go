package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartomix/twinklr/internal/channels"
	"github.com/cartomix/twinklr/internal/compiler"
)

func segment(sectionID, stepID string, ch channels.Value) compiler.Segment {
	return compiler.Segment{
		SectionID: sectionID,
		StepID:    stepID,
		FixtureID: "MH1",
		Channels:  map[channels.Name]channels.Value{channels.Pan: ch},
	}
}

func TestGenerateCountsClampAndSubstitutionEvents(t *testing.T) {
	segments := []compiler.Segment{
		segment("intro", "s1", channels.NewStatic(channels.Pan, 128, 0, 255)),
		segment("intro", "s1", channels.NewStatic(channels.Pan, 255, 0, 255)),
		segment("intro", "sequence_start", channels.NewStatic(channels.Pan, 128, 0, 255)),
	}

	r := Generate("song.mp3", segments, 1.0, DefaultThresholds())
	assert.Equal(t, 3, r.TotalSegments)
	assert.Equal(t, 1, r.ClampEvents)
	assert.Equal(t, 1, r.SubstitutionEvents)
	require.Len(t, r.Sections, 1)
	assert.Equal(t, "intro", r.Sections[0].SectionID)
}

func TestGenerateWarnsAboveThreshold(t *testing.T) {
	var segments []compiler.Segment
	for i := 0; i < 10; i++ {
		segments = append(segments, segment("verse", "transition", channels.NewStatic(channels.Pan, 128, 0, 255)))
	}

	r := Generate("song.mp3", segments, 1.0, DefaultThresholds())
	assert.False(t, r.OverallCompliant)
	assert.NotEmpty(t, r.Warnings)
}

func TestGenerateCompliantWithNoSignals(t *testing.T) {
	segments := []compiler.Segment{
		segment("intro", "s1", channels.NewStatic(channels.Pan, 128, 0, 255)),
	}
	r := Generate("song.mp3", segments, 1.0, DefaultThresholds())
	assert.True(t, r.OverallCompliant)
	assert.Empty(t, r.Warnings)
}

func TestWriteJSONProducesReadableFile(t *testing.T) {
	r := Generate("song.mp3", nil, 1.0, DefaultThresholds())
	path := filepath.Join(t.TempDir(), "out.compliance.json")
	require.NoError(t, WriteJSON(r, path))
}
