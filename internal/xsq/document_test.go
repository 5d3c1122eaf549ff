package xsq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Head: Head{Version: "2024.1", MediaFile: "song.mp3", SequenceDuration: "10.500"},
		EffectDB: EffectDBXML{Effects: []string{
			"B_CHOICE_BufferStyle=Per Model Default,E_SLIDER_DMX1=200",
		}},
		DisplayElements: DisplayElements{Elements: []DisplayElement{
			{Type: "model", Name: "Dmx MH1"},
		}},
		ElementEffects: ElementEffects{Elements: []EffectsElement{
			{
				Type: "model", Name: "Dmx MH1",
				Layers: []EffectLayer{{Effects: []Effect{
					{HasRef: true, Ref: 0, Name: "DMX", StartTimeMs: 0, EndTimeMs: 1000},
				}}},
			},
		}},
	}
}

func TestWriteThenParseRoundTrips(t *testing.T) {
	doc := sampleDocument()
	path := filepath.Join(t.TempDir(), "out.xsq")
	require.NoError(t, Write(doc, path))

	parsed, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Head.Version, parsed.Head.Version)
	assert.Equal(t, doc.Head.MediaFile, parsed.Head.MediaFile)
	assert.Equal(t, doc.Head.SequenceDuration, parsed.Head.SequenceDuration)
	require.Len(t, parsed.ElementEffects.Elements, 1)
	require.Len(t, parsed.ElementEffects.Elements[0].Layers[0].Effects, 1)
	eff := parsed.ElementEffects.Elements[0].Layers[0].Effects[0]
	assert.True(t, eff.HasRef)
	assert.Equal(t, 0, eff.Ref)
	assert.Equal(t, int64(1000), eff.EndTimeMs)
}

func TestEffectPreservesUnknownAttributesForRoundTrip(t *testing.T) {
	doc := sampleDocument()
	doc.ElementEffects.Elements[0].Layers[0].Effects[0].Parameters = map[string]string{"palette1": "custom"}
	path := filepath.Join(t.TempDir(), "out.xsq")
	require.NoError(t, Write(doc, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `palette1="custom"`)

	parsed, err := Parse(path)
	require.NoError(t, err)
	eff := parsed.ElementEffects.Elements[0].Layers[0].Effects[0]
	assert.Equal(t, "custom", eff.Parameters["palette1"])
}

func TestValidateRejectsMissingVersion(t *testing.T) {
	doc := Document{Head: Head{MediaFile: "x.mp3", SequenceDuration: "1.000"}}
	require.Error(t, doc.Validate())
}

func TestWriteRejectsInvalidDocument(t *testing.T) {
	err := Write(Document{}, filepath.Join(t.TempDir(), "bad.xsq"))
	require.Error(t, err)
}

func TestParseRejectsMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nonexistent.xsq"))
	require.Error(t, err)
}
