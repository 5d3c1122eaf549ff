package beatgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConstantBPMAlignment(t *testing.T) {
	g := NewConstantBPM(120, 4, 4000)
	require.NoError(t, ValidateGrid(g))
	assert.Equal(t, int64(0), g.BarBoundaries[0])
}

func TestResolveBarBeatOneIndexed(t *testing.T) {
	g := NewConstantBPM(120, 4, 10000)
	// 120 BPM -> 500ms/beat -> 2000ms/bar.
	ms, err := Resolve(BarBeat(1, 1), g, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ms)

	ms, err = Resolve(BarBeat(1, 2), g, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), ms)

	ms, err = Resolve(BarBeat(2, 1), g, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ms)
}

func TestResolveBarBeatClampsOutOfRange(t *testing.T) {
	g := NewConstantBPM(120, 4, 4000)
	ms, err := Resolve(BarBeat(999, 1), g, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, g.BarBoundaries[len(g.BarBoundaries)-1], ms)
}

func TestResolveSymbolic(t *testing.T) {
	sections := map[string]SectionWindow{
		"verse1": {StartMs: 1000, EndMs: 5000},
	}
	ms, err := Resolve(Symbolic("verse1", false), nil, sections, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ms)

	ms, err = Resolve(Symbolic("verse1", true), nil, sections, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), ms)

	_, err = Resolve(Symbolic("missing", false), nil, sections, nil)
	require.Error(t, err)
}

func TestBarWindowExclusiveEnd(t *testing.T) {
	g := NewConstantBPM(120, 4, 20000)
	// Bars 1..2 inclusive: the window ends (exclusively) where bar 3 begins.
	start, end, err := BarWindow(1, 2, g)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, g.BarBoundaries[2], end)
}

func TestBarWindowClampsToDurationAtEnd(t *testing.T) {
	g := NewConstantBPM(120, 4, 4000)
	total := g.TotalBars()
	start, end, err := BarWindow(total, total, g)
	require.NoError(t, err)
	assert.Equal(t, g.BarBoundaries[total-1], start)
	assert.Equal(t, g.DurationMs, end)
}

func TestResolveMonotonicity(t *testing.T) {
	g := NewConstantBPM(128, 4, 30000)
	a, err := Resolve(BarBeat(2, 1), g, nil, nil)
	require.NoError(t, err)
	b, err := Resolve(BarBeat(3, 1), g, nil, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, a, b)
}
