package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourFixtureProfile(t *testing.T) *Profile {
	t.Helper()
	fixtures := []Fixture{
		{ID: "front_left", Universe: 1, StartAddress: 1, Calibration: DefaultCalibration()},
		{ID: "front_right", Universe: 1, StartAddress: 17, Calibration: DefaultCalibration()},
		{ID: "back_left", Universe: 1, StartAddress: 33, Calibration: DefaultCalibration()},
		{ID: "back_right", Universe: 1, StartAddress: 49, Calibration: DefaultCalibration()},
	}
	groups := []Group{
		{ID: "all", FixtureIDs: []string{"front_left", "front_right", "back_left", "back_right"}, Order: LeftToRight},
	}
	p, err := NewProfile("test_rig", fixtures, groups)
	require.NoError(t, err)
	return p
}

func TestNewProfileRejectsEmptyFixtures(t *testing.T) {
	_, err := NewProfile("empty", nil, nil)
	require.Error(t, err)
}

func TestNewProfileRejectsGroupWithUnknownFixture(t *testing.T) {
	fixtures := []Fixture{{ID: "fix1", Universe: 1, StartAddress: 1, Calibration: DefaultCalibration()}}
	groups := []Group{{ID: "g", FixtureIDs: []string{"fix1", "nonexistent"}}}
	_, err := NewProfile("r", fixtures, groups)
	require.Error(t, err)
}

func TestNewProfileAssignsPositionIndex(t *testing.T) {
	p := fourFixtureProfile(t)
	f, ok := p.Fixture("front_left")
	require.True(t, ok)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, uint8(1), f.PositionIndex)
}

func TestCalibrationValidateRejectsInvertedDimmerRange(t *testing.T) {
	c := DefaultCalibration()
	c.DimmerFloorDMX = 200
	c.DimmerCeilingDMX = 100
	require.Error(t, c.Validate())
}

func TestResolveGroupLeftToRight(t *testing.T) {
	p := fourFixtureProfile(t)
	ids, err := Resolve(GroupTarget("all"), p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"front_left", "front_right", "back_left", "back_right"}, ids)
}

func TestResolveGroupRightToLeft(t *testing.T) {
	fixtures := []Fixture{
		{ID: "a", Universe: 1, StartAddress: 1, Calibration: DefaultCalibration()},
		{ID: "b", Universe: 1, StartAddress: 17, Calibration: DefaultCalibration()},
		{ID: "c", Universe: 1, StartAddress: 33, Calibration: DefaultCalibration()},
	}
	groups := []Group{{ID: "g", FixtureIDs: []string{"a", "b", "c"}, Order: RightToLeft}}
	p, err := NewProfile("r", fixtures, groups)
	require.NoError(t, err)

	ids, err := Resolve(GroupTarget("g"), p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids)
}

func TestResolveOutsideIn(t *testing.T) {
	fixtures := []Fixture{
		{ID: "a", Universe: 1, StartAddress: 1, Calibration: DefaultCalibration()},
		{ID: "b", Universe: 1, StartAddress: 17, Calibration: DefaultCalibration()},
		{ID: "c", Universe: 1, StartAddress: 33, Calibration: DefaultCalibration()},
		{ID: "d", Universe: 1, StartAddress: 49, Calibration: DefaultCalibration()},
	}
	groups := []Group{{ID: "g", FixtureIDs: []string{"a", "b", "c", "d"}, Order: OutsideIn}}
	p, err := NewProfile("r", fixtures, groups)
	require.NoError(t, err)

	ids, err := Resolve(GroupTarget("g"), p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
}

func TestResolveFixtureTarget(t *testing.T) {
	p := fourFixtureProfile(t)
	ids, err := Resolve(FixtureTarget("back_right"), p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"back_right"}, ids)
}

func TestResolveFixtureTargetUnknown(t *testing.T) {
	p := fourFixtureProfile(t)
	_, err := Resolve(FixtureTarget("nope"), p, nil)
	require.Error(t, err)
}

func TestSplitDefinitionRejectsOverlap(t *testing.T) {
	p := fourFixtureProfile(t)
	def := SplitDefinition{
		GroupID: "all",
		Splits: map[string][]string{
			"left":  {"front_left", "back_left"},
			"right": {"back_left", "back_right"},
		},
	}
	err := def.Validate(p)
	require.Error(t, err)
}

func TestSplitDefinitionRejectsFixtureOutsideGroup(t *testing.T) {
	p := fourFixtureProfile(t)
	def := SplitDefinition{
		GroupID: "all",
		Splits: map[string][]string{
			"left": {"front_left", "nonexistent"},
		},
	}
	err := def.Validate(p)
	require.Error(t, err)
}

func TestResolveSplitTarget(t *testing.T) {
	p := fourFixtureProfile(t)
	splits := map[string]SplitDefinition{
		"all": {
			GroupID: "all",
			Splits: map[string][]string{
				"left":  {"front_left", "back_left"},
				"right": {"front_right", "back_right"},
			},
		},
	}
	ids, err := Resolve(SplitTarget("all", "left"), p, splits)
	require.NoError(t, err)
	assert.Equal(t, []string{"front_left", "back_left"}, ids)
}
