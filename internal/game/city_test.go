package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// foundedCapital returns a session whose capital was founded at (1,3) on turn 2.
func foundedCapital(t *testing.T) (*Session, CityID) {
	t.Helper()
	s := newTestSession(t)
	settler, err := s.SpawnUnit(UnitSettler, at(1, 3))
	require.NoError(t, err)
	require.NoError(t, s.StartCapital(settler.ID))
	s.EndTurn()
	cities := s.Cities()
	require.Len(t, cities, 1)
	return s, cities[0].ID
}

func TestCity_Yields(t *testing.T) {
	s, id := foundedCapital(t)
	c, ok := s.City(id)
	require.True(t, ok)
	assert.Equal(t, 0, c.Production)
	assert.Equal(t, 5, c.TotalProduction())
	assert.Equal(t, 3, c.TotalScience())

	s.EndTurn()
	c, _ = s.City(id)
	assert.Equal(t, 5, c.Production)
	assert.Equal(t, 3, c.Science)
}

func TestCity_BuildSpendsProduction(t *testing.T) {
	s, id := foundedCapital(t)

	_, err := s.Build(id, BuildingFactory)
	assert.ErrorIs(t, err, ErrProduction)

	for i := 0; i < 4; i++ {
		s.EndTurn()
	}
	c, err := s.Build(id, BuildingFactory)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Production)
	assert.Equal(t, []BuildingKind{BuildingFactory}, c.Buildings)
	assert.Equal(t, 9, c.TotalProduction())
	assert.Equal(t, 0, s.EdenStress())

	s.EndTurn()
	c, _ = s.City(id)
	assert.Equal(t, 9, c.Production)
	assert.Equal(t, 2, s.EdenStress(), "factory stress applies each turn")

	_, err = s.Build(id, BuildingFloodBarrier)
	assert.ErrorIs(t, err, ErrProduction)
	s.EndTurn()
	c, err = s.Build(id, BuildingFloodBarrier)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Production)
	assert.Equal(t, 5, s.EdenStress(), "two factory turns plus one on build")
}

func TestCity_ResearchLab(t *testing.T) {
	s, id := foundedCapital(t)
	for i := 0; i < 3; i++ {
		s.EndTurn()
	}
	c, err := s.Build(id, BuildingResearchLab)
	require.NoError(t, err)
	assert.Equal(t, 7, c.TotalScience())
	assert.Equal(t, 5, c.TotalProduction())
}

func TestBuild_Errors(t *testing.T) {
	s, id := foundedCapital(t)
	_, err := s.Build(99, BuildingFactory)
	assert.ErrorIs(t, err, ErrUnknownCity)
	_, err = s.Build(id, BuildingKind(42))
	assert.ErrorIs(t, err, ErrUnknownBuilding)
}

func TestTerritory(t *testing.T) {
	s, id := foundedCapital(t)
	cells, err := s.Territory(id)
	require.NoError(t, err)
	assert.Len(t, cells, 7)
	assert.Contains(t, cells, at(1, 3))
	for _, c := range cells {
		assert.LessOrEqual(t, s.Map.Distance(at(1, 3), c), 1)
	}

	_, err = s.Territory(99)
	assert.ErrorIs(t, err, ErrUnknownCity)
}

func TestParseBuildingKind(t *testing.T) {
	tests := []struct {
		in   string
		want BuildingKind
	}{
		{"Factory", BuildingFactory},
		{"Research Lab", BuildingResearchLab},
		{"ResearchLab", BuildingResearchLab},
		{"FloodBarrier", BuildingFloodBarrier},
	}
	for _, tt := range tests {
		got, err := ParseBuildingKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseBuildingKind("Castle")
	assert.ErrorIs(t, err, ErrUnknownBuilding)
}

func TestParseUnitKind(t *testing.T) {
	k, err := ParseUnitKind("Settler")
	require.NoError(t, err)
	assert.Equal(t, UnitSettler, k)
	_, err = ParseUnitKind("Tank")
	assert.Error(t, err)
}
