package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/hexfront/internal/hex"
)

var (
	ErrUnknownCity = errors.New("unknown city")
	ErrProduction  = errors.New("not enough production")
)

// City defaults.
const (
	defaultPopulation      = 5
	defaultBaseProduction  = 5
	defaultBaseScience     = 3
	defaultTerritoryRadius = 1
)

// CityID is a unique identifier for a city.
type CityID uint64

// City is a settlement founded by a settler.
type City struct {
	ID              CityID         `json:"id"`
	Name            string         `json:"name"`
	Position        hex.Coord      `json:"position"`
	Population      int            `json:"population"`
	BaseProduction  int            `json:"base_production"`
	BaseScience     int            `json:"base_science"`
	TerritoryRadius int            `json:"territory_radius"`
	Production      int            `json:"production"` // accumulated, spent by Build
	Science         int            `json:"science"`    // accumulated
	Buildings       []BuildingKind `json:"buildings"`
	FoundedTurn     int            `json:"founded_turn"`
}

func (c *City) clone() City {
	out := *c
	out.Buildings = append([]BuildingKind(nil), c.Buildings...)
	return out
}

// TotalProduction is base production plus building bonuses.
func (c *City) TotalProduction() int {
	total := c.BaseProduction
	for _, b := range c.Buildings {
		total += b.Stats().ProductionBonus
	}
	return total
}

// TotalScience is base science plus building bonuses.
func (c *City) TotalScience() int {
	total := c.BaseScience
	for _, b := range c.Buildings {
		total += b.Stats().ScienceBonus
	}
	return total
}

// stressPerTurn sums the per-turn stress of every building.
func (c *City) stressPerTurn() int {
	total := 0
	for _, b := range c.Buildings {
		total += b.Stats().StressPerTurn
	}
	return total
}

// foundCity creates a city with default stats. Caller holds s.mu.
func (s *Session) foundCity(name string, pos hex.Coord) *City {
	c := &City{
		ID:              s.nextCityID,
		Name:            name,
		Position:        pos,
		Population:      defaultPopulation,
		BaseProduction:  defaultBaseProduction,
		BaseScience:     defaultBaseScience,
		TerritoryRadius: defaultTerritoryRadius,
		FoundedTurn:     s.turn,
	}
	s.nextCityID++
	s.cities = append(s.cities, c)
	s.cityIndex[c.ID] = c
	return c
}

// processCity accumulates yields and applies building stress. Caller holds s.mu.
func (s *Session) processCity(c *City) {
	prod, sci := c.TotalProduction(), c.TotalScience()
	c.Production += prod
	c.Science += sci
	if stress := c.stressPerTurn(); stress > 0 {
		s.edenStress += stress
		slog.Debug("building stress", "city", c.Name, "stress", stress, "total", s.edenStress)
	}
	slog.Debug("city processed", "city", c.Name, "production", prod, "science", sci)
}

// Territory returns the in-bounds cells within the city's territory radius.
func (s *Session) Territory(id CityID) ([]hex.Coord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cityIndex[id]
	if !ok {
		return nil, fmt.Errorf("city %d: %w", id, ErrUnknownCity)
	}
	return hex.Within(c.Position, c.TerritoryRadius, s.Map.Orientation, s.Map.Bounds()), nil
}

// Build constructs a building in a city, spending its accumulated production.
func (s *Session) Build(id CityID, kind BuildingKind) (City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cityIndex[id]
	if !ok {
		return City{}, fmt.Errorf("city %d: %w", id, ErrUnknownCity)
	}
	if int(kind) >= len(buildingTable) {
		return c.clone(), fmt.Errorf("kind %d: %w", kind, ErrUnknownBuilding)
	}
	st := kind.Stats()
	if c.Production < st.Cost {
		return c.clone(), fmt.Errorf("%s needs %d, %s has %d: %w", st.Name, st.Cost, c.Name, c.Production, ErrProduction)
	}

	c.Production -= st.Cost
	c.Buildings = append(c.Buildings, kind)
	s.edenStress += st.StressOnBuild
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("%s completed %s", c.Name, st.Name), Category: "building"})
	return c.clone(), nil
}
