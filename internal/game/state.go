package game

import (
	"math/rand"

	"github.com/talgya/hexfront/internal/world"
)

// State is the serializable part of a session. The map is not included;
// it is regenerated from its seed.
type State struct {
	ID         string  `json:"id"`
	Turn       int     `json:"turn"`
	EdenStress int     `json:"eden_stress"`
	Capital    bool    `json:"capital"`
	NextUnitID UnitID  `json:"next_unit_id"`
	NextCityID CityID  `json:"next_city_id"`
	Units      []Unit  `json:"units"`
	Cities     []City  `json:"cities"`
	Events     []Event `json:"events"`
}

// State captures the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		ID:         s.ID,
		Turn:       s.turn,
		EdenStress: s.edenStress,
		Capital:    s.capital,
		NextUnitID: s.nextUnitID,
		NextCityID: s.nextCityID,
		Units:      make([]Unit, 0, len(s.units)),
		Cities:     make([]City, 0, len(s.cities)),
		Events:     append([]Event(nil), s.events...),
	}
	for _, u := range s.units {
		st.Units = append(st.Units, *u)
	}
	for _, c := range s.cities {
		st.Cities = append(st.Cities, c.clone())
	}
	return st
}

// Restore rebuilds a session from saved state on a regenerated map.
func Restore(m *world.Map, minAlienBaseDistance int, rng *rand.Rand, st State) *Session {
	s := &Session{
		ID:                   st.ID,
		Map:                  m,
		MinAlienBaseDistance: minAlienBaseDistance,
		rng:                  rng,
		turn:                 st.Turn,
		edenStress:           st.EdenStress,
		capital:              st.Capital,
		unitIndex:            make(map[UnitID]*Unit, len(st.Units)),
		cityIndex:            make(map[CityID]*City, len(st.Cities)),
		events:               append([]Event(nil), st.Events...),
		nextUnitID:           st.NextUnitID,
		nextCityID:           st.NextCityID,
		subs:                 make(map[int]chan Event),
	}
	if s.turn < 1 {
		s.turn = 1
	}

	for i := range st.Units {
		u := st.Units[i]
		s.units = append(s.units, &u)
		s.unitIndex[u.ID] = &u
		if u.ID >= s.nextUnitID {
			s.nextUnitID = u.ID + 1
		}
	}
	for i := range st.Cities {
		c := st.Cities[i].clone()
		s.cities = append(s.cities, &c)
		s.cityIndex[c.ID] = &c
		if c.ID >= s.nextCityID {
			s.nextCityID = c.ID + 1
		}
		if c.Name == "Capital" {
			s.capital = true
		}
	}
	if s.nextUnitID == 0 {
		s.nextUnitID = 1
	}
	if s.nextCityID == 0 {
		s.nextCityID = 1
	}
	return s
}
