// Package game provides the turn-based session layered on a generated map:
// units, settlers, cities, buildings, and the events they raise.
// A Session is constructed explicitly and passed by reference; there is no
// global turn manager.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/world"
)

const (
	maxEvents     = 1000 // Older events are dropped from memory (persistence keeps them)
	subscriberBuf = 64
)

// Event is a notable occurrence in the session.
type Event struct {
	Turn        int    `json:"turn"`
	Description string `json:"description"`
	Category    string `json:"category"` // "turn", "unit", "city", "building"
}

// Session holds the game state for one map. All methods are safe for
// concurrent use; the map itself is read-only.
type Session struct {
	ID  string
	Map *world.Map

	// MinAlienBaseDistance constrains settler spawn points.
	MinAlienBaseDistance int

	// Callbacks fired after the state lock is released.
	OnTurnStart func(turn int)
	OnTurnEnd   func(turn int)

	mu         sync.RWMutex
	rng        *rand.Rand
	turn       int
	edenStress int
	capital    bool
	units      []*Unit
	unitIndex  map[UnitID]*Unit
	cities     []*City
	cityIndex  map[CityID]*City
	events     []Event
	nextUnitID UnitID
	nextCityID CityID

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewSession starts a fresh session on turn 1. rng drives spawn placement
// and is owned by the session from here on.
func NewSession(m *world.Map, minAlienBaseDistance int, rng *rand.Rand) *Session {
	s := &Session{
		ID:                   uuid.NewString(),
		Map:                  m,
		MinAlienBaseDistance: minAlienBaseDistance,
		rng:                  rng,
		turn:                 1,
		unitIndex:            make(map[UnitID]*Unit),
		cityIndex:            make(map[CityID]*City),
		nextUnitID:           1,
		nextCityID:           1,
		subs:                 make(map[int]chan Event),
	}
	s.emit(Event{Turn: 1, Description: "Turn 1 started", Category: "turn"})
	return s
}

// Turn returns the current turn number.
func (s *Session) Turn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// EdenStress returns the accumulated environmental stress from buildings.
func (s *Session) EdenStress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edenStress
}

// Units returns copies of all units.
func (s *Session) Units() []Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, *u)
	}
	return out
}

// Unit returns a copy of one unit.
func (s *Session) Unit(id UnitID) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Cities returns copies of all cities.
func (s *Session) Cities() []City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]City, 0, len(s.cities))
	for _, c := range s.cities {
		out = append(out, c.clone())
	}
	return out
}

// City returns a copy of one city.
func (s *Session) City(id CityID) (City, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cityIndex[id]
	if !ok {
		return City{}, false
	}
	return c.clone(), true
}

// Events returns the most recent limit events, oldest first. limit <= 0 returns all.
func (s *Session) Events(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]Event(nil), s.events[start:]...)
}

// EndTurn processes every city, advances the turn counter, and refreshes
// every unit. Settlers that finished a capital found it during the refresh.
func (s *Session) EndTurn() int {
	s.mu.Lock()
	ended := s.turn
	s.emit(Event{Turn: ended, Description: fmt.Sprintf("Turn %d ending", ended), Category: "turn"})

	for _, c := range s.cities {
		s.processCity(c)
	}

	s.turn++
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("Turn %d started", s.turn), Category: "turn"})
	s.refreshUnits()
	started := s.turn
	s.mu.Unlock()

	slog.Info("turn advanced", "session", s.ID, "turn", started, "units", len(s.Units()), "cities", len(s.Cities()))

	if s.OnTurnEnd != nil {
		s.OnTurnEnd(ended)
	}
	if s.OnTurnStart != nil {
		s.OnTurnStart(started)
	}
	return started
}

// refreshUnits restores movement and advances capital construction.
// Caller holds s.mu.
func (s *Session) refreshUnits() {
	var founded []UnitID
	for _, u := range s.units {
		u.RemainingMovement = u.Kind.Stats().MaxMovement
		if u.BuildingCapital {
			u.BuildTurnsRemaining--
			if u.BuildTurnsRemaining <= 0 {
				founded = append(founded, u.ID)
			}
		}
	}
	for _, id := range founded {
		s.completeCapital(s.unitIndex[id])
	}
}

// emit records an event and fans it out to subscribers. Caller holds s.mu.
func (s *Session) emit(e Event) {
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = append([]Event(nil), s.events[len(s.events)-maxEvents:]...)
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber; drop rather than block the game.
		}
	}
}

// Subscribe registers for live events. The channel is closed by Unsubscribe.
func (s *Session) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	ch := make(chan Event, subscriberBuf)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// passable reports whether units may stand on c.
func (s *Session) passable(c hex.Coord) bool {
	return s.Map.InBounds(c) && !s.Map.Is(c, world.TileMountains)
}
