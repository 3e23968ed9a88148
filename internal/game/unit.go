package game

import (
	"errors"
	"fmt"

	"github.com/talgya/hexfront/internal/hex"
	"github.com/talgya/hexfront/internal/world"
)

// Unit and settler errors.
var (
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrNoMovement    = errors.New("no movement remaining")
	ErrNotAdjacent   = errors.New("target is not adjacent")
	ErrOutOfBounds   = errors.New("target out of bounds")
	ErrImpassable    = errors.New("mountains are impassable")
	ErrBusy          = errors.New("settler is building a capital")
	ErrNotSettler    = errors.New("unit is not a settler")
	ErrAlreadyBuilt  = errors.New("capital already built")
	ErrNearAlienBase = errors.New("too close to the alien base")
	ErrNoSpawnPoint  = errors.New("no spawn point satisfies the alien base distance")

	ErrCapitalPending = errors.New("another settler is already building the capital")
)

// UnitID is a unique identifier for a unit.
type UnitID uint64

// UnitKind tags the unit variant; behavior differences live in unitTable and
// in the settler checks below.
type UnitKind uint8

const (
	UnitScout   UnitKind = iota // Plain moving unit
	UnitSettler                 // Founds the capital
)

// UnitStats is the static data of a unit kind.
type UnitStats struct {
	Name         string
	MaxMovement  int
	VisionRadius int
}

var unitTable = [...]UnitStats{
	UnitScout:   {Name: "Scout", MaxMovement: 2, VisionRadius: 2},
	UnitSettler: {Name: "Settler", MaxMovement: 2, VisionRadius: 2},
}

// Stats returns the static stats of the kind.
func (k UnitKind) Stats() UnitStats {
	if int(k) < len(unitTable) {
		return unitTable[k]
	}
	return UnitStats{Name: "Unknown"}
}

func (k UnitKind) String() string {
	return k.Stats().Name
}

// ParseUnitKind maps a unit name to its kind.
func ParseUnitKind(name string) (UnitKind, error) {
	for k, st := range unitTable {
		if st.Name == name {
			return UnitKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", name)
}

// Unit is a piece on the map.
type Unit struct {
	ID                UnitID    `json:"id"`
	Kind              UnitKind  `json:"kind"`
	Position          hex.Coord `json:"position"`
	RemainingMovement int       `json:"remaining_movement"`

	// Settler construction state.
	BuildingCapital     bool `json:"building_capital,omitempty"`
	BuildTurnsRemaining int  `json:"build_turns_remaining,omitempty"`
}

// SpawnUnit places a new unit with full movement at pos.
func (s *Session) SpawnUnit(kind UnitKind, pos hex.Coord) (Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Map.InBounds(pos) {
		return Unit{}, fmt.Errorf("spawn %s at %v: %w", kind, pos, ErrOutOfBounds)
	}
	if !s.passable(pos) {
		return Unit{}, fmt.Errorf("spawn %s at %v: %w", kind, pos, ErrImpassable)
	}
	u := s.addUnit(kind, pos)
	return *u, nil
}

// SpawnSettler places a settler on a Plains cell at least
// MinAlienBaseDistance from every alien-base cell.
func (s *Session) SpawnSettler() (Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.Map.FindSpawnPoint(s.MinAlienBaseDistance, s.rng)
	if !ok {
		return Unit{}, fmt.Errorf("min distance %d: %w", s.MinAlienBaseDistance, ErrNoSpawnPoint)
	}
	u := s.addUnit(UnitSettler, pos)
	return *u, nil
}

// addUnit registers a unit. Caller holds s.mu.
func (s *Session) addUnit(kind UnitKind, pos hex.Coord) *Unit {
	u := &Unit{
		ID:                s.nextUnitID,
		Kind:              kind,
		Position:          pos,
		RemainingMovement: kind.Stats().MaxMovement,
	}
	s.nextUnitID++
	s.units = append(s.units, u)
	s.unitIndex[u.ID] = u
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("%s #%d appeared at %v", kind, u.ID, pos), Category: "unit"})
	return u
}

// removeUnit drops a unit from the session. Caller holds s.mu.
func (s *Session) removeUnit(id UnitID) {
	delete(s.unitIndex, id)
	for i, u := range s.units {
		if u.ID == id {
			s.units = append(s.units[:i], s.units[i+1:]...)
			return
		}
	}
}

// CanMoveTo reports why the unit may not step onto target, or nil.
func (s *Session) CanMoveTo(id UnitID, target hex.Coord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	return s.canMove(u, target)
}

func (s *Session) canMove(u *Unit, target hex.Coord) error {
	if u.BuildingCapital {
		return ErrBusy
	}
	if u.RemainingMovement <= 0 {
		return ErrNoMovement
	}
	if !hex.IsNeighbor(u.Position, target, s.Map.Orientation) {
		return ErrNotAdjacent
	}
	if !s.Map.InBounds(target) {
		return ErrOutOfBounds
	}
	if s.Map.Is(target, world.TileMountains) {
		return ErrImpassable
	}
	return nil
}

// MoveUnit steps a unit onto an adjacent cell, spending one movement point.
func (s *Session) MoveUnit(id UnitID, target hex.Coord) (Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return Unit{}, fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	if err := s.canMove(u, target); err != nil {
		return *u, fmt.Errorf("move %s #%d to %v: %w", u.Kind, id, target, err)
	}
	u.Position = target
	u.RemainingMovement--
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("%s #%d moved to %v", u.Kind, id, target), Category: "unit"})
	return *u, nil
}

// ValidMoves lists the cells the unit can step onto this turn.
func (s *Session) ValidMoves(id UnitID) []hex.Coord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return nil
	}
	var moves []hex.Coord
	for _, n := range s.Map.Neighbors(u.Position) {
		if s.canMove(u, n) == nil {
			moves = append(moves, n)
		}
	}
	return moves
}

// CanBuildCapital reports why the settler may not found the capital where
// it stands, or nil.
func (s *Session) CanBuildCapital(id UnitID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	return s.canBuildCapital(u)
}

func (s *Session) canBuildCapital(u *Unit) error {
	if u.Kind != UnitSettler {
		return ErrNotSettler
	}
	if s.capital {
		return ErrAlreadyBuilt
	}
	if u.BuildingCapital {
		return ErrBusy
	}
	for _, other := range s.units {
		if other.ID != u.ID && other.BuildingCapital {
			return fmt.Errorf("settler #%d: %w", other.ID, ErrCapitalPending)
		}
	}
	if s.Map.Is(u.Position, world.TileMountains) {
		return ErrImpassable
	}
	for _, n := range s.Map.Neighbors(u.Position) {
		if s.Map.Is(n, world.TileAlienBase) {
			return ErrNearAlienBase
		}
	}
	return nil
}

// StartCapital begins construction. The settler cannot move and the capital
// is founded at the start of the next turn.
func (s *Session) StartCapital(id UnitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.unitIndex[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	if err := s.canBuildCapital(u); err != nil {
		return fmt.Errorf("capital at %v: %w", u.Position, err)
	}
	u.BuildingCapital = true
	u.BuildTurnsRemaining = 1
	u.RemainingMovement = 0
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("Settler #%d started building a capital at %v", id, u.Position), Category: "city"})
	return nil
}

// completeCapital replaces the settler with the capital city. Caller holds s.mu.
func (s *Session) completeCapital(u *Unit) {
	c := s.foundCity("Capital", u.Position)
	s.capital = true
	s.removeUnit(u.ID)
	s.emit(Event{Turn: s.turn, Description: fmt.Sprintf("%s founded at %v", c.Name, c.Position), Category: "city"})
}

func (k UnitKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *UnitKind) UnmarshalText(b []byte) error {
	v, err := ParseUnitKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
