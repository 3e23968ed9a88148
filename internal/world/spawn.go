// Spawn queries: distance to the alien base and constrained spawn-point search.
package world

import (
	"math/rand"

	"github.com/talgya/hexfront/internal/hex"
)

// AlienBaseCells returns every alien-base cell, row-major.
func (m *Map) AlienBaseCells() []hex.Coord {
	return m.Cells(TileAlienBase)
}

// NearestAlienBaseDistance returns the hex distance from c to the closest
// alien-base cell. ok is false when the map has no alien base.
func (m *Map) NearestAlienBaseDistance(c hex.Coord) (dist int, ok bool) {
	return nearest(m, c, m.AlienBaseCells())
}

func nearest(m *Map, c hex.Coord, targets []hex.Coord) (int, bool) {
	if len(targets) == 0 {
		return 0, false
	}
	best := -1
	for _, t := range targets {
		d := m.Distance(c, t)
		if best < 0 || d < best {
			best = d
		}
	}
	return best, true
}

// SpawnCandidates returns every Plains cell at hex distance >= minDist from
// all alien-base cells, row-major. Without an alien base every Plains cell
// qualifies.
func (m *Map) SpawnCandidates(minDist int) []hex.Coord {
	bases := m.AlienBaseCells()
	var candidates []hex.Coord
	for _, c := range m.Cells(TilePlains) {
		if d, ok := nearest(m, c, bases); ok && d < minDist {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// FindSpawnPoint picks one spawn candidate uniformly at random. ok is false
// when no Plains cell satisfies the distance constraint; the constraint is
// never relaxed.
func (m *Map) FindSpawnPoint(minDist int, rng *rand.Rand) (hex.Coord, bool) {
	candidates := m.SpawnCandidates(minDist)
	if len(candidates) == 0 {
		return hex.Coord{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
