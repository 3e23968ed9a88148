package world

import (
	"fmt"

	"github.com/talgya/hexfront/internal/hex"
)

// Map holds a generated tile grid. Cells store indices into Types in
// row-major order. A Map is only mutated by Generate; once returned it is
// read-only and safe to share between goroutines.
type Map struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Orientation hex.Orientation `json:"orientation"`
	Seed        int64           `json:"seed"` // Seed actually used (resolved when config seed is 0)
	Types       []TileType      `json:"tile_types"`
	Quotas      Quotas          `json:"quotas"`

	gen   GenConfig
	cells []int
}

// newMap allocates a grid with every cell unassigned (-1).
func newMap(cfg GenConfig, seed int64) *Map {
	cells := make([]int, cfg.Width*cfg.Height)
	for i := range cells {
		cells[i] = -1
	}
	return &Map{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: cfg.Orientation,
		Seed:        seed,
		Types:       cfg.TileTypes,
		gen:         cfg,
		cells:       cells,
	}
}

// Config returns the configuration the map was built from, with the
// resolved seed. Generating from it reproduces the map.
func (m *Map) Config() GenConfig {
	cfg := m.gen
	cfg.Seed = m.Seed
	cfg.TileTypes = append([]TileType(nil), m.gen.TileTypes...)
	return cfg
}

// Bounds returns the grid size.
func (m *Map) Bounds() hex.Bounds {
	return hex.Bounds{Width: m.Width, Height: m.Height}
}

// InBounds reports whether c is a valid cell.
func (m *Map) InBounds(c hex.Coord) bool {
	return m.Bounds().Contains(c)
}

// TileAt returns the tile type at (col, row), or false when out of bounds.
func (m *Map) TileAt(col, row int) (TileType, bool) {
	c := hex.Coord{Col: col, Row: row}
	if !m.InBounds(c) {
		return TileType{}, false
	}
	idx := m.cells[m.Bounds().Index(c)]
	if idx < 0 {
		return TileType{}, false
	}
	return m.Types[idx], true
}

// Is reports whether the cell at c holds the named tile type.
func (m *Map) Is(c hex.Coord, name string) bool {
	t, ok := m.TileAt(c.Col, c.Row)
	return ok && t.Name == name
}

// Neighbors returns the in-bounds cells adjacent to c.
func (m *Map) Neighbors(c hex.Coord) []hex.Coord {
	return hex.Neighbors(c, m.Orientation, m.Bounds())
}

// Distance returns the hex distance between two cells on this map.
func (m *Map) Distance(a, b hex.Coord) int {
	return hex.Distance(a, b, m.Orientation)
}

// Cells returns every coordinate holding the named tile type, row-major.
func (m *Map) Cells(name string) []hex.Coord {
	idx := indexOf(m.Types, name)
	if idx < 0 {
		return nil
	}
	b := m.Bounds()
	var result []hex.Coord
	for i, v := range m.cells {
		if v == idx {
			result = append(result, b.At(i))
		}
	}
	return result
}

// Counts returns the number of cells per tile-type name.
func (m *Map) Counts() map[string]int {
	counts := make(map[string]int, len(m.Types))
	for _, v := range m.cells {
		if v >= 0 {
			counts[m.Types[v].Name]++
		}
	}
	return counts
}

// CellCount returns the total number of cells.
func (m *Map) CellCount() int {
	return len(m.cells)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, %s, seed=%d)", m.Width, m.Height, m.Orientation, m.Seed)
}

// get and set are the generator's raw accessors; c must be in bounds.
func (m *Map) get(c hex.Coord) int {
	return m.cells[m.Bounds().Index(c)]
}

func (m *Map) set(c hex.Coord, typeIdx int) {
	m.cells[m.Bounds().Index(c)] = typeIdx
}
