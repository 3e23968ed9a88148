package world

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/hexfront/internal/hex"
)

var ErrBadLayout = errors.New("bad map layout")

// symbol is the one-letter code for a tile type: its first letter.
func symbol(t TileType) byte {
	if t.Name == "" {
		return '?'
	}
	return strings.ToUpper(t.Name[:1])[0]
}

// ASCII renders the map one row per line, one letter per cell
// (P plains, F forest, M mountains, R river, A alien base). Unassigned cells print '.'.
func (m *Map) ASCII() string {
	var sb strings.Builder
	sb.Grow((m.Width + 1) * m.Height)
	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			idx := m.get(hex.Coord{Col: col, Row: row})
			if idx < 0 {
				sb.WriteByte('.')
				continue
			}
			sb.WriteByte(symbol(m.Types[idx]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseASCII builds a map from the ASCII form. Width and height come from
// the layout; orientation and tile types from cfg. Each letter resolves to
// the first tile type whose name starts with it.
func ParseASCII(cfg GenConfig, layout string) (*Map, error) {
	lines := strings.Fields(layout)
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty layout: %w", ErrBadLayout)
	}
	cfg.Width, cfg.Height = len(lines[0]), len(lines)
	if len(cfg.TileTypes) == 0 {
		return nil, ErrNoTileTypes
	}

	m := newMap(cfg, cfg.Seed)
	for row, line := range lines {
		if len(line) != cfg.Width {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", row, len(line), cfg.Width, ErrBadLayout)
		}
		for col := 0; col < len(line); col++ {
			if line[col] == '.' {
				continue
			}
			idx := -1
			for i, t := range m.Types {
				if symbol(t) == line[col] {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("unknown tile %q at (%d, %d): %w", line[col], col, row, ErrBadLayout)
			}
			m.set(hex.Coord{Col: col, Row: row}, idx)
		}
	}
	m.Quotas = Quotas(m.Counts())
	return m, nil
}
