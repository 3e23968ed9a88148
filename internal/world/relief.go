// Tile relief for the mesh consumer. Heights come from layered simplex noise
// so they are stable for a seed and never touch the generator's random stream.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexfront/internal/hex"
)

// Relief returns one height per cell (row-major), each inside the
// [MinHeight, MaxHeight] range of the cell's tile type.
func Relief(m *Map, seed int64) []float64 {
	noise := opensimplex.NewNormalized(seed + 300)
	layout := hex.Layout{Size: 1, Orientation: m.Orientation}

	heights := make([]float64, m.CellCount())
	for i, c := range m.Bounds().Cells() {
		t, ok := m.TileAt(c.Col, c.Row)
		if !ok {
			continue
		}
		x, z := layout.Center(c)
		n := octaveNoise(noise, x, z, 3, 0.15, 0.5)
		lo, hi := t.MinHeight, t.MaxHeight
		if hi < lo {
			lo, hi = hi, lo
		}
		heights[i] = math.Min(hi, lo+n*(hi-lo))
	}
	return heights
}

// octaveNoise layers several frequencies of normalized noise; the result
// stays within [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Min(1, math.Max(0, total/maxVal))
}
