package hex

import "math"

// Layout places cells in world space for a mesh consumer.
// Size is the outer radius of a hex (center to corner).
type Layout struct {
	Size        float64
	Orientation Orientation
}

// Center returns the world-space (x, z) center of c. Rows grow towards -z.
// The half-row shift matches the neighbor table: flat-topped odd columns
// and pointy-topped odd rows sit further along their axis than even ones.
func (l Layout) Center(c Coord) (x, z float64) {
	if l.Orientation == PointyTopped {
		width := math.Sqrt(3) * l.Size
		vert := 1.5 * l.Size
		offset := 0.0
		if c.Row%2 != 0 {
			offset = width * 0.5
		}
		return float64(c.Col)*width + offset, -float64(c.Row) * vert
	}

	height := math.Sqrt(3) * l.Size
	horiz := 1.5 * l.Size
	offset := 0.0
	if c.Col%2 != 0 {
		offset = height * 0.5
	}
	return float64(c.Col) * horiz, -(float64(c.Row)*height + offset)
}

// Corners returns the six corner points of c in world space, starting at
// angle 0 (flat) or 30 degrees (pointy) and turning counter-clockwise.
func (l Layout) Corners(c Coord) [6][2]float64 {
	cx, cz := l.Center(c)
	start := 0.0
	if l.Orientation == PointyTopped {
		start = 30
	}
	var corners [6][2]float64
	for i := range corners {
		angle := (start + 60*float64(i)) * math.Pi / 180
		corners[i] = [2]float64{cx + l.Size*math.Cos(angle), cz + l.Size*math.Sin(angle)}
	}
	return corners
}
