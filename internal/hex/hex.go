// Package hex provides the offset/cube coordinate math for bounded hex grids.
// Both flat-topped and pointy-topped layouts are supported. Every adjacency and
// distance query in the repository goes through this package.
package hex

import "fmt"

// Orientation selects the hex layout of a grid.
type Orientation uint8

const (
	FlatTopped   Orientation = iota // Columns zig-zag; odd columns sit half a row lower
	PointyTopped                    // Rows zig-zag; odd rows sit half a column to the right
)

// String returns the config name of the orientation.
func (o Orientation) String() string {
	switch o {
	case FlatTopped:
		return "flat"
	case PointyTopped:
		return "pointy"
	default:
		return "unknown"
	}
}

// ParseOrientation maps a config name to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "", "flat", "flat-topped":
		return FlatTopped, nil
	case "pointy", "pointy-topped":
		return PointyTopped, nil
	}
	return FlatTopped, fmt.Errorf("unknown orientation %q", s)
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Coord is an offset (column, row) position in the rectangular storage array.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// Cube is the redundant three-axis form of a coordinate. X+Y+Z is always 0.
type Cube struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Bounds is the size of a grid. Valid coordinates satisfy
// 0 <= Col < Width and 0 <= Row < Height.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether c lies inside the grid.
func (b Bounds) Contains(c Coord) bool {
	return c.Col >= 0 && c.Col < b.Width && c.Row >= 0 && c.Row < b.Height
}

// IsEdge reports whether c is on one of the four outer edges.
func (b Bounds) IsEdge(c Coord) bool {
	return c.Col == 0 || c.Col == b.Width-1 || c.Row == 0 || c.Row == b.Height-1
}

// Area returns the number of cells in the grid.
func (b Bounds) Area() int {
	return b.Width * b.Height
}

// Index returns the row-major storage index of c. c must be in bounds.
func (b Bounds) Index(c Coord) int {
	return c.Row*b.Width + c.Col
}

// At is the inverse of Index.
func (b Bounds) At(i int) Coord {
	return Coord{Col: i % b.Width, Row: i / b.Width}
}

// Cells enumerates every cell in row-major order, so the i-th entry is At(i).
func (b Bounds) Cells() []Coord {
	if b.Width <= 0 || b.Height <= 0 {
		return nil
	}
	out := make([]Coord, 0, b.Area())
	for row := 0; row < b.Height; row++ {
		for col := 0; col < b.Width; col++ {
			out = append(out, Coord{Col: col, Row: row})
		}
	}
	return out
}

// offsets returns the six neighbor offsets for pos. The first four are the
// orthogonal steps; the last two are the diagonals whose vertical (flat) or
// horizontal (pointy) component depends on parity.
func offsets(pos Coord, o Orientation) [6]Coord {
	if o == PointyTopped {
		dc := 1
		if pos.Row%2 == 0 {
			dc = -1
		}
		return [6]Coord{
			{Col: 1, Row: 0}, {Col: -1, Row: 0},
			{Col: 0, Row: 1}, {Col: 0, Row: -1},
			{Col: dc, Row: 1}, {Col: dc, Row: -1},
		}
	}
	dr := 1
	if pos.Col%2 == 0 {
		dr = -1
	}
	return [6]Coord{
		{Col: 1, Row: 0}, {Col: -1, Row: 0},
		{Col: 0, Row: 1}, {Col: 0, Row: -1},
		{Col: 1, Row: dr}, {Col: -1, Row: dr},
	}
}

// Neighbors returns the in-bounds cells adjacent to pos, in a fixed order.
// Out-of-bounds neighbors are omitted.
func Neighbors(pos Coord, o Orientation, b Bounds) []Coord {
	result := make([]Coord, 0, 6)
	for _, d := range offsets(pos, o) {
		n := Coord{Col: pos.Col + d.Col, Row: pos.Row + d.Row}
		if b.Contains(n) {
			result = append(result, n)
		}
	}
	return result
}

// IsNeighbor reports whether a and b are adjacent.
func IsNeighbor(a, b Coord, o Orientation) bool {
	for _, d := range offsets(a, o) {
		if a.Col+d.Col == b.Col && a.Row+d.Row == b.Row {
			return true
		}
	}
	return false
}

// ToCube converts an offset coordinate to cube form.
func ToCube(pos Coord, o Orientation) Cube {
	var x, z int
	if o == PointyTopped {
		x = pos.Col - (pos.Row-(pos.Row&1))/2
		z = pos.Row
	} else {
		x = pos.Col
		z = pos.Row - (pos.Col-(pos.Col&1))/2
	}
	return Cube{X: x, Y: -x - z, Z: z}
}

// FromCube is the inverse of ToCube.
func FromCube(c Cube, o Orientation) Coord {
	if o == PointyTopped {
		return Coord{Col: c.X + (c.Z-(c.Z&1))/2, Row: c.Z}
	}
	return Coord{Col: c.X, Row: c.Z + (c.X-(c.X&1))/2}
}

// Distance returns the number of steps between a and b.
func Distance(a, b Coord, o Orientation) int {
	ac := ToCube(a, o)
	bc := ToCube(b, o)
	return (abs(ac.X-bc.X) + abs(ac.Y-bc.Y) + abs(ac.Z-bc.Z)) / 2
}

// Within returns every in-bounds cell at distance <= radius from center,
// in row-major order. center itself is included when in bounds.
func Within(center Coord, radius int, o Orientation, b Bounds) []Coord {
	if radius < 0 {
		return nil
	}
	var result []Coord
	for row := center.Row - radius; row <= center.Row+radius; row++ {
		for col := center.Col - radius; col <= center.Col+radius; col++ {
			c := Coord{Col: col, Row: row}
			if b.Contains(c) && Distance(center, c, o) <= radius {
				result = append(result, c)
			}
		}
	}
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
