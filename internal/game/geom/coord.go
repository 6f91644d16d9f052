// Package geom provides the integer grid coordinates, rectangles, and
// movement directions shared by every layer of the tile world.
package geom

import "fmt"

// Coord is a (row, col) pair. It is used both as an absolute grid position
// and as an offset inside an object's footprint.
type Coord struct {
	Row int `yaml:"row" json:"row"`
	Col int `yaml:"col" json:"col"`
}

// C is shorthand for Coord{Row: row, Col: col}.
func C(row, col int) Coord {
	return Coord{Row: row, Col: col}
}

// Add returns the component-wise sum of c and o.
func (c Coord) Add(o Coord) Coord {
	return Coord{Row: c.Row + o.Row, Col: c.Col + o.Col}
}

// Sub returns the component-wise difference c - o.
func (c Coord) Sub(o Coord) Coord {
	return Coord{Row: c.Row - o.Row, Col: c.Col - o.Col}
}

// IsZero reports whether c is the origin.
func (c Coord) IsZero() bool {
	return c.Row == 0 && c.Col == 0
}

// Chebyshev returns the king-move distance between c and o.
func (c Coord) Chebyshev(o Coord) int {
	dr := abs(c.Row - o.Row)
	dc := abs(c.Col - o.Col)
	if dr > dc {
		return dr
	}
	return dc
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Rect is an axis-aligned rectangle given by two inclusive corners.
type Rect struct {
	TopLeft     Coord `yaml:"top_left"`
	BottomRight Coord `yaml:"bottom_right"`
}

// Contains reports whether c lies inside r, corners included.
func (r Rect) Contains(c Coord) bool {
	return r.TopLeft.Row <= c.Row && c.Row <= r.BottomRight.Row &&
		r.TopLeft.Col <= c.Col && c.Col <= r.BottomRight.Col
}

// Cells returns every coordinate in r in row-major order.
//
// Postcondition: Returns an empty slice when r is inverted.
func (r Rect) Cells() []Coord {
	var out []Coord
	for row := r.TopLeft.Row; row <= r.BottomRight.Row; row++ {
		for col := r.TopLeft.Col; col <= r.BottomRight.Col; col++ {
			out = append(out, Coord{Row: row, Col: col})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
