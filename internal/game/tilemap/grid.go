// Package tilemap implements the per-room grid of stacked tiles. Each tile
// records one object's presence at one cell, along with the offset of that
// cell within the object's footprint.
package tilemap

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
)

// ErrOutOfBounds marks a grid write outside the grid. Callers are expected
// to have validated bounds, so this always indicates a programming error.
var ErrOutOfBounds = errors.New("grid access out of bounds")

// Tile is one object's presence at one grid cell.
type Tile struct {
	Object object.MapObject
	Offset geom.Coord
}

// Sub resolves the sub-object responsible for this cell.
func (t Tile) Sub() object.MapObject {
	return object.At(t.Object, t.Offset)
}

// Passable reports whether this cell of the owning object can be walked on.
func (t Tile) Passable() bool {
	return t.Sub().Passable()
}

// ZIndex returns the owning object's paint order.
func (t Tile) ZIndex() int {
	return t.Object.ZIndex()
}

// ImageID returns the owning object's image for the anchor tile only, so
// multi-cell art is painted once.
func (t Tile) ImageID() string {
	if !t.Offset.IsZero() {
		return ""
	}
	return t.Object.ImageID()
}

// Entered forwards an enter event to the sub-object at this cell.
func (t Tile) Entered(actor object.MapObject) []message.Message {
	if e, ok := t.Sub().(object.Enterable); ok {
		return e.Entered(actor)
	}
	return nil
}

// Interacted forwards an interact event to the sub-object at this cell.
func (t Tile) Interacted(actor object.MapObject) []message.Message {
	if i, ok := t.Sub().(object.Interactable); ok {
		return i.Interacted(actor)
	}
	return nil
}

// Layer is one painted image in a cell.
type Layer struct {
	ImageID string `json:"image"`
	ZIndex  int    `json:"z"`
}

// Grid is a rows×cols array of tile stacks. It is not safe for concurrent
// use; the owning room serializes access.
type Grid struct {
	rows, cols int
	cells      [][]Tile
}

// New creates an empty grid.
//
// Precondition: rows and cols must be >= 1.
func New(rows, cols int) *Grid {
	if rows < 1 || cols < 1 {
		panic(fmt.Sprintf("tilemap.New: invalid size %dx%d", rows, cols))
	}
	return &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([][]Tile, rows*cols),
	}
}

// Rows returns the grid height.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the grid width.
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether c is a cell of the grid.
func (g *Grid) InBounds(c geom.Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Fits reports whether a footprint of rows×cols anchored at topLeft lies
// entirely inside the grid.
func (g *Grid) Fits(topLeft geom.Coord, rows, cols int) bool {
	return g.InBounds(topLeft) && g.InBounds(topLeft.Add(geom.C(rows-1, cols-1)))
}

func (g *Grid) index(c geom.Coord) int {
	return c.Row*g.cols + c.Col
}

// AddFootprint appends one tile per footprint cell of obj anchored at topLeft.
//
// Postcondition: Returns an error wrapping ErrOutOfBounds, without mutating
// any cell, if the footprint leaves the grid.
func (g *Grid) AddFootprint(obj object.MapObject, topLeft geom.Coord) error {
	fp := obj.Footprint()
	if !g.Fits(topLeft, fp.Rows(), fp.Cols()) {
		return fmt.Errorf("adding %s %dx%d at %v to %dx%d grid: %w",
			obj.Kind(), fp.Rows(), fp.Cols(), topLeft, g.rows, g.cols, ErrOutOfBounds)
	}
	for _, off := range fp.Offsets() {
		i := g.index(topLeft.Add(off))
		g.cells[i] = append(g.cells[i], Tile{Object: obj, Offset: off})
	}
	return nil
}

// RemoveFootprint removes, from every footprint cell of obj anchored at
// topLeft, the first tile referencing obj.
//
// Postcondition: Returns true after removing exactly rows×cols tiles, or
// false with no cell mutated if any cell lacks a matching tile.
func (g *Grid) RemoveFootprint(obj object.MapObject, topLeft geom.Coord) bool {
	fp := obj.Footprint()
	if !g.Fits(topLeft, fp.Rows(), fp.Cols()) {
		return false
	}
	offsets := fp.Offsets()
	found := make([]int, len(offsets))
	for k, off := range offsets {
		found[k] = -1
		for j, t := range g.cells[g.index(topLeft.Add(off))] {
			if t.Object == obj {
				found[k] = j
				break
			}
		}
		if found[k] < 0 {
			return false
		}
	}
	for k, off := range offsets {
		i := g.index(topLeft.Add(off))
		cell := g.cells[i]
		j := found[k]
		g.cells[i] = append(cell[:j:j], cell[j+1:]...)
	}
	return true
}

// CellAt returns a copy of the tile stack at c in insertion order.
//
// Postcondition: Returns nil if c is out of bounds.
func (g *Grid) CellAt(c geom.Coord) []Tile {
	if !g.InBounds(c) {
		return nil
	}
	cell := g.cells[g.index(c)]
	out := make([]Tile, len(cell))
	copy(out, cell)
	return out
}

// FindFirst returns the first cell, in row-major order, holding a tile of obj.
//
// Postcondition: ok is false if obj is not on the grid.
func (g *Grid) FindFirst(obj object.MapObject) (geom.Coord, bool) {
	for i, cell := range g.cells {
		for _, t := range cell {
			if t.Object == obj {
				return geom.C(i/g.cols, i%g.cols), true
			}
		}
	}
	return geom.Coord{}, false
}

// RenderLayers returns, per cell, the images of anchor tiles with their
// z-index in insertion order. Ties in z-index are left to the painter, which
// draws later entries over earlier ones.
func (g *Grid) RenderLayers() [][][]Layer {
	out := make([][][]Layer, g.rows)
	for r := 0; r < g.rows; r++ {
		row := make([][]Layer, g.cols)
		for c := 0; c < g.cols; c++ {
			var layers []Layer
			for _, t := range g.cells[r*g.cols+c] {
				if img := t.ImageID(); img != "" {
					layers = append(layers, Layer{ImageID: img, ZIndex: t.ZIndex()})
				}
			}
			row[c] = layers
		}
		out[r] = row
	}
	return out
}
