package object

import (
	"fmt"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
)

// Building is an impassable multi-cell object with one walkable door cell.
type Building struct {
	Base
	door       *Door
	doorOffset geom.Coord
}

// NewBuilding creates a building whose door sits at doorOffset within the
// footprint and links to linkedRoom.
//
// Postcondition: Returns an error if doorOffset lies outside the footprint.
func NewBuilding(reg *footprint.Registry, image string, doorOffset geom.Coord, linkedRoom string) (*Building, error) {
	b, err := resolveBase(reg, "tile/building/"+image, false, ZDefault)
	if err != nil {
		return nil, err
	}
	bld := &Building{Base: b, door: newEmbeddedDoor(linkedRoom), doorOffset: doorOffset}
	if err := bld.fp.Override(doorOffset, bld.door); err != nil {
		return nil, fmt.Errorf("building %q door: %w", image, err)
	}
	return bld, nil
}

// Door returns the embedded door.
func (b *Building) Door() *Door {
	return b.door
}

// SetPosition moves the building and keeps the door's absolute position in step.
func (b *Building) SetPosition(pos geom.Coord) {
	b.Base.SetPosition(pos)
	b.door.SetPosition(pos.Add(b.doorOffset))
}

// Exits implements ExitProducer.
func (b *Building) Exits() []Exit {
	return []Exit{{Door: b.door, Position: b.Position().Add(b.doorOffset), LinkedRoom: b.door.LinkedRoom()}}
}
