// Package object defines the things that occupy a room's grid. A MapObject is
// a small core interface; optional behaviour is expressed through capability
// interfaces (Enterable, Interactable, ExitProducer, Ticker, MoveObserver,
// LeaveObserver, Human) that rooms discover by type assertion.
package object

import (
	"fmt"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// Paint order layers. Lower z-index is painted first.
const (
	ZBackground = -2
	ZUtility    = -1
	ZDefault    = 0
	ZCharacter  = 1
)

// MapObject is an entity that can be placed on a grid.
//
// Position is guarded by the lock of the room that owns the object.
type MapObject interface {
	message.Sender
	message.Recipient
	// Kind is the immutable visual-kind identifier.
	Kind() string
	// ImageID is the image painted at the anchor cell; "" paints nothing.
	ImageID() string
	Passable() bool
	ZIndex() int
	Position() geom.Coord
	SetPosition(geom.Coord)
	Footprint() *Footprint
}

// Enterable reacts to an actor stepping onto one of its cells.
type Enterable interface {
	Entered(actor MapObject) []message.Message
}

// Interactable reacts to an actor facing it and pressing interact.
type Interactable interface {
	Interacted(actor MapObject) []message.Message
}

// ExitProducer exposes doors leading to other rooms.
type ExitProducer interface {
	Exits() []Exit
}

// Ticker is given one opportunity per tick to act autonomously.
type Ticker interface {
	Update() []message.Message
}

// MoveObserver is notified after any successful move in its room.
type MoveObserver interface {
	PlayerMoved(actor MapObject) []message.Message
}

// LeaveObserver is told when a human leaves its room.
type LeaveObserver interface {
	PlayerLeft(actor Human)
}

// Resident is told which room it has been placed in.
type Resident interface {
	EnterRoom(room message.Recipient)
}

// Human marks an object controlled by a connected client.
type Human interface {
	MapObject
	ClientID() string
}

// IsHuman reports whether o is controlled by a connected client.
func IsHuman(o MapObject) bool {
	_, ok := o.(Human)
	return ok
}

// Exit is a door that a topology builder may link to another room.
// An empty LinkedRoom means the door leads nowhere.
type Exit struct {
	Door       *Door
	Position   geom.Coord
	LinkedRoom string
}

// Footprint is an object's rows×cols cell table. Every cell resolves to the
// owning object unless overridden by a sub-object, such as a building door.
type Footprint struct {
	size      footprint.Size
	overrides map[geom.Coord]MapObject
}

// NewFootprint creates a footprint of the given size with no overrides.
//
// Precondition: size.Rows and size.Cols must be >= 1.
func NewFootprint(size footprint.Size) *Footprint {
	if size.Rows < 1 || size.Cols < 1 {
		panic(fmt.Sprintf("object.NewFootprint: invalid size %dx%d", size.Rows, size.Cols))
	}
	return &Footprint{size: size}
}

// Size returns the footprint extent.
func (f *Footprint) Size() footprint.Size { return f.size }

// Rows returns the number of rows covered.
func (f *Footprint) Rows() int { return f.size.Rows }

// Cols returns the number of columns covered.
func (f *Footprint) Cols() int { return f.size.Cols }

// Contains reports whether off is a valid offset into the footprint.
func (f *Footprint) Contains(off geom.Coord) bool {
	return off.Row >= 0 && off.Row < f.size.Rows && off.Col >= 0 && off.Col < f.size.Cols
}

// Override replaces the sub-object at off.
//
// Postcondition: Returns an error if off lies outside the footprint.
func (f *Footprint) Override(off geom.Coord, sub MapObject) error {
	if !f.Contains(off) {
		return fmt.Errorf("offset %v outside %dx%d footprint", off, f.size.Rows, f.size.Cols)
	}
	if f.overrides == nil {
		f.overrides = make(map[geom.Coord]MapObject)
	}
	f.overrides[off] = sub
	return nil
}

// Offsets returns every offset in row-major order.
func (f *Footprint) Offsets() []geom.Coord {
	out := make([]geom.Coord, 0, f.size.Cells())
	for a := 0; a < f.size.Rows; a++ {
		for b := 0; b < f.size.Cols; b++ {
			out = append(out, geom.C(a, b))
		}
	}
	return out
}

// At resolves the sub-object owning offset off of owner.
//
// Precondition: off must lie inside owner's footprint.
func At(owner MapObject, off geom.Coord) MapObject {
	fp := owner.Footprint()
	if !fp.Contains(off) {
		panic(fmt.Sprintf("object.At: offset %v outside footprint of %s", off, owner.Kind()))
	}
	if sub, ok := fp.overrides[off]; ok {
		return sub
	}
	return owner
}

// Base carries the fields shared by every object kind. Embed it and call
// initBase from the constructor.
type Base struct {
	kind     string
	name     string
	passable bool
	zIndex   int
	position geom.Coord
	fp       *Footprint
}

func newBase(kind string, passable bool, z int, size footprint.Size) Base {
	return Base{
		kind:     kind,
		name:     kind,
		passable: passable,
		zIndex:   z,
		fp:       NewFootprint(size),
	}
}

// resolveBase builds a Base whose footprint comes from the registry.
func resolveBase(reg *footprint.Registry, kind string, passable bool, z int) (Base, error) {
	size, err := reg.Resolve(kind)
	if err != nil {
		return Base{}, err
	}
	return newBase(kind, passable, z, size), nil
}

func (b *Base) Kind() string               { return b.kind }
func (b *Base) Name() string               { return b.name }
func (b *Base) RecipientName() string      { return b.name }
func (b *Base) ImageID() string            { return b.kind }
func (b *Base) Passable() bool             { return b.passable }
func (b *Base) ZIndex() int                { return b.zIndex }
func (b *Base) Position() geom.Coord       { return b.position }
func (b *Base) SetPosition(pos geom.Coord) { b.position = pos }
func (b *Base) Footprint() *Footprint      { return b.fp }

// Plain is an object with no behaviour beyond occupying cells: terrain,
// trees, furniture.
type Plain struct {
	Base
}

// NewPlain creates a behaviourless object of kind.
//
// Postcondition: Returns an error if the kind's footprint cannot be resolved.
func NewPlain(reg *footprint.Registry, kind string, passable bool, z int) (*Plain, error) {
	b, err := resolveBase(reg, kind, passable, z)
	if err != nil {
		return nil, err
	}
	return &Plain{Base: b}, nil
}

// NewBackground creates a ground tile, painted below everything else.
func NewBackground(reg *footprint.Registry, image string, passable bool) (*Plain, error) {
	return NewPlain(reg, "tile/background/"+image, passable, ZBackground)
}

// NewWater creates an impassable water tile.
func NewWater(reg *footprint.Registry) (*Plain, error) {
	return NewBackground(reg, "water", false)
}

// NewDecor creates impassable exterior decoration.
func NewDecor(reg *footprint.Registry, image string) (*Plain, error) {
	return NewPlain(reg, "tile/ext_decor/"+image, false, ZDefault)
}

// NewInteriorDecor creates impassable interior furniture.
func NewInteriorDecor(reg *footprint.Registry, image string) (*Plain, error) {
	return NewPlain(reg, "tile/int_decor/"+image, false, ZDefault)
}

// NewEmpty creates an invisible 1×1 object, used to block or open cells
// without painting anything.
func NewEmpty(passable bool) *Plain {
	p := &Plain{Base: newBase("", passable, ZDefault, footprint.Size{Rows: 1, Cols: 1})}
	p.name = "empty"
	return p
}
