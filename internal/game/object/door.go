package object

import (
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// DisconnectedDoorText is shown to a player stepping through an unlinked door.
const DisconnectedDoorText = "This door doesn't lead anywhere."

// Door is a passable object that sends a human to another room once the
// topology builder has connected it.
type Door struct {
	Base
	linkedRoom string

	mu        sync.RWMutex
	connected bool
	target    string
	entry     geom.Coord
}

// NewDoor creates a standalone door of the given image that declares an
// exit to linkedRoom ("" for none).
func NewDoor(reg *footprint.Registry, image, linkedRoom string) (*Door, error) {
	b, err := resolveBase(reg, "tile/door/"+image, true, ZDefault)
	if err != nil {
		return nil, err
	}
	return &Door{Base: b, linkedRoom: linkedRoom}, nil
}

// newEmbeddedDoor creates the invisible door cell of a building.
func newEmbeddedDoor(linkedRoom string) *Door {
	d := &Door{
		Base:       newBase("", true, ZDefault, footprint.Size{Rows: 1, Cols: 1}),
		linkedRoom: linkedRoom,
	}
	d.name = "door"
	return d
}

// LinkedRoom returns the declared destination room name.
func (d *Door) LinkedRoom() string {
	return d.linkedRoom
}

// ConnectTo links the door so that travelling through it lands at entry in room.
func (d *Door) ConnectTo(room string, entry geom.Coord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	d.target = room
	d.entry = entry
}

// Target returns the connected room and entry point.
//
// Postcondition: ok is false when the door has not been connected.
func (d *Door) Target() (room string, entry geom.Coord, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.target, d.entry, d.connected
}

// Entered implements Enterable. Only humans travel.
func (d *Door) Entered(actor MapObject) []message.Message {
	if !IsHuman(actor) {
		return nil
	}
	room, entry, ok := d.Target()
	if !ok {
		return message.Notify(actor, DisconnectedDoorText)
	}
	return []message.Message{message.Travel{Traveler: actor, ToRoom: room, Entry: entry}}
}

// Exits implements ExitProducer.
func (d *Door) Exits() []Exit {
	return []Exit{{Door: d, Position: d.Position(), LinkedRoom: d.linkedRoom}}
}
