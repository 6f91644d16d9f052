// Package world holds the set of rooms, wires their doors together and moves
// travellers between them.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
)

// ErrUnknownRoom is returned when a room name does not resolve.
var ErrUnknownRoom = errors.New("unknown room")

// Traveler is a human that knows which room it currently stands in.
type Traveler interface {
	object.Human
	RoomName() string
}

// Manager provides thread-safe access to the loaded rooms. Iteration order is
// the order rooms were supplied in.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*room.Room
	order     []*room.Room
	startRoom string
}

// NewManager indexes rooms by name.
//
// Precondition: startRoom must name one of rooms.
// Postcondition: Returns an error on duplicate room names or an unknown start room.
func NewManager(rooms []*room.Room, startRoom string) (*Manager, error) {
	m := &Manager{
		rooms:     make(map[string]*room.Room, len(rooms)),
		startRoom: startRoom,
	}
	for _, r := range rooms {
		if _, exists := m.rooms[r.Name()]; exists {
			return nil, fmt.Errorf("duplicate room name %q", r.Name())
		}
		m.rooms[r.Name()] = r
		m.order = append(m.order, r)
	}
	if _, ok := m.rooms[startRoom]; !ok {
		return nil, fmt.Errorf("start room %q: %w", startRoom, ErrUnknownRoom)
	}
	return m, nil
}

// GetRoom returns the room with the given name.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (m *Manager) GetRoom(name string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[name]
	return r, ok
}

// Rooms returns every room in load order.
func (m *Manager) Rooms() []*room.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*room.Room(nil), m.order...)
}

// StartRoom returns the room new players join.
func (m *Manager) StartRoom() *room.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[m.startRoom]
}

// RoomCount returns the number of rooms.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Transfer moves t from its current room into toRoom at entry.
//
// Postcondition: On success returns a redraw for everyone left behind,
// followed by an arrival redraw and the destination description for t.
// On error t has not moved.
func (m *Manager) Transfer(t Traveler, toRoom string, entry geom.Coord) ([]message.Message, error) {
	src, ok := m.GetRoom(t.RoomName())
	if !ok {
		return nil, fmt.Errorf("traveller %s in %q: %w", t.Name(), t.RoomName(), ErrUnknownRoom)
	}
	dst, ok := m.GetRoom(toRoom)
	if !ok {
		return nil, fmt.Errorf("destination %q: %w", toRoom, ErrUnknownRoom)
	}
	if err := room.Transfer(src, dst, t, entry); err != nil {
		return nil, err
	}
	var msgs []message.Message
	if src != dst {
		msgs = append(msgs, src.Redraw()...)
	}
	for _, c := range dst.Clients() {
		msgs = append(msgs, message.Redraw{To: c, WithDescription: c == object.Human(t)})
	}
	msgs = append(msgs, message.Notice{To: t, Text: dst.Description()})
	return msgs, nil
}

// Resolve turns a travel request into the messages of the completed transfer.
// A traveller that cannot move is told so.
func (m *Manager) Resolve(tr message.Travel) ([]message.Message, error) {
	t, ok := tr.Traveler.(Traveler)
	if !ok {
		return nil, fmt.Errorf("travel requested by non-player %q", tr.Traveler.RecipientName())
	}
	msgs, err := m.Transfer(t, tr.ToRoom, tr.Entry)
	if err != nil {
		return message.Notify(t, object.DisconnectedDoorText), err
	}
	return msgs, nil
}
