package object

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

// Character is a 1×1 sprite with a facing direction: the shared part of
// players and NPCs.
type Character struct {
	Base

	cmu    sync.RWMutex
	facing geom.Direction
	room   message.Recipient
}

// init sets up a zero Character in place, facing down.
func (c *Character) init(sprite, name string, passable bool) {
	c.Base = newBase("character/"+sprite, passable, ZCharacter, footprint.Size{Rows: 1, Cols: 1})
	c.name = name
	c.facing = geom.Down
}

// ImageID returns the sprite frame for the current facing direction.
func (c *Character) ImageID() string {
	return fmt.Sprintf("%s/%s1", c.kind, c.Facing())
}

// Facing returns the direction the character looks towards.
func (c *Character) Facing() geom.Direction {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	return c.facing
}

// Face turns the character towards d. Invalid directions are ignored.
func (c *Character) Face(d geom.Direction) {
	if !d.Valid() {
		return
	}
	c.cmu.Lock()
	defer c.cmu.Unlock()
	c.facing = d
}

// EnterRoom implements Resident.
func (c *Character) EnterRoom(room message.Recipient) {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	c.room = room
}

// Room returns the room the character was last placed in, or nil.
func (c *Character) Room() message.Recipient {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	return c.room
}

// RoomName returns the name of Room(), or "" when unplaced.
func (c *Character) RoomName() string {
	r := c.Room()
	if r == nil {
		return ""
	}
	return r.RecipientName()
}
