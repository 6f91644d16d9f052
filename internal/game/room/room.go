// Package room implements a single map: a grid of stacked tiles, the objects
// placed on it, and the human clients currently present. All mutations of a
// room are serialized by the room's mutex; no method blocks on I/O.
package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/tilemap"
)

// ErrGridCorrupted reports that the grid no longer matches an object's
// recorded position. It is only returned for invariant violations.
var ErrGridCorrupted = errors.New("grid corrupted")

// User-facing notices.
const (
	NotInCellText      = "Object cannot be removed because it is not in the cell."
	CannotInteractText = "You cannot interact in that direction."
)

// Config is a room's static metadata.
type Config struct {
	ID          int
	Name        string
	Description string
	Rows        int
	Cols        int
	Entry       geom.Coord
	Music       string
	// Commands names the chat commands available in the room, in listing order.
	Commands []string
}

// Placement is one declared object and its anchor.
type Placement struct {
	Object object.MapObject
	At     geom.Coord
}

// View is a render snapshot sent to a client.
type View struct {
	Name        string
	Layers      [][][]tilemap.Layer
	Music       string
	Description string
}

// Room is one map of the world.
type Room struct {
	cfg Config

	mu        sync.Mutex
	grid      *tilemap.Grid
	occupants []object.MapObject
	present   map[object.MapObject]struct{}
	observers []object.MapObject
	clients   []object.Human

	// exits is fixed at construction.
	exits []object.Exit
}

// New builds a room and places every declared object in order.
//
// Precondition: cfg.Rows and cfg.Cols must be >= 1 and cfg.Name non-empty.
// Postcondition: Returns an error if any placement leaves the grid; the
// room's exits are collected from the placed objects.
func New(cfg Config, placements []Placement) (*Room, error) {
	if cfg.Name == "" {
		return nil, errors.New("room name must not be empty")
	}
	if cfg.Rows < 1 || cfg.Cols < 1 {
		return nil, fmt.Errorf("room %q: invalid size %dx%d", cfg.Name, cfg.Rows, cfg.Cols)
	}
	r := &Room{
		cfg:     cfg,
		grid:    tilemap.New(cfg.Rows, cfg.Cols),
		present: make(map[object.MapObject]struct{}),
	}
	if !r.grid.InBounds(cfg.Entry) {
		return nil, fmt.Errorf("room %q: entry %v outside %dx%d grid: %w",
			cfg.Name, cfg.Entry, cfg.Rows, cfg.Cols, tilemap.ErrOutOfBounds)
	}
	for _, p := range placements {
		if err := r.place(p.Object, p.At); err != nil {
			return nil, fmt.Errorf("room %q: %w", cfg.Name, err)
		}
		if _, ok := p.Object.(object.MoveObserver); ok {
			r.observers = append(r.observers, p.Object)
		}
	}
	for _, o := range r.occupants {
		if ep, ok := o.(object.ExitProducer); ok {
			r.exits = append(r.exits, ep.Exits()...)
		}
	}
	return r, nil
}

// RecipientName implements message.Recipient.
func (r *Room) RecipientName() string { return r.cfg.Name }

// Name returns the room's unique name.
func (r *Room) Name() string { return r.cfg.Name }

// ID returns the allocated room id.
func (r *Room) ID() int { return r.cfg.ID }

// Rows returns the grid height.
func (r *Room) Rows() int { return r.cfg.Rows }

// Cols returns the grid width.
func (r *Room) Cols() int { return r.cfg.Cols }

// Entry returns the default arrival cell.
func (r *Room) Entry() geom.Coord { return r.cfg.Entry }

// Music returns the background audio id.
func (r *Room) Music() string { return r.cfg.Music }

// Commands returns the room's chat command names.
func (r *Room) Commands() []string {
	return append([]string(nil), r.cfg.Commands...)
}

// Exits returns the exits discovered at construction.
func (r *Room) Exits() []object.Exit {
	return append([]object.Exit(nil), r.exits...)
}

// Place force-places obj with its anchor at topLeft. Passability is not
// checked.
//
// Postcondition: Returns an error wrapping tilemap.ErrOutOfBounds, without
// mutating the room, if the footprint leaves the grid.
func (r *Room) Place(obj object.MapObject, topLeft geom.Coord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.place(obj, topLeft)
}

func (r *Room) place(obj object.MapObject, topLeft geom.Coord) error {
	if err := r.grid.AddFootprint(obj, topLeft); err != nil {
		return err
	}
	obj.SetPosition(topLeft)
	if _, ok := r.present[obj]; !ok {
		r.present[obj] = struct{}{}
		r.occupants = append(r.occupants, obj)
	}
	if res, ok := obj.(object.Resident); ok {
		res.EnterRoom(r)
	}
	return nil
}

// Remove removes obj's footprint anchored at topLeft.
//
// Postcondition: On failure returns false and a user-displayable reason;
// neither the grid nor the occupant set is changed.
func (r *Room) Remove(obj object.MapObject, topLeft geom.Coord) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(obj, topLeft)
}

// RemoveFirst removes obj from the first cell, in row-major order, that
// holds one of its tiles.
func (r *Room) RemoveFirst(obj object.MapObject) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.grid.FindFirst(obj)
	if !ok {
		return false, NotInCellText
	}
	return r.remove(obj, at)
}

func (r *Room) remove(obj object.MapObject, topLeft geom.Coord) (bool, string) {
	if !r.grid.RemoveFootprint(obj, topLeft) {
		return false, NotInCellText
	}
	r.forget(obj)
	return true, ""
}

func (r *Room) forget(obj object.MapObject) {
	if _, ok := r.present[obj]; !ok {
		return
	}
	delete(r.present, obj)
	for i, o := range r.occupants {
		if o == obj {
			r.occupants = append(r.occupants[:i], r.occupants[i+1:]...)
			break
		}
	}
}

// Contains reports whether obj is placed in this room.
func (r *Room) Contains(obj object.MapObject) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.present[obj]
	return ok
}

// Occupants returns the placed objects in placement order.
func (r *Room) Occupants() []object.MapObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]object.MapObject(nil), r.occupants...)
}

// CellAt returns a copy of the tile stack at c.
func (r *Room) CellAt(c geom.Coord) []tilemap.Tile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid.CellAt(c)
}

// Move steps obj one cell in dir.
//
// A rejected move (out of bounds or impassable target) returns no messages
// and leaves the room untouched. A successful move returns, in order: a
// redraw for every client, the entered reactions of the target cell, and
// every observer's reaction.
//
// Postcondition: Returns an error wrapping ErrGridCorrupted only if the
// grid disagrees with a non-human object's recorded position.
func (r *Room) Move(obj object.MapObject, dir geom.Direction) ([]message.Message, error) {
	if !dir.Valid() {
		if object.IsHuman(obj) {
			return message.Notify(obj, fmt.Sprintf("%q is not a direction.", dir)), nil
		}
		return nil, nil
	}
	if f, ok := obj.(interface{ Face(geom.Direction) }); ok {
		f.Face(dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fp := obj.Footprint()
	from := obj.Position()
	target := from.Add(dir.Delta())
	if !r.grid.Fits(target, fp.Rows(), fp.Cols()) {
		return nil, nil
	}
	for _, t := range r.grid.CellAt(target) {
		if t.Object != obj && !t.Passable() {
			return nil, nil
		}
	}

	if !r.grid.RemoveFootprint(obj, from) {
		if object.IsHuman(obj) {
			return message.Notify(obj, NotInCellText), nil
		}
		return nil, fmt.Errorf("moving %s from %v in %q: %w", obj.Kind(), from, r.cfg.Name, ErrGridCorrupted)
	}
	entered := r.grid.CellAt(target)
	if err := r.grid.AddFootprint(obj, target); err != nil {
		if rerr := r.grid.AddFootprint(obj, from); rerr != nil {
			r.forget(obj)
		}
		return nil, fmt.Errorf("moving %s to %v in %q: %w", obj.Kind(), target, r.cfg.Name, errors.Join(ErrGridCorrupted, err))
	}
	obj.SetPosition(target)

	msgs := r.redrawLocked()
	for _, t := range entered {
		msgs = append(msgs, t.Entered(obj)...)
	}
	for _, o := range r.observers {
		if o == obj {
			continue
		}
		msgs = append(msgs, o.(object.MoveObserver).PlayerMoved(obj)...)
	}
	return msgs, nil
}

// Interact fires the interacted reaction of every tile in the cell adjacent
// to obj in dir. Humans receive CannotInteractText when the cell is outside
// the grid or nothing there reacts.
func (r *Room) Interact(obj object.MapObject, dir geom.Direction) []message.Message {
	human := object.IsHuman(obj)
	if !dir.Valid() {
		if human {
			return message.Notify(obj, CannotInteractText)
		}
		return nil
	}
	if f, ok := obj.(interface{ Face(geom.Direction) }); ok {
		f.Face(dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fp := obj.Footprint()
	target := obj.Position().Add(dir.Delta())
	var msgs []message.Message
	if r.grid.Fits(target, fp.Rows(), fp.Cols()) {
		for _, t := range r.grid.CellAt(target) {
			if t.Object == obj {
				continue
			}
			msgs = append(msgs, t.Interacted(obj)...)
		}
	}
	if len(msgs) == 0 && human {
		return message.Notify(obj, CannotInteractText)
	}
	return msgs
}

// Tick gives every occupant one autonomous update.
func (r *Room) Tick() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []message.Message
	for _, o := range r.occupants {
		if t, ok := o.(object.Ticker); ok {
			msgs = append(msgs, t.Update()...)
		}
	}
	return msgs
}

// Join places a human at entry and appends it to the client list.
//
// Postcondition: Returns an error, leaving the room unchanged, if the human
// is already a client or entry is outside the grid.
func (r *Room) Join(h object.Human, entry geom.Coord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.join(h, entry)
}

func (r *Room) join(h object.Human, entry geom.Coord) error {
	if r.clientIndex(h) >= 0 {
		return fmt.Errorf("%s is already in %q", h.Name(), r.cfg.Name)
	}
	if err := r.place(h, entry); err != nil {
		return err
	}
	r.clients = append(r.clients, h)
	return nil
}

// Leave removes a human from the client list and the grid.
//
// Postcondition: Returns false if h was not a client of this room.
func (r *Room) Leave(h object.Human) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leave(h)
}

func (r *Room) leave(h object.Human) bool {
	i := r.clientIndex(h)
	if i < 0 {
		return false
	}
	r.clients = append(r.clients[:i], r.clients[i+1:]...)
	if ok, _ := r.remove(h, h.Position()); !ok {
		if at, found := r.grid.FindFirst(h); found {
			r.remove(h, at)
		}
	}
	r.forget(h)
	for _, o := range r.observers {
		if lo, ok := o.(object.LeaveObserver); ok {
			lo.PlayerLeft(h)
		}
	}
	return true
}

func (r *Room) clientIndex(h object.Human) int {
	for i, c := range r.clients {
		if c == h {
			return i
		}
	}
	return -1
}

// Clients returns the connected humans in arrival order.
func (r *Room) Clients() []object.Human {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]object.Human(nil), r.clients...)
}

// ClientNames returns the names of connected humans in arrival order.
func (r *Room) ClientNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientNamesLocked()
}

func (r *Room) clientNamesLocked() []string {
	names := make([]string, len(r.clients))
	for i, c := range r.clients {
		names[i] = c.Name()
	}
	return names
}

// Redraw returns one redraw message per connected client.
func (r *Room) Redraw() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redrawLocked()
}

func (r *Room) redrawLocked() []message.Message {
	msgs := make([]message.Message, 0, len(r.clients))
	for _, c := range r.clients {
		msgs = append(msgs, message.Redraw{To: c})
	}
	return msgs
}

// Broadcast returns one notice per connected client.
func (r *Room) Broadcast(text string) []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]message.Message, 0, len(r.clients))
	for _, c := range r.clients {
		msgs = append(msgs, message.Notice{To: c, Text: text})
	}
	return msgs
}

// RenderLayers returns the grid's per-cell image layers.
func (r *Room) RenderLayers() [][][]tilemap.Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid.RenderLayers()
}

// Description returns the room description followed by who is present.
func (r *Room) Description() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.describeLocked()
}

func (r *Room) describeLocked() string {
	if len(r.clients) == 0 {
		return r.cfg.Description
	}
	return fmt.Sprintf("%s The following users are here: %s.",
		r.cfg.Description, strings.Join(r.clientNamesLocked(), ", "))
}

// Snapshot captures everything a client needs to paint the room.
func (r *Room) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return View{
		Name:        r.cfg.Name,
		Layers:      r.grid.RenderLayers(),
		Music:       r.cfg.Music,
		Description: r.describeLocked(),
	}
}

// Transfer moves a human client from src to dst, anchored at entry. Both
// rooms are locked in name order. A traveller whose arrival fails is put
// back where it stood.
//
// Postcondition: On error h remains a client of src at its original cell.
func Transfer(src, dst *Room, h object.Human, entry geom.Coord) error {
	if src == dst {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.relocate(h, entry)
	}
	first, second := src, dst
	if dst.cfg.Name < src.cfg.Name {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	from := h.Position()
	if src.clientIndex(h) < 0 {
		return fmt.Errorf("%s is not in %q", h.Name(), src.cfg.Name)
	}
	if !dst.grid.Fits(entry, h.Footprint().Rows(), h.Footprint().Cols()) {
		return fmt.Errorf("entering %q at %v: %w", dst.cfg.Name, entry, tilemap.ErrOutOfBounds)
	}
	src.leave(h)
	if err := dst.join(h, entry); err != nil {
		if rerr := src.join(h, from); rerr != nil {
			return fmt.Errorf("restoring %s in %q: %w", h.Name(), src.cfg.Name, errors.Join(ErrGridCorrupted, err, rerr))
		}
		return err
	}
	return nil
}

func (r *Room) relocate(h object.Human, entry geom.Coord) error {
	from := h.Position()
	if !r.grid.RemoveFootprint(h, from) {
		return fmt.Errorf("relocating %s in %q: %w", h.Name(), r.cfg.Name, ErrGridCorrupted)
	}
	if err := r.grid.AddFootprint(h, entry); err != nil {
		_ = r.grid.AddFootprint(h, from)
		return err
	}
	h.SetPosition(entry)
	return nil
}
