package catalog

import (
	"fmt"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

// Builder turns room declarations into rooms.
type Builder struct {
	Kinds      *Registry
	Footprints *footprint.Registry
	IDs        *world.IDAllocator
}

// Build constructs one room. Placement order is: the background on every
// cell, then fills in declaration order, then objects in declaration order.
// NPCs are created before anything else so counters may refer to them.
//
// Precondition: spec must have passed Validate.
// Postcondition: Returns the room or the first construction/placement error.
func (b Builder) Build(spec RoomSpec) (*room.Room, error) {
	env := NewEnv(b.Footprints)
	for _, o := range spec.Objects {
		if o.Kind == "npc" && o.ID != "" {
			if _, dup := env.npcs[o.ID]; dup {
				return nil, fmt.Errorf("room %q: duplicate npc id %q", spec.ID, o.ID)
			}
			env.npcs[o.ID] = npcFromSpec(o)
		}
	}

	var placements []room.Placement
	add := func(o ObjectSpec, at geom.Coord) error {
		o.At = at
		obj, err := b.Kinds.Construct(env, o)
		if err != nil {
			return fmt.Errorf("room %q: %w", spec.ID, err)
		}
		placements = append(placements, room.Placement{Object: obj, At: at})
		return nil
	}

	if spec.Background != "" {
		bg := ObjectSpec{Kind: "background", Image: spec.Background}
		for r := 0; r < spec.Rows; r++ {
			for c := 0; c < spec.Cols; c++ {
				if err := add(bg, geom.C(r, c)); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, f := range spec.Fills {
		for _, cell := range f.Rect.Cells() {
			if excluded(f.Except, cell) {
				continue
			}
			if err := add(f.Object, cell); err != nil {
				return nil, err
			}
		}
	}
	for _, o := range spec.Objects {
		if err := add(o, o.At); err != nil {
			return nil, err
		}
	}

	id := 0
	if b.IDs != nil {
		id = b.IDs.Next()
	}
	return room.New(room.Config{
		ID:          id,
		Name:        spec.DisplayName(),
		Description: spec.Description,
		Rows:        spec.Rows,
		Cols:        spec.Cols,
		Entry:       spec.Entry,
		Music:       spec.Music,
		Commands:    spec.Commands,
	}, placements)
}

// BuildAll constructs every room in order.
//
// Postcondition: Returns an error on the first failing room or on a
// duplicate display name.
func (b Builder) BuildAll(specs []RoomSpec) ([]*room.Room, error) {
	seen := make(map[string]string, len(specs))
	rooms := make([]*room.Room, 0, len(specs))
	for _, s := range specs {
		name := s.DisplayName()
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("rooms %q and %q share the name %q", prev, s.ID, name)
		}
		seen[name] = s.ID
		r, err := b.Build(s)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

func excluded(except []geom.Rect, c geom.Coord) bool {
	for _, r := range except {
		if r.Contains(c) {
			return true
		}
	}
	return false
}
