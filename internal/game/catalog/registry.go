package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/object"
)

// ErrUnknownKind is returned for an object kind with no registered constructor.
var ErrUnknownKind = errors.New("unknown object kind")

// Env is the per-room context handed to constructors.
type Env struct {
	Footprints *footprint.Registry

	channels map[string]*object.SharedText
	npcs     map[string]*object.NPC
}

// NewEnv creates an empty per-room environment.
func NewEnv(footprints *footprint.Registry) *Env {
	return &Env{
		Footprints: footprints,
		channels:   make(map[string]*object.SharedText),
		npcs:       make(map[string]*object.NPC),
	}
}

// Channel returns the shared text handle called name, creating it with
// initial text on first use. An empty name yields a private handle.
func (e *Env) Channel(name, initial string) *object.SharedText {
	if name == "" {
		return object.NewSharedText(initial)
	}
	ch, ok := e.channels[name]
	if !ok {
		ch = object.NewSharedText(initial)
		e.channels[name] = ch
		return ch
	}
	if ch.Get() == "" && initial != "" {
		ch.Set(initial)
	}
	return ch
}

// NPC returns the NPC declared with id.
func (e *Env) NPC(id string) (*object.NPC, bool) {
	n, ok := e.npcs[id]
	return n, ok
}

// Constructor builds one object from its declaration.
type Constructor func(env *Env, spec ObjectSpec) (object.MapObject, error)

// Registry maps object kinds to constructors. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor for kind.
//
// Postcondition: Returns an error if kind is empty or already registered.
func (r *Registry) Register(kind string, c Constructor) error {
	if kind == "" {
		return errors.New("kind must not be empty")
	}
	if _, exists := r.ctors[kind]; exists {
		return fmt.Errorf("kind %q already registered", kind)
	}
	r.ctors[kind] = c
	return nil
}

// MustRegister is Register that panics on error, for static tables.
func (r *Registry) MustRegister(kind string, c Constructor) {
	if err := r.Register(kind, c); err != nil {
		panic(err)
	}
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Construct builds spec through its kind's constructor.
func (r *Registry) Construct(env *Env, spec ObjectSpec) (object.MapObject, error) {
	c, ok := r.ctors[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", spec.Kind, ErrUnknownKind)
	}
	obj, err := c(env, spec)
	if err != nil {
		return nil, fmt.Errorf("constructing %s at %v: %w", spec.Kind, spec.At, err)
	}
	return obj, nil
}

func passable(spec ObjectSpec, def bool) bool {
	if spec.Passable != nil {
		return *spec.Passable
	}
	return def
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func npcFromSpec(spec ObjectSpec) *object.NPC {
	return object.NewNPC(object.NPCConfig{
		Name:            spec.Name,
		Sprite:          spec.Sprite,
		EncounterText:   spec.Encounter,
		StaringDistance: spec.StaringDistance,
		Lines:           spec.Lines,
		Chatter:         spec.Chatter,
		ChatterEvery:    spec.ChatterEvery,
	})
}

// Builtin returns a registry holding every built-in kind.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister("background", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewBackground(env.Footprints, withDefault(s.Image, "grass"), passable(s, true))
	})
	r.MustRegister("water", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewWater(env.Footprints)
	})
	r.MustRegister("decor", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewDecor(env.Footprints, s.Image)
	})
	r.MustRegister("interior_decor", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewInteriorDecor(env.Footprints, s.Image)
	})
	r.MustRegister("plain", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		z := object.ZDefault
		if s.Z != nil {
			z = *s.Z
		}
		return object.NewPlain(env.Footprints, s.Image, passable(s, false), z)
	})
	r.MustRegister("empty", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewEmpty(passable(s, true)), nil
	})
	r.MustRegister("door", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewDoor(env.Footprints, withDefault(s.Image, "mat"), s.Link)
	})
	r.MustRegister("building", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewBuilding(env.Footprints, s.Image, s.DoorOffset, s.Link)
	})
	r.MustRegister("sign", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewSign(env.Footprints, withDefault(s.Image, "sign"), s.Text)
	})
	r.MustRegister("board", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewBoard(env.Footprints, withDefault(s.Image, "sign"), env.Channel(s.Channel, s.Text))
	})
	r.MustRegister("pressure_plate", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		return object.NewPressurePlate(env.Footprints, env.Channel(s.Channel, withDefault(s.Text, object.DefaultPlateText)))
	})
	r.MustRegister("music_plate", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		if s.Sound == "" {
			return nil, errors.New("music plate needs a sound")
		}
		return object.NewMusicPlate(env.Footprints, s.Sound)
	})
	r.MustRegister("jukebox", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		if len(s.Songs) == 0 {
			return nil, errors.New("jukebox needs at least one song")
		}
		return object.NewJukeboxPlate(env.Footprints, s.Songs, env.Channel(s.Channel, ""))
	})
	r.MustRegister("computer", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		opts := make([]object.MenuOption, len(s.Options))
		for i, o := range s.Options {
			if o.Label == "" || o.Command == "" {
				return nil, fmt.Errorf("menu option %d needs a label and a command", i)
			}
			opts[i] = object.MenuOption{Label: o.Label, Command: o.Command}
		}
		return object.NewComputer(env.Footprints, s.Title, opts)
	})
	r.MustRegister("counter", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		var clerk object.Interactable
		if s.NPC != "" {
			n, ok := env.NPC(s.NPC)
			if !ok {
				return nil, fmt.Errorf("counter refers to undeclared npc %q", s.NPC)
			}
			clerk = n
		}
		return object.NewCounter(env.Footprints, withDefault(s.Colour, "brown"), clerk)
	})
	r.MustRegister("npc", func(env *Env, s ObjectSpec) (object.MapObject, error) {
		if s.ID != "" {
			if n, ok := env.NPC(s.ID); ok {
				return n, nil
			}
		}
		return npcFromSpec(s), nil
	})
	return r
}
