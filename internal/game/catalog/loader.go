// Package catalog loads declarative room definitions and turns them into
// rooms through an explicit kind → constructor table.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tileworld/internal/game/geom"
)

// RoomSpec is one declared room.
type RoomSpec struct {
	// ID is the declaring identity; the display name is derived from it
	// unless Name is set.
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Rows        int          `yaml:"rows"`
	Cols        int          `yaml:"cols"`
	Entry       geom.Coord   `yaml:"entry"`
	Music       string       `yaml:"music"`
	Background  string       `yaml:"background"`
	Commands    []string     `yaml:"commands"`
	Fills       []FillSpec   `yaml:"fills"`
	Objects     []ObjectSpec `yaml:"objects"`
}

// DisplayName returns Name, or the name derived from ID.
func (s RoomSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return DeriveName(s.ID)
}

// FillSpec places one object of the given kind on every cell of Rect,
// skipping cells inside any Except rectangle.
type FillSpec struct {
	Object ObjectSpec  `yaml:"object"`
	Rect   geom.Rect   `yaml:"rect"`
	Except []geom.Rect `yaml:"except"`
}

// MenuOptionSpec maps a computer menu label to a chat command.
type MenuOptionSpec struct {
	Label   string `yaml:"label"`
	Command string `yaml:"command"`
}

// ObjectSpec is one declared object. Only the fields relevant to Kind are
// read by its constructor.
type ObjectSpec struct {
	Kind     string     `yaml:"kind"`
	At       geom.Coord `yaml:"at"`
	Image    string     `yaml:"image"`
	Passable *bool      `yaml:"passable"`
	Z        *int       `yaml:"z"`

	Text    string `yaml:"text"`
	Channel string `yaml:"channel"`

	Link       string     `yaml:"link"`
	DoorOffset geom.Coord `yaml:"door_offset"`

	Sound string   `yaml:"sound"`
	Songs []string `yaml:"songs"`

	Title   string           `yaml:"title"`
	Options []MenuOptionSpec `yaml:"options"`

	Colour string `yaml:"colour"`
	NPC    string `yaml:"npc"`

	// NPC fields.
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Sprite          string   `yaml:"sprite"`
	Encounter       string   `yaml:"encounter"`
	StaringDistance int      `yaml:"staring_distance"`
	Lines           []string `yaml:"lines"`
	Chatter         []string `yaml:"chatter"`
	ChatterEvery    int      `yaml:"chatter_every"`
}

// yamlRoomFile is the top-level YAML structure for room files.
type yamlRoomFile struct {
	Room RoomSpec `yaml:"room"`
}

// Validate checks the room's static shape.
//
// Postcondition: Returns nil if valid, or an error describing every violation.
func (s RoomSpec) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("room id must not be empty"))
	}
	if s.Rows < 1 || s.Cols < 1 {
		errs = append(errs, fmt.Errorf("room %q: rows and cols must be >= 1, got %dx%d", s.ID, s.Rows, s.Cols))
	} else {
		bounds := geom.Rect{BottomRight: geom.C(s.Rows-1, s.Cols-1)}
		if !bounds.Contains(s.Entry) {
			errs = append(errs, fmt.Errorf("room %q: entry %v outside %dx%d", s.ID, s.Entry, s.Rows, s.Cols))
		}
	}
	for i, o := range s.Objects {
		if o.Kind == "" {
			errs = append(errs, fmt.Errorf("room %q: object %d has no kind", s.ID, i))
		}
	}
	for i, f := range s.Fills {
		if f.Object.Kind == "" {
			errs = append(errs, fmt.Errorf("room %q: fill %d has no kind", s.ID, i))
		}
	}
	return errors.Join(errs...)
}

// LoadRoomFromFile reads and validates a single room YAML file.
//
// Precondition: path must point to a valid YAML room file.
// Postcondition: Returns a validated RoomSpec or a non-nil error.
func LoadRoomFromFile(path string) (RoomSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoomSpec{}, fmt.Errorf("reading room file %s: %w", path, err)
	}
	return LoadRoomFromBytes(data)
}

// LoadRoomFromBytes parses and validates a room from YAML bytes.
//
// Postcondition: Returns a validated RoomSpec or a non-nil error.
func LoadRoomFromBytes(data []byte) (RoomSpec, error) {
	var file yamlRoomFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RoomSpec{}, fmt.Errorf("parsing room YAML: %w", err)
	}
	spec := file.Room
	spec.Description = strings.TrimSpace(spec.Description)
	if err := spec.Validate(); err != nil {
		return RoomSpec{}, fmt.Errorf("validating room: %w", err)
	}
	return spec, nil
}

// LoadRoomsFromDir loads every YAML file in dir, in file-name order.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated rooms or the first error encountered.
func LoadRoomsFromDir(dir string) ([]RoomSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading room directory %s: %w", dir, err)
	}

	var specs []RoomSpec
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		spec, err := LoadRoomFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading room from %s: %w", name, err)
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no room files found in %s", dir)
	}
	return specs, nil
}
