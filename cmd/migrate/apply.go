package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	"github.com/cory-johannsen/tileworld/internal/config"
)

// Actions accepted by -action.
const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionVersion = "version"
	ActionForce   = "force"
)

// Migrator is the subset of *migrate.Migrate the command drives.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
}

// Plan is one invocation of the command.
type Plan struct {
	Action string
	// Steps limits up and down; 0 applies every pending migration.
	Steps int
	// Version is the schema version recorded by ActionForce.
	Version int
}

// Apply runs p against m.
//
// Precondition: p.Steps must be >= 0.
// Postcondition: Returns changed=false with a nil error when the schema was
// already at the requested version.
func Apply(m Migrator, p Plan) (bool, error) {
	if p.Steps < 0 {
		return false, fmt.Errorf("steps must be >= 0, got %d", p.Steps)
	}
	var err error
	switch p.Action {
	case ActionUp:
		if p.Steps > 0 {
			err = m.Steps(p.Steps)
		} else {
			err = m.Up()
		}
	case ActionDown:
		if p.Steps > 0 {
			err = m.Steps(-p.Steps)
		} else {
			err = m.Down()
		}
	case ActionForce:
		if p.Version < 0 {
			return false, errors.New("force requires -force-version >= 0")
		}
		err = m.Force(p.Version)
	case ActionVersion:
		return false, nil
	default:
		return false, fmt.Errorf("invalid action %q: must be one of up, down, version, force", p.Action)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// requirePostgres rejects backends that keep their schema elsewhere.
func requirePostgres(s config.StateConfig) error {
	if s.Backend != config.BackendPostgres {
		return fmt.Errorf("state.backend is %q: migrations only apply to %q", s.Backend, config.BackendPostgres)
	}
	return nil
}

// sourceURL returns the file source for dir, falling back to
// state.migrations_dir when dir is empty.
func sourceURL(s config.StateConfig, dir string) string {
	if dir == "" {
		dir = s.MigrationsDir
	}
	return "file://" + dir
}
