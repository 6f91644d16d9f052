// Package command provides the chat command registry, parser, and built-in
// command definitions.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

// Categories for organizing commands.
const (
	CategoryWorld         = "world"
	CategoryCommunication = "communication"
	CategoryState         = "state"
	CategorySystem        = "system"
	CategoryRoom          = "room"
	CategoryAdmin         = "admin"
)

// Env is everything a command body may touch. No room lock is held while a
// command runs, so bodies may call the state store.
type Env struct {
	Player *object.Player
	Room   *room.Room
	World  *world.Manager
	State  state.Store
	// Commands is the registry the command was resolved from.
	Commands *Registry
}

// Invocation is one parsed call.
type Invocation struct {
	Name    string
	Args    []string
	RawArgs string
}

// Func runs a command. A returned error is reported to the player as a
// generic failure and logged.
type Func func(ctx context.Context, env Env, inv Invocation) ([]message.Message, error)

// Command defines a player-invocable chat command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command. CategoryRoom commands are only available
	// in rooms that list them; CategoryAdmin commands only to admins.
	Category string
	// MenuUsable allows the command to be bound to a computer menu option.
	MenuUsable bool
	Run        Func
}

// Registry maps command names and aliases to Command definitions.
type Registry struct {
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
	order    []string
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if cmd.Run == nil {
			return nil, fmt.Errorf("command %q has no body", cmd.Name)
		}
		if _, exists := r.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if _, exists := r.aliases[cmd.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", cmd.Name)
		}
		r.commands[cmd.Name] = cmd
		r.order = append(r.order, cmd.Name)

		for _, alias := range cmd.Aliases {
			if _, exists := r.commands[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, cmd.Name)
			}
			r.aliases[alias] = cmd.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	if cmd, ok := r.commands[input]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Commands returns all registered commands in registration order.
func (r *Registry) Commands() []*Command {
	result := make([]*Command, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.commands[name])
	}
	return result
}

// CommandsByCategory returns commands grouped by category.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.Commands() {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}

// Available reports whether cmd may be run by player in rm.
func Available(cmd *Command, player *object.Player, rm *room.Room) bool {
	switch cmd.Category {
	case CategoryAdmin:
		return player != nil && player.Admin()
	case CategoryRoom:
		if rm == nil {
			return false
		}
		for _, name := range rm.Commands() {
			if name == cmd.Name {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Listing returns "name: help" lines for every command available to
// player in rm.
func (r *Registry) Listing(player *object.Player, rm *room.Room) string {
	var lines []string
	for _, cmd := range r.Commands() {
		if Available(cmd, player, rm) {
			lines = append(lines, fmt.Sprintf("%s: %s", cmd.Name, cmd.Help))
		}
	}
	return strings.Join(lines, "\n")
}

// Execute parses and runs one command line on behalf of env.Player.
//
// Postcondition: An unknown or unavailable command yields a single Notice
// listing the available commands. A command error is returned alongside a
// generic Notice for the player.
func (r *Registry) Execute(ctx context.Context, env Env, line string) ([]message.Message, error) {
	parsed := Parse(line)
	cmd, ok := r.Resolve(parsed.Command)
	if !ok || !Available(cmd, env.Player, env.Room) {
		return message.Notify(env.Player, "Invalid command. The following commands are available:\n"+r.Listing(env.Player, env.Room)), nil
	}
	return r.run(ctx, env, cmd, Invocation{Name: cmd.Name, Args: parsed.Args, RawArgs: parsed.RawArgs})
}

// ExecuteMenuOption runs the command bound to label on the player's open menu
// and closes the menu.
func (r *Registry) ExecuteMenuOption(ctx context.Context, env Env, label string) ([]message.Message, error) {
	menu := env.Player.Menu()
	if menu == nil {
		return message.Notify(env.Player, "No menu is open."), nil
	}
	name, ok := menu.Option(label)
	if !ok {
		return message.Notify(env.Player, fmt.Sprintf("%q is not an option.", label)), nil
	}
	env.Player.CloseMenu()
	cmd, ok := r.Resolve(name)
	if !ok || !cmd.MenuUsable || !Available(cmd, env.Player, env.Room) {
		return message.Notify(env.Player, fmt.Sprintf("%q cannot be used from a menu.", label)), nil
	}
	return r.run(ctx, env, cmd, Invocation{Name: cmd.Name})
}

func (r *Registry) run(ctx context.Context, env Env, cmd *Command, inv Invocation) ([]message.Message, error) {
	env.Commands = r
	msgs, err := cmd.Run(ctx, env, inv)
	if err != nil {
		return message.Notify(env.Player, ErrorText), fmt.Errorf("command %q: %w", cmd.Name, err)
	}
	return msgs, nil
}

// ErrorText is shown when a command fails internally.
const ErrorText = "An error occurred processing your command."

// sortedNames returns the names of players, sorted.
func sortedNames(humans []object.Human) []string {
	names := make([]string, len(humans))
	for i, h := range humans {
		names[i] = h.Name()
	}
	sort.Strings(names)
	return names
}
