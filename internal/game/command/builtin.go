package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/state"
)

// State keys written by commands.
const (
	KeyNotices       = "notices"
	KeyJokesReceived = "num_jokes_received"
	KeyJokesTold     = "num_jokes_told"
)

// JokeText is the one joke the town knows.
const JokeText = "Why did the scarecrow win an award? Because he was outstanding in his field!"

const (
	noticesHeader = "Notices:"
	stateUsage    = "Usage: state get <key> | state set <key> <value> | state delete <key> | state keys"
	msgUsage      = "Usage: msg <player> <text>"
)

var errNoStore = errors.New("state is unavailable")

// BuiltinCommands returns all built-in chat commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "help", Aliases: []string{"list"}, Help: "List the commands available here", Category: CategorySystem, Run: runHelp},
		{Name: "look", Aliases: []string{"l"}, Help: "Describe the current room", Category: CategoryWorld, Run: runLook},
		{Name: "who", Help: "List connected players and where they are", Category: CategorySystem, Run: runWho},
		{Name: "state", Help: "Read or write your saved state (state get|set|delete|keys)", Category: CategoryState, Run: runState},
		{Name: "msg", Aliases: []string{"tell"}, Help: "Send a private message (msg <player> <text>)", Category: CategoryCommunication, Run: runMsg},
		{Name: "joke", Help: "Hear a joke", Category: CategoryRoom, MenuUsable: true, Run: runJoke},
		{Name: "rooms", Help: "List every room and its occupants", Category: CategoryAdmin, Run: runRooms},
	}
}

func runHelp(_ context.Context, env Env, _ Invocation) ([]message.Message, error) {
	return message.Notify(env.Player, env.Commands.Listing(env.Player, env.Room)), nil
}

func runLook(_ context.Context, env Env, _ Invocation) ([]message.Message, error) {
	return message.Notify(env.Player, env.Room.Description()), nil
}

func runWho(_ context.Context, env Env, _ Invocation) ([]message.Message, error) {
	var lines []string
	for _, r := range env.World.Rooms() {
		for _, name := range sortedNames(r.Clients()) {
			lines = append(lines, fmt.Sprintf("%s (%s)", name, r.Name()))
		}
	}
	if len(lines) == 0 {
		return message.Notify(env.Player, "Nobody is online."), nil
	}
	return message.Notify(env.Player, "Online: "+strings.Join(lines, ", ")), nil
}

func runState(ctx context.Context, env Env, inv Invocation) ([]message.Message, error) {
	if env.State == nil {
		return nil, errNoStore
	}
	b := state.NewBucket(env.State, state.PlayerScope(env.Player.Name()))
	if len(inv.Args) == 0 {
		return message.Notify(env.Player, stateUsage), nil
	}
	switch strings.ToLower(inv.Args[0]) {
	case "keys":
		keys, err := b.Keys(ctx)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return message.Notify(env.Player, "You have no saved state."), nil
		}
		return message.Notify(env.Player, strings.Join(keys, ", ")), nil
	case "get":
		if len(inv.Args) != 2 {
			return message.Notify(env.Player, stateUsage), nil
		}
		raw, ok, err := b.Raw(ctx, inv.Args[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			return message.Notify(env.Player, fmt.Sprintf("%s is not set.", inv.Args[1])), nil
		}
		return message.Notify(env.Player, fmt.Sprintf("%s = %s", inv.Args[1], raw)), nil
	case "set":
		if len(inv.Args) < 3 {
			return message.Notify(env.Player, stateUsage), nil
		}
		key := inv.Args[1]
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(inv.RawArgs, inv.Args[0])), key))
		if err := b.SetRaw(ctx, key, jsonValue(value)); err != nil {
			return nil, err
		}
		return message.Notify(env.Player, fmt.Sprintf("%s saved.", key)), nil
	case "delete":
		if len(inv.Args) != 2 {
			return message.Notify(env.Player, stateUsage), nil
		}
		if err := b.Delete(ctx, inv.Args[1]); err != nil {
			return nil, err
		}
		return message.Notify(env.Player, fmt.Sprintf("%s deleted.", inv.Args[1])), nil
	default:
		return message.Notify(env.Player, stateUsage), nil
	}
}

// jsonValue keeps valid JSON as-is and stores anything else as a string.
func jsonValue(v string) json.RawMessage {
	if json.Valid([]byte(v)) {
		return json.RawMessage(v)
	}
	raw, _ := json.Marshal(v)
	return raw
}

func runMsg(ctx context.Context, env Env, inv Invocation) ([]message.Message, error) {
	if len(inv.Args) < 2 {
		return message.Notify(env.Player, msgUsage), nil
	}
	target := inv.Args[0]
	text := strings.TrimSpace(strings.TrimPrefix(inv.RawArgs, target))
	for _, r := range env.World.Rooms() {
		for _, c := range r.Clients() {
			if c.Name() == target {
				return []message.Message{
					message.Chat{From: env.Player, To: c, Text: text},
					message.Notice{To: env.Player, Text: fmt.Sprintf("Message sent to %s.", target)},
				}, nil
			}
		}
	}
	if env.State == nil {
		return message.Notify(env.Player, fmt.Sprintf("%s is not online.", target)), nil
	}
	if err := AddNotice(ctx, env.State, target, fmt.Sprintf("%s: %s", env.Player.Name(), text)); err != nil {
		return nil, err
	}
	return message.Notify(env.Player, fmt.Sprintf("%s is not online; they will see your message next time.", target)), nil
}

func runJoke(ctx context.Context, env Env, _ Invocation) ([]message.Message, error) {
	if env.State != nil {
		if _, err := state.Incr(ctx, state.NewBucket(env.State, state.PlayerScope(env.Player.Name())), KeyJokesReceived); err != nil {
			return nil, err
		}
		if _, err := state.Incr(ctx, state.NewBucket(env.State, state.RoomScope(env.Room.Name())), KeyJokesTold); err != nil {
			return nil, err
		}
	}
	return message.Notify(env.Player, JokeText), nil
}

func runRooms(_ context.Context, env Env, _ Invocation) ([]message.Message, error) {
	var lines []string
	for _, r := range env.World.Rooms() {
		names := sortedNames(r.Clients())
		line := fmt.Sprintf("%d %s (%dx%d)", r.ID(), r.Name(), r.Rows(), r.Cols())
		if len(names) > 0 {
			line += ": " + strings.Join(names, ", ")
		}
		lines = append(lines, line)
	}
	return message.Notify(env.Player, strings.Join(lines, "\n")), nil
}

// AddNotice appends text to a player's pending notices.
func AddNotice(ctx context.Context, store state.Store, player, text string) error {
	b := state.NewBucket(store, state.PlayerScope(player))
	notices, err := state.Load(ctx, b, KeyNotices, []string(nil))
	if err != nil {
		return err
	}
	return state.Save(ctx, b, KeyNotices, append(notices, text))
}

// FlushNotices returns the player's pending notices as one Notice and clears
// them.
//
// Postcondition: ok is false when there was nothing pending.
func FlushNotices(ctx context.Context, store state.Store, player *object.Player) (msg message.Message, ok bool, err error) {
	b := state.NewBucket(store, state.PlayerScope(player.Name()))
	notices, err := state.Load(ctx, b, KeyNotices, []string(nil))
	if err != nil || len(notices) == 0 {
		return nil, false, err
	}
	if err := state.Save(ctx, b, KeyNotices, []string{}); err != nil {
		return nil, false, err
	}
	text := noticesHeader + "\n" + strings.Join(notices, "\n")
	return message.Notice{To: player, Text: text}, true, nil
}
