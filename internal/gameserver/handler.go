package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/game/command"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

// IntentKind names what a client asked for.
type IntentKind string

// Intent kinds.
const (
	IntentMove       IntentKind = "move"
	IntentMenuOption IntentKind = "menu_option"
	IntentText       IntentKind = "text"
)

// InteractKey is the move value that interacts in the facing direction.
const InteractKey = "space"

// User-facing notices.
const (
	InvalidDirectionText = "Invalid direction."
	ErrorText            = command.ErrorText
)

// ErrNotInRoom is returned when a player's recorded room does not resolve.
var ErrNotInRoom = errors.New("player is not in a room")

// Intent is one decoded client request.
type Intent struct {
	Kind  IntentKind
	Value string
}

// Handler maps client intents to room operations and hands the resulting
// messages to the dispatcher.
type Handler struct {
	logger     *zap.Logger
	world      *world.Manager
	commands   *command.Registry
	store      state.Store
	dispatcher *Dispatcher
}

// NewHandler creates a Handler.
//
// Precondition: every argument except store must be non-nil. A nil store
// disables state commands and notices.
func NewHandler(logger *zap.Logger, w *world.Manager, commands *command.Registry, store state.Store, d *Dispatcher) *Handler {
	return &Handler{
		logger:     logger.Named("intents"),
		world:      w,
		commands:   commands,
		store:      store,
		dispatcher: d,
	}
}

// Join places p at the start room's entry and greets it.
//
// Postcondition: Every client of the start room is redrawn; p additionally
// receives the room description and any pending notices.
func (h *Handler) Join(ctx context.Context, p *object.Player) error {
	rm := h.world.StartRoom()
	if err := rm.Join(p, rm.Entry()); err != nil {
		return fmt.Errorf("joining %q: %w", rm.Name(), err)
	}
	var msgs []message.Message
	for _, c := range rm.Clients() {
		msgs = append(msgs, message.Redraw{To: c, WithDescription: c == object.Human(p)})
	}
	msgs = append(msgs, message.Notice{To: p, Text: rm.Description()})
	msgs = append(msgs, h.flush(ctx, p)...)
	h.dispatcher.Deliver(msgs)
	h.logger.Info("player joined", zap.String("player", p.Name()), zap.String("room", rm.Name()))
	return nil
}

// Leave removes p from its room and redraws the clients left behind.
func (h *Handler) Leave(p *object.Player) {
	rm, ok := h.world.GetRoom(p.RoomName())
	if !ok || !rm.Leave(p) {
		return
	}
	h.dispatcher.Deliver(rm.Redraw())
	h.logger.Info("player left", zap.String("player", p.Name()), zap.String("room", rm.Name()))
}

// Handle performs one intent on behalf of p and delivers the result. A panic
// while handling is reported to p as ErrorText.
func (h *Handler) Handle(ctx context.Context, p *object.Player, in Intent) {
	h.dispatcher.Deliver(h.Process(ctx, p, in))
}

// Process performs one intent and returns the messages it produced without
// delivering them.
func (h *Handler) Process(ctx context.Context, p *object.Player, in Intent) (msgs []message.Message) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("intent panicked",
				zap.String("player", p.Name()),
				zap.String("intent", string(in.Kind)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			msgs = message.Notify(p, ErrorText)
		}
	}()

	rm, ok := h.world.GetRoom(p.RoomName())
	if !ok {
		h.logger.Error("intent from unplaced player", zap.String("player", p.Name()), zap.Error(ErrNotInRoom))
		return message.Notify(p, ErrorText)
	}

	switch in.Kind {
	case IntentMove:
		return h.move(rm, p, in.Value)
	case IntentMenuOption:
		out, err := h.commands.ExecuteMenuOption(ctx, h.env(p, rm), in.Value)
		h.logCommandError(p, err)
		return out
	case IntentText:
		return h.text(ctx, rm, p, in.Value)
	default:
		h.logger.Debug("ignoring unknown intent", zap.String("player", p.Name()), zap.String("intent", string(in.Kind)))
		return nil
	}
}

func (h *Handler) move(rm *room.Room, p *object.Player, value string) []message.Message {
	if value == InteractKey {
		return rm.Interact(p, p.Facing())
	}
	dir, err := geom.ParseDirection(value)
	if err != nil {
		return message.Notify(p, InvalidDirectionText)
	}
	msgs, err := rm.Move(p, dir)
	if err != nil {
		h.logger.Error("move failed", zap.String("player", p.Name()), zap.String("room", rm.Name()), zap.Error(err))
		return message.Notify(p, ErrorText)
	}
	return msgs
}

func (h *Handler) text(ctx context.Context, rm *room.Room, p *object.Player, text string) []message.Message {
	if !command.IsCommand(text) {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []message.Message{message.Chat{From: p, To: rm, Text: text}}
	}
	msgs, err := h.commands.Execute(ctx, h.env(p, rm), text)
	h.logCommandError(p, err)
	return append(msgs, h.flush(ctx, p)...)
}

func (h *Handler) env(p *object.Player, rm *room.Room) command.Env {
	return command.Env{Player: p, Room: rm, World: h.world, State: h.store}
}

func (h *Handler) flush(ctx context.Context, p *object.Player) []message.Message {
	if h.store == nil {
		return nil
	}
	msg, ok, err := command.FlushNotices(ctx, h.store, p)
	if err != nil {
		h.logger.Warn("flushing notices", zap.String("player", p.Name()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return []message.Message{msg}
}

func (h *Handler) logCommandError(p *object.Player, err error) {
	if err != nil {
		h.logger.Error("command failed", zap.String("player", p.Name()), zap.Error(err))
	}
}
