package gameserver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tileworld/internal/game/command"
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

type delivery struct {
	to  string
	msg message.Message
}

// recordingSink captures every delivered message in order.
type recordingSink struct {
	mu  sync.Mutex
	got []delivery
}

func (s *recordingSink) Deliver(h object.Human, msg message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, delivery{to: h.Name(), msg: msg})
	return true
}

func (s *recordingSink) take() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.got
	s.got = nil
	return out
}

func (s *recordingSink) to(name string) []message.Message {
	var out []message.Message
	for _, d := range s.take() {
		if d.to == name {
			out = append(out, d.msg)
		}
	}
	return out
}

type harness struct {
	ctx        context.Context
	world      *world.Manager
	town       *room.Room
	house      *room.Room
	townDoor   *object.Door
	houseDoor  *object.Door
	npc        *object.NPC
	sink       *recordingSink
	store      *state.MemoryStore
	dispatcher *Dispatcher
	handler    *Handler
}

// newHarness builds a 5x5 town whose door at (0,2) is paired with a 3x3
// house's door at (2,1). A sign stands at (2,2) and an NPC at (4,4).
func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := footprint.NewRegistry(footprint.NewManifest(nil))
	townDoor, err := object.NewDoor(reg, "door", "Upload House")
	require.NoError(t, err)
	houseDoor, err := object.NewDoor(reg, "door", "Trottier Town")
	require.NoError(t, err)
	sign, err := object.NewSign(reg, "sign", "Welcome to Trottier Town!")
	require.NoError(t, err)
	npc := object.NewNPC(object.NPCConfig{Name: "Professor", Chatter: []string{"Lovely weather."}, ChatterEvery: 1})

	town, err := room.New(room.Config{ID: 0, Name: "Trottier Town", Description: "A town.", Rows: 5, Cols: 5, Entry: geom.C(1, 2)},
		[]room.Placement{{Object: townDoor, At: geom.C(0, 2)}, {Object: sign, At: geom.C(2, 2)}, {Object: npc, At: geom.C(4, 4)}})
	require.NoError(t, err)
	house, err := room.New(room.Config{ID: 1, Name: "Upload House", Description: "A house.", Rows: 3, Cols: 3, Entry: geom.C(1, 1)},
		[]room.Placement{{Object: houseDoor, At: geom.C(2, 1)}})
	require.NoError(t, err)

	rooms := []*room.Room{town, house}
	report, err := world.BuildTopology(rooms, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, 1, report.Linked)
	w, err := world.NewManager(rooms, "Trottier Town")
	require.NoError(t, err)

	sink := &recordingSink{}
	store := state.NewMemoryStore()
	d := NewDispatcher(zaptest.NewLogger(t), w, sink, 10*time.Millisecond)
	h := NewHandler(zaptest.NewLogger(t), w, command.DefaultRegistry(), store, d)
	return &harness{
		ctx: context.Background(), world: w, town: town, house: house,
		townDoor: townDoor, houseDoor: houseDoor, npc: npc,
		sink: sink, store: store, dispatcher: d, handler: h,
	}
}

func (hs *harness) join(t *testing.T, name string) *object.Player {
	t.Helper()
	p := object.NewPlayer("id-"+name, name, "")
	require.NoError(t, hs.handler.Join(hs.ctx, p))
	return p
}

func TestDeliver_FanOut(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	bob := hs.join(t, "bob")
	hs.sink.take()

	hs.dispatcher.Deliver([]message.Message{
		message.Notice{To: hs.town, Text: "to the room"},
		message.Notice{To: bob, Text: "to bob"},
		message.Notice{To: hs.townDoor, Text: "to a door"},
		message.Notice{Text: "to nobody"},
	})
	got := hs.sink.take()
	require.Len(t, got, 3)
	assert.Equal(t, delivery{to: "alice", msg: message.Notice{To: hs.town, Text: "to the room"}}, got[0])
	assert.Equal(t, delivery{to: "bob", msg: message.Notice{To: hs.town, Text: "to the room"}}, got[1])
	assert.Equal(t, delivery{to: "bob", msg: message.Notice{To: bob, Text: "to bob"}}, got[2])
	_ = alice
}

func TestJoin_GreetsAndRedrawsRoom(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	assert.Equal(t, []message.Message{
		message.Redraw{To: alice, WithDescription: true},
		message.Notice{To: alice, Text: "A town. The following users are here: alice."},
	}, hs.sink.to("alice"))
	assert.Equal(t, "Trottier Town", alice.RoomName())
	assert.Equal(t, geom.C(1, 2), alice.Position())

	bob := hs.join(t, "bob")
	got := hs.sink.take()
	require.Len(t, got, 3)
	assert.Equal(t, delivery{to: "alice", msg: message.Redraw{To: alice}}, got[0])
	assert.Equal(t, delivery{to: "bob", msg: message.Redraw{To: bob, WithDescription: true}}, got[1])
}

func TestJoin_FlushesPendingNotices(t *testing.T) {
	hs := newHarness(t)
	require.NoError(t, command.AddNotice(hs.ctx, hs.store, "alice", "bob: see you later"))
	alice := hs.join(t, "alice")
	msgs := hs.sink.to("alice")
	require.Len(t, msgs, 3)
	assert.Equal(t, message.Notice{To: alice, Text: "Notices:\nbob: see you later"}, msgs[2])
}

func TestHandle_Move(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	hs.sink.take()

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: "sideways"})
	assert.Equal(t, message.Notify(alice, InvalidDirectionText), hs.sink.to("alice"))

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: "right"})
	assert.Equal(t, geom.C(1, 3), alice.Position())
	assert.Equal(t, geom.Right, alice.Facing())
	assert.Equal(t, []message.Message{message.Redraw{To: alice}}, hs.sink.to("alice"))
}

func TestHandle_SpaceInteractsInFacingDirection(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	hs.sink.take()

	// Players start facing down, towards the sign.
	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: InteractKey})
	msgs := hs.sink.to("alice")
	require.Len(t, msgs, 1)
	d, ok := msgs[0].(message.Dialogue)
	require.True(t, ok, "got %T", msgs[0])
	assert.Equal(t, "Welcome to Trottier Town!", d.Text)

	alice.Face(geom.Left)
	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: InteractKey})
	assert.Equal(t, message.Notify(alice, room.CannotInteractText), hs.sink.to("alice"))
}

func TestHandle_DoorTravelsBothWays(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	bob := hs.join(t, "bob")
	hs.sink.take()

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: "up"})
	assert.Equal(t, "Upload House", alice.RoomName())
	_, entry, ok := hs.townDoor.Target()
	require.True(t, ok)
	assert.Equal(t, entry, alice.Position())
	assert.Equal(t, []string{"bob"}, hs.town.ClientNames())

	got := hs.sink.take()
	var toBob []message.Message
	var toAlice []message.Message
	for _, d := range got {
		if d.to == "bob" {
			toBob = append(toBob, d.msg)
		} else {
			toAlice = append(toAlice, d.msg)
		}
	}
	// bob sees alice step onto the door, then sees her gone.
	assert.Equal(t, []message.Message{message.Redraw{To: bob}, message.Redraw{To: bob}}, toBob)
	assert.Equal(t, []message.Message{
		message.Redraw{To: alice},
		message.Redraw{To: alice, WithDescription: true},
		message.Notice{To: alice, Text: "A house. The following users are here: alice."},
	}, toAlice)

	// Step off the house door and back on to return.
	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: "up"})
	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: "down"})
	assert.Equal(t, "Trottier Town", alice.RoomName())
	_, back, ok := hs.houseDoor.Target()
	require.True(t, ok)
	assert.Equal(t, back, alice.Position())
	assert.Empty(t, hs.house.ClientNames())
}

func TestHandle_TextChatAndCommands(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	hs.join(t, "bob")
	hs.sink.take()

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentText, Value: "hello everyone"})
	got := hs.sink.take()
	require.Len(t, got, 2)
	assert.Equal(t, message.Chat{From: alice, To: hs.town, Text: "hello everyone"}, got[1].msg)
	assert.Equal(t, "bob", got[1].to)

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentText, Value: "   "})
	assert.Empty(t, hs.sink.take())

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentText, Value: "/look"})
	assert.Equal(t, message.Notify(alice, "A town. The following users are here: alice, bob."), hs.sink.to("alice"))

	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentText, Value: "/msg carol back soon"})
	hs.sink.take()
	carol := hs.join(t, "carol")
	msgs := hs.sink.to("carol")
	require.NotEmpty(t, msgs)
	assert.Equal(t, message.Notice{To: carol, Text: "Notices:\nalice: back soon"}, msgs[len(msgs)-1])
}

func TestHandle_MenuOptionWithoutMenu(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	hs.sink.take()
	hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMenuOption, Value: "Tell me a joke"})
	assert.Equal(t, message.Notify(alice, "No menu is open."), hs.sink.to("alice"))
}

func TestHandle_PanicBecomesErrorNotice(t *testing.T) {
	hs := newHarness(t)
	reg, err := command.NewRegistry([]command.Command{{
		Name:     "explode",
		Category: command.CategorySystem,
		Run: func(context.Context, command.Env, command.Invocation) ([]message.Message, error) {
			panic("kaboom")
		},
	}})
	require.NoError(t, err)
	h := NewHandler(zaptest.NewLogger(t), hs.world, reg, hs.store, hs.dispatcher)
	alice := hs.join(t, "alice")
	hs.sink.take()

	h.Handle(hs.ctx, alice, Intent{Kind: IntentText, Value: "/explode"})
	assert.Equal(t, message.Notify(alice, ErrorText), hs.sink.to("alice"))
}

func TestHandle_UnplacedPlayer(t *testing.T) {
	hs := newHarness(t)
	ghost := object.NewPlayer("id-ghost", "ghost", "")
	msgs := hs.handler.Process(hs.ctx, ghost, Intent{Kind: IntentMove, Value: "up"})
	assert.Equal(t, message.Notify(ghost, ErrorText), msgs)
}

func TestLeave_RedrawsRemainingClients(t *testing.T) {
	hs := newHarness(t)
	alice := hs.join(t, "alice")
	bob := hs.join(t, "bob")
	hs.sink.take()

	hs.handler.Leave(bob)
	assert.Equal(t, []string{"alice"}, hs.town.ClientNames())
	got := hs.sink.take()
	require.Len(t, got, 1)
	assert.Equal(t, delivery{to: "alice", msg: message.Redraw{To: alice}}, got[0])

	hs.handler.Leave(bob)
	assert.Empty(t, hs.sink.take())
}

func TestDispatcher_TickLoopDeliversChatter(t *testing.T) {
	hs := newHarness(t)
	hs.join(t, "alice")
	hs.sink.take()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- hs.dispatcher.Start(ctx) }()

	require.Eventually(t, func() bool {
		hs.sink.mu.Lock()
		defer hs.sink.mu.Unlock()
		for _, d := range hs.sink.got {
			if dl, ok := d.msg.(message.Dialogue); ok && dl.Text == "Lovely weather." {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, hs.dispatcher.Stop(stopCtx))
	assert.NoError(t, <-done)
}

func TestDispatcher_StopBeforeStart(t *testing.T) {
	hs := newHarness(t)
	assert.NoError(t, hs.dispatcher.Stop(context.Background()))
}

func TestNewDispatcher_RejectsNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { NewDispatcher(zaptest.NewLogger(t), nil, nil, 0) })
}

// Property: after any sequence of moves the player is in exactly one room's
// client list and that room matches RoomName.
func TestPropertyMovesKeepPlayerInOneRoom(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hs := newHarness(t)
		alice := object.NewPlayer("id-alice", "alice", "")
		if err := hs.handler.Join(hs.ctx, alice); err != nil {
			rt.Fatalf("join: %v", err)
		}
		moves := rapid.SliceOfN(rapid.SampledFrom([]string{"up", "down", "left", "right", InteractKey}), 1, 30).Draw(rt, "moves")
		for _, m := range moves {
			hs.handler.Handle(hs.ctx, alice, Intent{Kind: IntentMove, Value: m})
		}
		var in []string
		for _, r := range hs.world.Rooms() {
			for _, n := range r.ClientNames() {
				if n == "alice" {
					in = append(in, r.Name())
				}
			}
		}
		if len(in) != 1 || in[0] != alice.RoomName() {
			rt.Fatalf("alice in %v, RoomName %q", in, alice.RoomName())
		}
	})
}
