package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
)

type roomStub string

func (r roomStub) RecipientName() string { return string(r) }

func testRegistry() *footprint.Registry {
	return footprint.NewRegistry(footprint.NewManifest(map[string]footprint.Size{
		"tile/building/green_house_large": {Rows: 7, Cols: 7},
		"tile/building/purple_house_small": {Rows: 5, Cols: 3},
	}))
}

func TestBuilding_DoorCellIsPassable(t *testing.T) {
	reg := testRegistry()
	b, err := NewBuilding(reg, "purple_house_small", geom.C(4, 1), "Example House")
	require.NoError(t, err)
	b.SetPosition(geom.C(22, 8))

	assert.False(t, At(b, geom.C(0, 0)).Passable())
	door := At(b, geom.C(4, 1))
	assert.True(t, door.Passable())
	assert.Same(t, b.Door(), door)

	exits := b.Exits()
	require.Len(t, exits, 1)
	assert.Equal(t, geom.C(26, 9), exits[0].Position)
	assert.Equal(t, "Example House", exits[0].LinkedRoom)
	assert.Equal(t, geom.C(26, 9), b.Door().Position())
}

func TestBuilding_DoorOutsideFootprint(t *testing.T) {
	_, err := NewBuilding(testRegistry(), "purple_house_small", geom.C(5, 0), "")
	assert.Error(t, err)
}

func TestDoor_EnteredDisconnectedGivesNotice(t *testing.T) {
	reg := testRegistry()
	d, err := NewDoor(reg, "mat", "B")
	require.NoError(t, err)
	p := NewPlayer("c1", "alice", "")

	msgs := d.Entered(p)
	require.Len(t, msgs, 1)
	n, ok := msgs[0].(message.Notice)
	require.True(t, ok)
	assert.Equal(t, DisconnectedDoorText, n.Text)

	assert.Empty(t, d.Entered(NewNPC(NPCConfig{Name: "bob"})))
}

func TestDoor_EnteredConnectedRequestsTravel(t *testing.T) {
	d, err := NewDoor(testRegistry(), "mat", "B")
	require.NoError(t, err)
	d.ConnectTo("B", geom.C(7, 7))
	p := NewPlayer("c1", "alice", "")

	msgs := d.Entered(p)
	require.Len(t, msgs, 1)
	tr, ok := msgs[0].(message.Travel)
	require.True(t, ok)
	assert.Equal(t, "B", tr.ToRoom)
	assert.Equal(t, geom.C(7, 7), tr.Entry)
	assert.Equal(t, p, tr.Traveler)
}

func TestSign_BoardFollowsJukebox(t *testing.T) {
	reg := testRegistry()
	shared := NewSharedText("template")
	board, err := NewBoard(reg, "board", shared)
	require.NoError(t, err)
	plate, err := NewJukeboxPlate(reg, []string{"blithe", "calm"}, shared)
	require.NoError(t, err)
	p := NewPlayer("c1", "alice", "")

	assert.Equal(t, "template", board.Text())
	msgs := plate.Entered(p)
	require.Len(t, msgs, 1)
	assert.Equal(t, "blithe", msgs[0].(message.Sound).SoundID)
	assert.Equal(t, "Now playing: blithe", board.Text())

	plate.Entered(p)
	d := board.Interacted(p)[0].(message.Dialogue)
	assert.Equal(t, "Now playing: calm", d.Text)
	assert.Equal(t, "sign", d.Style)
}

func TestComputer_InteractOpensMenu(t *testing.T) {
	c, err := NewComputer(testRegistry(), "", []MenuOption{{Label: "Tell me a joke", Command: "joke"}})
	require.NoError(t, err)
	p := NewPlayer("c1", "alice", "")

	msgs := c.Interacted(p)
	require.Len(t, msgs, 1)
	m := msgs[0].(message.Menu)
	assert.Equal(t, "Select an option", m.Title)
	assert.Equal(t, []string{"Tell me a joke"}, m.Options)
	assert.Same(t, c, p.Menu())

	cmd, ok := c.Option("Tell me a joke")
	assert.True(t, ok)
	assert.Equal(t, "joke", cmd)
	_, ok = c.Option("nope")
	assert.False(t, ok)
}

func TestCounter_DelegatesToClerk(t *testing.T) {
	clerk := NewNPC(NPCConfig{Name: "clerk", Lines: []string{"Next!"}})
	c, err := NewCounter(testRegistry(), "yellow", clerk)
	require.NoError(t, err)
	msgs := c.Interacted(NewPlayer("c1", "alice", ""))
	require.Len(t, msgs, 1)
	assert.Equal(t, "Next!", msgs[0].(message.Dialogue).Text)
}

func TestNPC_EncounterOncePerApproach(t *testing.T) {
	n := NewNPC(NPCConfig{Name: "prof", EncounterText: "Hello!", StaringDistance: 3})
	n.SetPosition(geom.C(8, 8))
	p := NewPlayer("c1", "alice", "")

	p.SetPosition(geom.C(20, 20))
	assert.Empty(t, n.PlayerMoved(p))

	p.SetPosition(geom.C(10, 11))
	msgs := n.PlayerMoved(p)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello!", msgs[0].(message.Dialogue).Text)

	p.SetPosition(geom.C(10, 10))
	assert.Empty(t, n.PlayerMoved(p))

	p.SetPosition(geom.C(15, 15))
	assert.Empty(t, n.PlayerMoved(p))
	p.SetPosition(geom.C(9, 9))
	assert.Len(t, n.PlayerMoved(p), 1)
}

func TestNPC_PlayerLeftForgetsGreeting(t *testing.T) {
	n := NewNPC(NPCConfig{Name: "prof", EncounterText: "Hello!", StaringDistance: 3})
	n.SetPosition(geom.C(8, 8))
	p := NewPlayer("c1", "alice", "")
	p.SetPosition(geom.C(9, 9))
	require.Len(t, n.PlayerMoved(p), 1)
	assert.Empty(t, n.PlayerMoved(p))

	n.PlayerLeft(p)
	assert.Empty(t, n.greeted)
	n.PlayerLeft(p)

	assert.Len(t, n.PlayerMoved(p), 1, "greeted again after leaving")
}

func TestNPC_ChatterEveryNTicks(t *testing.T) {
	n := NewNPC(NPCConfig{Name: "crier", Chatter: []string{"Hear ye"}, ChatterEvery: 3})
	assert.Empty(t, n.Update(), "unplaced NPC stays silent")
	n.EnterRoom(roomStub("Town"))

	var got []message.Message
	for i := 0; i < 6; i++ {
		got = append(got, n.Update()...)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "Town", got[0].Recipient().RecipientName())
}

func TestCharacter_ImageFollowsFacing(t *testing.T) {
	p := NewPlayer("c1", "alice", "")
	assert.Equal(t, "character/player/down1", p.ImageID())
	p.Face(geom.Left)
	assert.Equal(t, "character/player/left1", p.ImageID())
	p.Face("sideways")
	assert.Equal(t, geom.Left, p.Facing())
	assert.True(t, IsHuman(p))
	assert.False(t, IsHuman(NewNPC(NPCConfig{})))
}

func TestCharacter_NewIsOneCellFacingDown(t *testing.T) {
	p := NewPlayer("c1", "alice", "")
	n := NewNPC(NPCConfig{Sprite: "clerk", Name: "Clerk"})
	for _, c := range []*Character{&p.Character, &n.Character} {
		assert.Equal(t, geom.Down, c.Facing())
		assert.False(t, c.Passable())
		assert.Equal(t, ZCharacter, c.ZIndex())
		assert.Equal(t, footprint.Size{Rows: 1, Cols: 1}, c.Footprint().Size())
	}
	assert.Equal(t, "alice", p.Name())
	assert.Equal(t, "character/player", p.Kind())
	assert.Equal(t, "Clerk", n.Name())
	assert.Equal(t, "character/clerk/down1", n.ImageID())
}

func TestPropertyFootprintResolvesEveryOffset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 8).Draw(t, "rows")
		cols := rapid.IntRange(1, 8).Draw(t, "cols")
		reg := footprint.NewRegistry(footprint.NewManifest(map[string]footprint.Size{
			"tile/building/h": {Rows: rows, Cols: cols},
		}))
		door := geom.C(rapid.IntRange(0, rows-1).Draw(t, "dr"), rapid.IntRange(0, cols-1).Draw(t, "dc"))
		b, err := NewBuilding(reg, "h", door, "")
		if err != nil {
			t.Fatalf("building: %v", err)
		}
		passable := 0
		for _, off := range b.Footprint().Offsets() {
			if At(b, off).Passable() {
				passable++
			}
		}
		if passable != 1 || len(b.Footprint().Offsets()) != rows*cols {
			t.Fatalf("passable=%d offsets=%d", passable, len(b.Footprint().Offsets()))
		}
	})
}
