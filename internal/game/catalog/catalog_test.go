package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/message"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

const townYAML = `
room:
  id: TrottierTown
  description: |
    A quiet town by the water.
  rows: 12
  cols: 10
  entry: {row: 9, col: 4}
  music: blithe
  background: grass
  commands: [joke]
  fills:
    - object: {kind: water}
      rect: {top_left: {row: 11, col: 0}, bottom_right: {row: 11, col: 9}}
      except:
        - {top_left: {row: 11, col: 9}, bottom_right: {row: 11, col: 9}}
  objects:
    - kind: building
      image: purple_house_small
      at: {row: 2, col: 2}
      door_offset: {row: 4, col: 1}
      link: Upload House
    - kind: sign
      at: {row: 8, col: 4}
      text: Welcome to Trottier Town!
    - kind: npc
      id: prof
      name: Professor
      sprite: professor
      at: {row: 1, col: 8}
      encounter: Test encounter text.
      staring_distance: 3
`

const houseYAML = `
room:
  id: UploadHouse
  description: Where dreams come true.
  rows: 8
  cols: 8
  entry: {row: 6, col: 3}
  background: wood_brown
  objects:
    - kind: door
      at: {row: 7, col: 3}
      link: Trottier Town
    - kind: board
      channel: jukebox
      at: {row: 1, col: 1}
      text: Nothing playing
    - kind: jukebox
      channel: jukebox
      at: {row: 2, col: 1}
      songs: [blithe, sunny]
    - kind: counter
      colour: green
      npc: clerk
      at: {row: 3, col: 5}
    - kind: npc
      id: clerk
      name: Clerk
      at: {row: 2, col: 5}
      lines: ["How can I help?"]
    - kind: computer
      at: {row: 5, col: 6}
      title: Terminal
      options:
        - {label: Tell me a joke, command: joke}
`

func testFootprints() *footprint.Registry {
	return footprint.NewRegistry(footprint.NewManifest(map[string]footprint.Size{
		"tile/building/purple_house_small": {Rows: 5, Cols: 3},
	}))
}

func testBuilder() Builder {
	return Builder{Kinds: Builtin(), Footprints: testFootprints(), IDs: world.NewIDAllocator(0)}
}

func TestDeriveName(t *testing.T) {
	cases := map[string]string{
		"TrottierTown":     "Trottier Town",
		"UploadHouse":      "Upload House",
		"TicTacToeHouse":   "Tic tac toe House",
		"Tic_Tac_Toe_Room": "Tic tac toe Room",
		"HouseOfTA":        "House of TA",
		"Interior1":        "Interior1",
		"the_big_top":      "The big top",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, DeriveName(in), in)
	}
}

func TestLoadRoomFromBytes(t *testing.T) {
	spec, err := LoadRoomFromBytes([]byte(townYAML))
	require.NoError(t, err)
	assert.Equal(t, "TrottierTown", spec.ID)
	assert.Equal(t, "Trottier Town", spec.DisplayName())
	assert.Equal(t, "A quiet town by the water.", spec.Description)
	assert.Equal(t, geom.C(9, 4), spec.Entry)
	assert.Equal(t, []string{"joke"}, spec.Commands)
	require.Len(t, spec.Objects, 3)
	assert.Equal(t, geom.C(4, 1), spec.Objects[0].DoorOffset)

	spec.Name = "Town"
	assert.Equal(t, "Town", spec.DisplayName())
}

func TestLoadRoomFromBytes_Invalid(t *testing.T) {
	_, err := LoadRoomFromBytes([]byte("room: ["))
	assert.Error(t, err)

	_, err = LoadRoomFromBytes([]byte(`
room:
  rows: 0
  cols: 3
  objects:
    - at: {row: 0, col: 0}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room id must not be empty")
	assert.Contains(t, err.Error(), "rows and cols")
	assert.Contains(t, err.Error(), "has no kind")

	_, err = LoadRoomFromBytes([]byte(`
room:
  id: Tiny
  rows: 2
  cols: 2
  entry: {row: 5, col: 0}
`))
	assert.ErrorContains(t, err, "entry")

	// A plain flow scalar may not end in '?' before a flow terminator.
	_, err = LoadRoomFromBytes([]byte(`
room:
  id: Tiny
  rows: 2
  cols: 2
  objects:
    - kind: npc
      at: {row: 0, col: 0}
      lines: [How can I help?]
`))
	assert.ErrorContains(t, err, "parsing room YAML")
}

func TestLoadRoomsFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_house.yaml"), []byte(houseYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_town.yml"), []byte(townYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	specs, err := LoadRoomsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "TrottierTown", specs[0].ID)
	assert.Equal(t, "UploadHouse", specs[1].ID)

	_, err = LoadRoomsFromDir(t.TempDir())
	assert.ErrorContains(t, err, "no room files")
	_, err = LoadRoomsFromDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBuild_Town(t *testing.T) {
	spec, err := LoadRoomFromBytes([]byte(townYAML))
	require.NoError(t, err)
	r, err := testBuilder().Build(spec)
	require.NoError(t, err)

	assert.Equal(t, "Trottier Town", r.Name())
	assert.Equal(t, 0, r.ID())
	assert.Equal(t, "blithe", r.Music())
	assert.Equal(t, []string{"joke"}, r.Commands())

	exits := r.Exits()
	require.Len(t, exits, 1)
	assert.Equal(t, geom.C(6, 3), exits[0].Position)
	assert.Equal(t, "Upload House", exits[0].LinkedRoom)

	layers := r.RenderLayers()
	assert.Equal(t, "tile/background/grass", layers[0][0][0].ImageID)
	assert.Len(t, layers[11][0], 2, "grass and water")
	assert.Len(t, layers[11][9], 1, "excepted from the water fill")

	p := object.NewPlayer("c1", "alice", "")
	require.NoError(t, r.Join(p, geom.C(10, 0)))
	msgs, err := r.Move(p, geom.Down)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, geom.C(10, 0), p.Position())
}

func TestBuild_HouseWiring(t *testing.T) {
	spec, err := LoadRoomFromBytes([]byte(houseYAML))
	require.NoError(t, err)
	r, err := testBuilder().Build(spec)
	require.NoError(t, err)
	p := object.NewPlayer("c1", "alice", "")

	require.NoError(t, r.Join(p, geom.C(1, 2)))
	msgs := r.Interact(p, geom.Left)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Nothing playing", msgs[0].(message.Dialogue).Text)

	ok, _ := r.Remove(p, geom.C(1, 2))
	require.True(t, ok)
	require.NoError(t, r.Place(p, geom.C(2, 2)))
	_, err = r.Move(p, geom.Left)
	require.NoError(t, err)
	msgs = r.Interact(p, geom.Up)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Now playing: blithe", msgs[0].(message.Dialogue).Text)

	ok, _ = r.RemoveFirst(p)
	require.True(t, ok)
	require.NoError(t, r.Place(p, geom.C(4, 5)))
	msgs = r.Interact(p, geom.Up)
	require.Len(t, msgs, 1)
	d := msgs[0].(message.Dialogue)
	assert.Equal(t, "Clerk", d.Speaker.Name())
	assert.Equal(t, "How can I help?", d.Text)

	ok, _ = r.RemoveFirst(p)
	require.True(t, ok)
	require.NoError(t, r.Place(p, geom.C(5, 5)))
	msgs = r.Interact(p, geom.Right)
	require.Len(t, msgs, 1)
	menu := msgs[0].(message.Menu)
	assert.Equal(t, "Terminal", menu.Title)
	assert.Equal(t, []string{"Tell me a joke"}, menu.Options)
	require.NotNil(t, p.Menu())
}

func TestBuild_Errors(t *testing.T) {
	b := testBuilder()
	base := RoomSpec{ID: "Broken", Rows: 4, Cols: 4}

	s := base
	s.Objects = []ObjectSpec{{Kind: "dragon"}}
	_, err := b.Build(s)
	assert.ErrorIs(t, err, ErrUnknownKind)

	s = base
	s.Objects = []ObjectSpec{{Kind: "counter", NPC: "ghost"}}
	_, err = b.Build(s)
	assert.ErrorContains(t, err, "undeclared npc")

	s = base
	s.Objects = []ObjectSpec{{Kind: "jukebox"}}
	_, err = b.Build(s)
	assert.Error(t, err)

	s = base
	s.Objects = []ObjectSpec{{Kind: "npc", ID: "x"}, {Kind: "npc", ID: "x"}}
	_, err = b.Build(s)
	assert.ErrorContains(t, err, "duplicate npc")

	s = base
	s.Objects = []ObjectSpec{{Kind: "building", Image: "purple_house_small", At: geom.C(2, 2)}}
	_, err = b.Build(s)
	assert.Error(t, err)

	_, err = b.BuildAll([]RoomSpec{{ID: "A_Room", Rows: 1, Cols: 1}, {ID: "ARoom", Rows: 1, Cols: 1}})
	assert.ErrorContains(t, err, "share the name")
}

func TestRegistry_RegisterTwice(t *testing.T) {
	r := NewRegistry()
	ctor := func(env *Env, s ObjectSpec) (object.MapObject, error) { return object.NewEmpty(true), nil }
	require.NoError(t, r.Register("thing", ctor))
	assert.Error(t, r.Register("thing", ctor))
	assert.Error(t, r.Register("", ctor))
	assert.Panics(t, func() { r.MustRegister("thing", ctor) })
	assert.Equal(t, []string{"thing"}, r.Kinds())
	assert.Contains(t, Builtin().Kinds(), "building")
}

func TestBuildAll_TopologyEndToEnd(t *testing.T) {
	town, err := LoadRoomFromBytes([]byte(townYAML))
	require.NoError(t, err)
	house, err := LoadRoomFromBytes([]byte(houseYAML))
	require.NoError(t, err)

	rooms, err := testBuilder().BuildAll([]RoomSpec{town, house})
	require.NoError(t, err)
	assert.Equal(t, 1, rooms[1].ID())
	report, err := world.BuildTopology(rooms, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Linked)

	m, err := world.NewManager(rooms, "Trottier Town")
	require.NoError(t, err)
	p := object.NewPlayer("c1", "alice", "")
	require.NoError(t, m.StartRoom().Join(p, geom.C(7, 3)))

	msgs, err := m.StartRoom().Move(p, geom.Up)
	require.NoError(t, err)
	var travel message.Travel
	for _, msg := range msgs {
		if tr, ok := msg.(message.Travel); ok {
			travel = tr
		}
	}
	require.Equal(t, "Upload House", travel.ToRoom)
	_, err = m.Resolve(travel)
	require.NoError(t, err)
	assert.Equal(t, "Upload House", p.RoomName())
	assert.Equal(t, geom.C(7, 3), p.Position())
	assert.Equal(t, []*room.Room{rooms[0], rooms[1]}, m.Rooms())
}

func TestPropertyDeriveNameStartsUpper(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_]{0,20}`).Draw(t, "id")
		name := DeriveName(id)
		if name == "" {
			return
		}
		first := []rune(name)[0]
		if first >= 'a' && first <= 'z' {
			t.Fatalf("DeriveName(%q) = %q starts lowercase", id, name)
		}
	})
}
