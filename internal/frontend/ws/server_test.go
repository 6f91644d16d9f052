package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/game/command"
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
	"github.com/cory-johannsen/tileworld/internal/game/session"
	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/world"
	"github.com/cory-johannsen/tileworld/internal/gameserver"
	"github.com/cory-johannsen/tileworld/internal/testutil"
)

const (
	frameWait    = 2 * time.Second
	testPassword = "letmein"
)

type testServer struct {
	srv      *Server
	sessions *session.Manager
	addr     string
}

// startServer serves a single 4x4 "Trottier Town" with a sign at (2,2).
func startServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := footprint.NewRegistry(footprint.NewManifest(nil))
	sign, err := object.NewSign(reg, "sign", "Welcome to Trottier Town!")
	require.NoError(t, err)
	town, err := room.New(room.Config{Name: "Trottier Town", Description: "A town.", Rows: 4, Cols: 4, Entry: geom.C(1, 1)},
		[]room.Placement{{Object: sign, At: geom.C(2, 2)}})
	require.NoError(t, err)
	w, err := world.NewManager([]*room.Room{town}, "Trottier Town")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	sessions := session.NewManager(logger, 64)
	d := gameserver.NewDispatcher(logger, w, sessions, time.Hour)
	h := gameserver.NewHandler(logger, w, command.DefaultRegistry(), state.NewMemoryStore(), d)
	cfg := config.TransportConfig{Path: "/ws", ReadTimeout: time.Minute, WriteTimeout: time.Second, OutboxSize: 64}
	srv := NewServer(cfg, Deps{
		World:     w,
		Sessions:  sessions,
		Handler:   h,
		Encoder:   Encoder{Rooms: w, Footprints: reg},
		AdminHash: string(hash),
	}, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		<-served
	})
	return &testServer{srv: srv, sessions: sessions, addr: ln.Addr().String()}
}

func (ts *testServer) url() string { return "ws://" + ts.addr + "/ws" }

func (ts *testServer) login(t *testing.T, name string) *testutil.WSClient {
	t.Helper()
	c := testutil.NewWSClient(t, ts.url())
	c.Send(map[string]any{"hello": map[string]string{"name": name, "email": name + "@example.com"}})
	welcome := c.Next(frameWait)
	require.Equal(t, TypeWelcome, welcome["type"])
	require.NotEmpty(t, welcome["client_id"])
	return c
}

func TestServer_HandshakeGreets(t *testing.T) {
	ts := startServer(t)
	c := ts.login(t, "alice")

	grid := c.Next(frameWait)
	assert.Equal(t, "grid", grid["type"])
	assert.Equal(t, "Trottier Town", grid["room"])
	assert.Equal(t, "A town. The following users are here: alice.", grid["description"])
	assert.Len(t, grid["layers"], 4)

	notice := c.Next(frameWait)
	assert.Equal(t, "server", notice["type"])
	assert.Equal(t, "A town. The following users are here: alice.", notice["text"])

	sess, ok := ts.sessions.ByName("alice")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", sess.Player.Email())
	assert.False(t, sess.Player.Admin())
	assert.Equal(t, "Trottier Town", sess.Player.RoomName())
}

func TestServer_RejectsBadHello(t *testing.T) {
	ts := startServer(t)
	for _, first := range []string{`{"move":"up"}`, `not json`, `{"hello":{"name":"   "}}`} {
		c := testutil.NewWSClient(t, ts.url())
		c.SendRaw(first)
		f := c.Next(frameWait)
		assert.Equal(t, TypeError, f["type"], first)
		assert.Equal(t, BadHelloText, f["text"], first)
		assert.True(t, c.Closed(frameWait), first)
	}
	assert.Zero(t, ts.sessions.Count())
}

func TestServer_RejectsTakenName(t *testing.T) {
	ts := startServer(t)
	ts.login(t, "alice")

	c := testutil.NewWSClient(t, ts.url())
	c.Send(map[string]any{"hello": map[string]string{"name": "alice"}})
	f := c.Next(frameWait)
	assert.Equal(t, TypeError, f["type"])
	assert.Equal(t, NameTakenText, f["text"])
	assert.True(t, c.Closed(frameWait))
	assert.Equal(t, 1, ts.sessions.Count())
}

func TestServer_AdminPassword(t *testing.T) {
	ts := startServer(t)
	c := testutil.NewWSClient(t, ts.url())
	c.Send(map[string]any{"hello": map[string]string{"name": "root", "password": testPassword}})
	require.Equal(t, TypeWelcome, c.Next(frameWait)["type"])

	sess, ok := ts.sessions.ByName("root")
	require.True(t, ok)
	assert.True(t, sess.Player.Admin())
}

func TestServer_ChatReachesRoom(t *testing.T) {
	ts := startServer(t)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")

	bob.Send(map[string]string{"text": "hi alice"})
	for _, c := range []*testutil.WSClient{alice, bob} {
		f := c.ReadUntil("chat", frameWait)
		assert.Equal(t, "bob", f["from"])
		assert.Equal(t, "hi alice", f["text"])
	}
}

func TestServer_MoveAndInteract(t *testing.T) {
	ts := startServer(t)
	c := ts.login(t, "alice")
	c.ReadUntil("server", frameWait)

	c.Send(map[string]string{"move": "right"})
	c.ReadUntil("grid", frameWait)
	// The sign below blocks the step but still turns alice to face it.
	c.Send(map[string]string{"move": "down"})
	c.Send(map[string]string{"move": "space"})
	f := c.ReadUntil("dialogue", frameWait)
	assert.Equal(t, "Welcome to Trottier Town!", f["text"])

	sess, ok := ts.sessions.ByName("alice")
	require.True(t, ok)
	assert.Equal(t, geom.C(1, 2), sess.Player.Position())
	assert.Equal(t, geom.Down, sess.Player.Facing())
}

func TestServer_BadFramesAfterHandshake(t *testing.T) {
	ts := startServer(t)
	c := ts.login(t, "alice")

	c.SendRaw(`{"move":"up","text":"hi"}`)
	c.ReadUntilText("server", BadFrameText, frameWait)

	c.Send(map[string]any{"hello": map[string]string{"name": "alice"}})
	c.ReadUntilText("server", AlreadyInText, frameWait)

	c.Send(map[string]string{"move": "sideways"})
	c.ReadUntilText("server", gameserver.InvalidDirectionText, frameWait)
}

func TestServer_DisconnectLeavesRoom(t *testing.T) {
	ts := startServer(t)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")
	alice.ReadUntil("server", frameWait)

	bob.Close()
	f := alice.ReadUntil("grid", frameWait)
	assert.Equal(t, "Trottier Town", f["room"])
	require.Eventually(t, func() bool { return ts.sessions.Count() == 1 }, frameWait, 10*time.Millisecond)
	_, ok := ts.sessions.ByName("bob")
	assert.False(t, ok)
}

func TestServer_Healthz(t *testing.T) {
	ts := startServer(t)
	ts.login(t, "alice")

	resp, err := http.Get("http://" + ts.addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Rooms   int    `json:"rooms"`
		Players int    `json:"players"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Rooms)
	assert.Equal(t, 1, body.Players)
}

func TestServer_StopClosesClients(t *testing.T) {
	ts := startServer(t)
	c := ts.login(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.srv.Stop(ctx))
	assert.True(t, c.Closed(frameWait))
	assert.Zero(t, ts.sessions.Count())
}
