package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tileworld/internal/game/catalog"
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/geom"
	"github.com/cory-johannsen/tileworld/internal/game/world"
)

var contentDir = filepath.Join("..", "..", "..", "content")

// The shipped rooms must build and every door must pair.
func TestShippedContent(t *testing.T) {
	manifest, err := footprint.LoadManifestFromFile(filepath.Join(contentDir, "assets.yaml"))
	require.NoError(t, err)
	reg := footprint.NewRegistry(manifest)

	specs, err := catalog.LoadRoomsFromDir(filepath.Join(contentDir, "rooms"))
	require.NoError(t, err)
	rooms, err := catalog.Builder{Kinds: catalog.Builtin(), Footprints: reg, IDs: world.NewIDAllocator(0)}.BuildAll(specs)
	require.NoError(t, err)
	require.Len(t, rooms, 6)

	report, err := world.BuildTopology(rooms, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 5, report.Linked)
	assert.Empty(t, report.Skipped)

	w, err := world.NewManager(rooms, "Trottier Town")
	require.NoError(t, err)
	town := w.StartRoom()
	assert.Equal(t, 60, town.Rows())
	assert.Equal(t, 40, town.Cols())
	assert.Equal(t, geom.C(28, 13), town.Entry())
	for _, name := range []string{"Upload House", "Tic tac toe House", "Trivia House", "Example House", "Funhouse"} {
		_, ok := w.GetRoom(name)
		assert.True(t, ok, name)
	}
}

// Each room file must parse on its own so a broken file names itself.
func TestShippedContent_EachRoomFileLoads(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join(contentDir, "rooms", "*.yaml"))
	require.NoError(t, err)
	require.Len(t, paths, 6)
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			spec, err := catalog.LoadRoomFromFile(path)
			require.NoError(t, err)
			assert.NotEmpty(t, spec.ID)
		})
	}
}
