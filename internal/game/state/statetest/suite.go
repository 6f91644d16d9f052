// Package statetest holds the behaviour every state.Store backend must share.
package statetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tileworld/internal/game/state"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) state.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Get(ctx, "player:alice", "score")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set get replace", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "player:alice", "score", json.RawMessage(`1`)))
		require.NoError(t, s.Set(ctx, "player:alice", "score", json.RawMessage(`{"n": 2}`)))
		v, ok, err := s.Get(ctx, "player:alice", "score")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"n": 2}`, string(v))
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.Set(ctx, "player:alice", "score", json.RawMessage(`{`)))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "room:Trottier Town", "num_jokes_told", json.RawMessage(`3`)))
		require.NoError(t, s.Delete(ctx, "room:Trottier Town", "num_jokes_told"))
		require.NoError(t, s.Delete(ctx, "room:Trottier Town", "num_jokes_told"))
		_, ok, err := s.Get(ctx, "room:Trottier Town", "num_jokes_told")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys sorted and scoped", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, s.Set(ctx, "player:alice", k, json.RawMessage(`true`)))
		}
		require.NoError(t, s.Set(ctx, "player:bob", "other", json.RawMessage(`true`)))
		keys, err := s.Keys(ctx, "player:alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys)
		keys, err = s.Keys(ctx, "player:carol")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("typed helpers", func(t *testing.T) {
		s := newStore(t)
		b := state.NewBucket(s, state.PlayerScope("alice"))
		for i := 1; i <= 3; i++ {
			n, err := state.Incr(ctx, b, "num_jokes_received")
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		require.NoError(t, state.Save(ctx, b, "notices", []string{"bob: hi"}))
		notices, err := state.Load(ctx, b, "notices", []string(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"bob: hi"}, notices)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Set(ctx, "room:Funhouse", fmt.Sprintf("k%d", i), json.RawMessage(fmt.Sprint(i))))
			}(i)
		}
		wg.Wait()
		keys, err := s.Keys(ctx, "room:Funhouse")
		require.NoError(t, err)
		assert.Len(t, keys, 8)
	})
}
