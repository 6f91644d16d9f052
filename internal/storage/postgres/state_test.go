package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/state/statetest"
	"github.com/cory-johannsen/tileworld/internal/storage/postgres"
	"github.com/cory-johannsen/tileworld/internal/testutil"
)

func TestStateRepository_Suite(t *testing.T) {
	pool := testutil.NewPool(t)
	statetest.Run(t, func(t *testing.T) state.Store {
		_, err := pool.DB().Exec(context.Background(), `TRUNCATE state_entries`)
		require.NoError(t, err)
		return postgres.NewStateRepository(pool.DB())
	})
}

func TestStateRepository_InvalidValueNotWritten(t *testing.T) {
	pool := testutil.NewPool(t)
	repo := postgres.NewStateRepository(pool.DB())
	ctx := context.Background()

	err := repo.Set(ctx, "player:alice", "broken", json.RawMessage(`{"a":`))
	assert.ErrorIs(t, err, postgres.ErrInvalidValue)
	_, ok, err := repo.Get(ctx, "player:alice", "broken")
	require.NoError(t, err)
	assert.False(t, ok)
}
