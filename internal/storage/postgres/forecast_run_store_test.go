package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

func TestForecastRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	run := &domain.ForecastRun{
		RunID:             "run-abc",
		StartedAt:         1700000000000,
		Horizon:           12,
		ModelID:           "http",
		EntitiesRequested: 5,
		EntitiesSucceeded: 4,
		EntitiesFailed:    1,
	}

	// Insert
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	// GetByID
	retrieved, err := store.GetByID(ctx, "run-abc")
	require.NoError(t, err)

	assert.Equal(t, "run-abc", retrieved.RunID)
	assert.Equal(t, int64(1700000000000), retrieved.StartedAt)
	assert.Equal(t, 12, retrieved.Horizon)
	assert.Equal(t, "http", retrieved.ModelID)
	assert.Equal(t, 5, retrieved.EntitiesRequested)
	assert.Equal(t, 4, retrieved.EntitiesSucceeded)
	assert.Equal(t, 1, retrieved.EntitiesFailed)
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestForecastRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	run := &domain.ForecastRun{
		RunID:     "run-dup",
		StartedAt: 1700000000000,
		Horizon:   6,
		ModelID:   "naive",
	}

	// First insert should succeed
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	// Second insert should return ErrDuplicateKey
	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestForecastRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent-run")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestForecastRunStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	// Empty at first
	result, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, result)

	// Insert runs at different times, out of order
	runs := []*domain.ForecastRun{
		{RunID: "run-middle", StartedAt: 2000, Horizon: 12, ModelID: "http"},
		{RunID: "run-newest", StartedAt: 3000, Horizon: 12, ModelID: "http"},
		{RunID: "run-oldest", StartedAt: 1000, Horizon: 12, ModelID: "naive"},
	}
	for _, r := range runs {
		err := store.Insert(ctx, r)
		require.NoError(t, err)
	}

	// Results should be ordered by started_at DESC (newest first)
	result, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "run-newest", result[0].RunID)
	assert.Equal(t, "run-middle", result[1].RunID)
	assert.Equal(t, "run-oldest", result[2].RunID)
}

func TestForecastRunStore_ListTieBreak(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	// Same started_at, run_id breaks the tie ascending
	runs := []*domain.ForecastRun{
		{RunID: "run-b", StartedAt: 1000, Horizon: 12, ModelID: "http"},
		{RunID: "run-a", StartedAt: 1000, Horizon: 12, ModelID: "http"},
	}
	for _, r := range runs {
		err := store.Insert(ctx, r)
		require.NoError(t, err)
	}

	result, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "run-a", result[0].RunID)
	assert.Equal(t, "run-b", result[1].RunID)
}
