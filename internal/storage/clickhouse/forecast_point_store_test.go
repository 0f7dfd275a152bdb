package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

func TestForecastPointStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	// Test empty insert
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	points := []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74, CreatedAt: 1700000000000},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 4), Predicted: 1311.2, MonthsSinceStart: 75, CreatedAt: 1700000000000},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 5), Predicted: 1378.9, MonthsSinceStart: 76, CreatedAt: 1700000000000},
	}

	err = store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByRunAndEntity(ctx, "run-1", "King")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "run-1", got[0].RunID)
	assert.Equal(t, "King", got[0].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 3), got[0].MonthIndex)
	assert.Equal(t, 1250.5, got[0].Predicted)
	assert.Equal(t, 74, got[0].MonthsSinceStart)
	assert.Equal(t, int64(1700000000000), got[0].CreatedAt)
}

func TestForecastPointStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	points := []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Try to insert duplicate
	err = store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestForecastPointStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	// Same key twice in one batch
	points := []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 9999.0, MonthsSinceStart: 74},
	}

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestForecastPointStore_GetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	// Insert points for two entities out of order
	points := []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "Snohomish", MonthIndex: domain.MonthIndexOf(2024, 4), Predicted: 420.0, MonthsSinceStart: 75},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 4), Predicted: 1311.2, MonthsSinceStart: 75},
		{RunID: "run-1", EntityName: "Snohomish", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 401.7, MonthsSinceStart: 74},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74},
		{RunID: "run-2", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1190.0, MonthsSinceStart: 74},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// GetByRun returns only run-1 points, ordered by entity then month
	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "King", got[0].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 3), got[0].MonthIndex)
	assert.Equal(t, "King", got[1].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 4), got[1].MonthIndex)
	assert.Equal(t, "Snohomish", got[2].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 3), got[2].MonthIndex)
	assert.Equal(t, "Snohomish", got[3].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 4), got[3].MonthIndex)

	// Non-existent run
	got, err = store.GetByRun(ctx, "run-999")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForecastPointStore_GetByRunAndEntity(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	points := []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 5), Predicted: 1378.9, MonthsSinceStart: 76},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74},
		{RunID: "run-1", EntityName: "Pierce", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 310.0, MonthsSinceStart: 74},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Ordered by month ascending even though inserted out of order
	got, err := store.GetByRunAndEntity(ctx, "run-1", "King")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MonthIndexOf(2024, 3), got[0].MonthIndex)
	assert.Equal(t, domain.MonthIndexOf(2024, 5), got[1].MonthIndex)

	// Non-existent entity
	got, err = store.GetByRunAndEntity(ctx, "run-1", "Whatcom")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForecastPointStore_SameMonthDifferentRuns(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastPointStore(conn)
	ctx := context.Background()

	// Same entity and month under two runs is not a duplicate
	err := store.InsertBulk(ctx, []*domain.ForecastPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1250.5, MonthsSinceStart: 74},
	})
	require.NoError(t, err)

	err = store.InsertBulk(ctx, []*domain.ForecastPoint{
		{RunID: "run-2", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Predicted: 1190.0, MonthsSinceStart: 74},
	})
	require.NoError(t, err)

	got, err := store.GetByRunAndEntity(ctx, "run-2", "King")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1190.0, got[0].Predicted)
}
