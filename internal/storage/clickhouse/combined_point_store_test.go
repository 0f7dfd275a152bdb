package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

func TestCombinedPointStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	// Test empty insert
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 2), Value: 130.0, Cumulative: 250.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Value: 141.5, Cumulative: 391.5, Source: domain.SourceForecast},
	}

	err = store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByRunAndEntity(ctx, "run-1", "King")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "run-1", got[0].RunID)
	assert.Equal(t, "King", got[0].EntityName)
	assert.Equal(t, domain.MonthIndexOf(2024, 1), got[0].MonthIndex)
	assert.Equal(t, 120.0, got[0].Value)
	assert.Equal(t, 120.0, got[0].Cumulative)
	assert.Equal(t, domain.SourceHistorical, got[0].Source)
	assert.Equal(t, domain.SourceForecast, got[2].Source)
	assert.Equal(t, 391.5, got[2].Cumulative)
}

func TestCombinedPointStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Try to insert duplicate
	err = store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCombinedPointStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	// Same key twice in one batch
	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 999.0, Cumulative: 999.0, Source: domain.SourceHistorical},
	}

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCombinedPointStore_SourceIsPartOfKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	// Same month with different sources is allowed
	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 118.0, Cumulative: 118.0, Source: domain.SourceForecast},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Historical sorts before forecast on a month collision
	got, err := store.GetByRunAndEntity(ctx, "run-1", "King")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SourceHistorical, got[0].Source)
	assert.Equal(t, domain.SourceForecast, got[1].Source)
}

func TestCombinedPointStore_GetByRunAndEntity_Ordering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	// Insert out of order
	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 3), Value: 141.5, Cumulative: 391.5, Source: domain.SourceForecast},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 2), Value: 130.0, Cumulative: 250.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "Pierce", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 40.0, Cumulative: 40.0, Source: domain.SourceHistorical},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByRunAndEntity(ctx, "run-1", "King")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.MonthIndexOf(2024, 1), got[0].MonthIndex)
	assert.Equal(t, domain.MonthIndexOf(2024, 2), got[1].MonthIndex)
	assert.Equal(t, domain.MonthIndexOf(2024, 3), got[2].MonthIndex)

	// Non-existent entity
	got, err = store.GetByRunAndEntity(ctx, "run-1", "Whatcom")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCombinedPointStore_EntitiesByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCombinedPointStore(conn)
	ctx := context.Background()

	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "Snohomish", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 80.0, Cumulative: 80.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 120.0, Cumulative: 120.0, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: domain.MonthIndexOf(2024, 2), Value: 130.0, Cumulative: 250.0, Source: domain.SourceHistorical},
		{RunID: "run-2", EntityName: "Pierce", MonthIndex: domain.MonthIndexOf(2024, 1), Value: 40.0, Cumulative: 40.0, Source: domain.SourceHistorical},
	}

	err := store.InsertBulk(ctx, points)
	require.NoError(t, err)

	// Distinct entity names, sorted, scoped to the run
	got, err := store.EntitiesByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"King", "Snohomish"}, got)

	got, err = store.EntitiesByRun(ctx, "run-999")
	require.NoError(t, err)
	assert.Empty(t, got)
}
