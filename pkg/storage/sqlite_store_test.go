package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitkonto/zeitkonto/internal/test_utils"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db := test_utils.SetupTestDB(t)
	store := NewSQLiteStoreWithDB(db)
	require.NoError(t, store.Init(ctx))
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)

	require.NoError(t, store.SaveAll(ctx, Aggregate{
		"2026-W05": weekPayload("08:00"),
		"2026-W06": weekPayload("09:00"),
	}))

	data, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, data, 2)
	records := data["2026-W05"]["2026-01-26"]
	require.Len(t, records, 2)
	assert.Equal(t, "08:00", *records[0].Time)
	assert.Equal(t, "clock-out", records[1].Type)
}

func TestSQLiteStoreSaveAllReplaces(t *testing.T) {
	store := newSQLiteStore(t)

	require.NoError(t, store.SaveAll(ctx, Aggregate{"2026-W05": weekPayload("08:00")}))
	require.NoError(t, store.SaveAll(ctx, Aggregate{"2026-W07": weekPayload("09:00")}))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-W07"}, keys)
}

func TestSQLiteStoreSingleWeek(t *testing.T) {
	store := newSQLiteStore(t)

	require.NoError(t, store.SaveOne(ctx, "2026-W05", weekPayload("08:00")))
	// Upsert replaces the payload for the same key.
	require.NoError(t, store.SaveOne(ctx, "2026-W05", weekPayload("10:30")))

	payload, found, err := store.LoadOne(ctx, "2026-W05")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "10:30", *payload["2026-01-26"][0].Time)

	_, found, err = store.LoadOne(ctx, "2026-W06")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.DeleteOne(ctx, "2026-W05"))
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteStoreBackups(t *testing.T) {
	store := newSQLiteStore(t)
	base := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := store.CreateBackup(ctx, Aggregate{"2026-W05": weekPayload("08:00")}, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("list is most recent first", func(t *testing.T) {
		backups, err := store.ListBackups(ctx)
		require.NoError(t, err)
		require.Len(t, backups, 4)
		assert.Equal(t, ids[3], backups[0].ID)
		assert.Equal(t, ids[0], backups[3].ID)
	})

	t.Run("get by id returns the payload", func(t *testing.T) {
		backup, found, err := store.GetBackup(ctx, ids[1])
		require.NoError(t, err)
		require.True(t, found)
		assert.Contains(t, backup.Data, "2026-W05")
		assert.Equal(t, base.Add(time.Hour).UnixMilli(), backup.Timestamp.UnixMilli())
	})

	t.Run("get of unknown id reports not found", func(t *testing.T) {
		_, found, err := store.GetBackup(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("latest picks the newest timestamp", func(t *testing.T) {
		backup, found, err := store.GetLatestBackup(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ids[3], backup.ID)
	})

	t.Run("prune keeps only the newest", func(t *testing.T) {
		removed, err := store.PruneToLatest(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		backups, err := store.ListBackups(ctx)
		require.NoError(t, err)
		require.Len(t, backups, 2)
		assert.Equal(t, ids[3], backups[0].ID)
		assert.Equal(t, ids[2], backups[1].ID)
	})
}

func TestSQLiteStoreMetadata(t *testing.T) {
	store := newSQLiteStore(t)

	_, found, err := store.GetMetaInt(ctx, MetaLastBackupTime)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetMetaInt(ctx, MetaLastBackupTime, 1767000000000))
	require.NoError(t, store.SetMetaInt(ctx, MetaLastBackupTime, 1767000099999))

	value, found, err := store.GetMetaInt(ctx, MetaLastBackupTime)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1767000099999), value)
}
