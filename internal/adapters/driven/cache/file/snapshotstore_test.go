package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

func setupSnapshotStore(t *testing.T) *SnapshotStore {
	t.Helper()

	store, err := NewSnapshotStore(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	return store
}

func TestNewSnapshotStore(t *testing.T) {
	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")

		store, err := NewSnapshotStore(path)
		require.NoError(t, err)
		assert.Equal(t, path, store.Path())

		_, err = os.Stat(filepath.Dir(path))
		assert.NoError(t, err)
	})

	t.Run("implements SnapshotStore interface", func(t *testing.T) {
		var _ driven.SnapshotStore = setupSnapshotStore(t)
	})
}

func TestSnapshotStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file yields nil without error", func(t *testing.T) {
		store := setupSnapshotStore(t)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		store := setupSnapshotStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

		_, err := store.Load(ctx)
		assert.Error(t, err)
	})
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips entries and timestamps", func(t *testing.T) {
		store := setupSnapshotStore(t)

		created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		modified := created.Add(2 * time.Hour)
		in := &domain.CacheSnapshot{
			LastSync: modified,
			Entries: map[string]domain.SnapshotEntry{
				"Budget Q1": {CreatedAt: created, ModifiedAt: modified},
			},
		}
		require.NoError(t, store.Save(ctx, in))

		out, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.True(t, out.LastSync.Equal(modified))
		require.Contains(t, out.Entries, "Budget Q1")
		assert.True(t, out.Entries["Budget Q1"].CreatedAt.Equal(created))
		assert.True(t, out.Entries["Budget Q1"].ModifiedAt.Equal(modified))
	})

	t.Run("save replaces rather than merges", func(t *testing.T) {
		store := setupSnapshotStore(t)

		require.NoError(t, store.Save(ctx, &domain.CacheSnapshot{
			Entries: map[string]domain.SnapshotEntry{"Old": {}},
		}))
		require.NoError(t, store.Save(ctx, &domain.CacheSnapshot{
			Entries: map[string]domain.SnapshotEntry{"New": {}},
		}))

		out, err := store.Load(ctx)
		require.NoError(t, err)
		assert.NotContains(t, out.Entries, "Old")
		assert.Contains(t, out.Entries, "New")
	})

	t.Run("no temp file is left behind", func(t *testing.T) {
		store := setupSnapshotStore(t)

		require.NoError(t, store.Save(ctx, domain.NewCacheSnapshot()))

		_, err := os.Stat(store.Path() + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})
}
