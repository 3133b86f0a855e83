package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

var testCreated = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// testChunks builds a note's chunks with simple embeddings.
func testChunks(title string, vectors ...[]float32) []domain.Chunk {
	key := domain.NoteKey{Title: title, CreatedAt: testCreated}
	chunks := make([]domain.Chunk, len(vectors))
	for i, vec := range vectors {
		chunks[i] = domain.Chunk{
			ID:        title + "-" + string(rune('a'+i)),
			NoteKey:   key,
			Index:     i,
			Total:     len(vectors),
			Text:      title + " chunk content",
			Embedding: vec,
		}
	}
	return chunks
}

func TestNewStore(t *testing.T) {
	t.Run("creates database and applies migrations", func(t *testing.T) {
		store := setupTestStore(t)

		count, err := store.Count(context.Background(), driven.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("implements ChunkStore interface", func(t *testing.T) {
		store := setupTestStore(t)
		var _ driven.ChunkStore = store
	})

	t.Run("reopening an existing database succeeds", func(t *testing.T) {
		dir := t.TempDir()

		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.Add(context.Background(), testChunks("Note", []float32{1, 0})))
		require.NoError(t, store.Close())

		reopened, err := NewStore(dir)
		require.NoError(t, err)
		defer reopened.Close()

		count, err := reopened.Count(context.Background(), driven.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("stores chunks with embeddings", func(t *testing.T) {
		store := setupTestStore(t)

		err := store.Add(ctx, testChunks("Budget Q1", []float32{1, 0}, []float32{0, 1}))
		require.NoError(t, err)

		chunks, err := store.Scan(ctx, driven.Filter{})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Budget Q1", chunks[0].NoteKey.Title)
		assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, 2, chunks[0].Total)
	})

	t.Run("stores chunks without embeddings", func(t *testing.T) {
		store := setupTestStore(t)

		err := store.Add(ctx, testChunks("Plain", nil))
		require.NoError(t, err)

		chunks, err := store.Scan(ctx, driven.Filter{})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Nil(t, chunks[0].Embedding)
	})

	t.Run("re-adding the same position upserts", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{0, 1})))

		chunks, err := store.Scan(ctx, driven.Filter{})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, []float32{0, 1}, chunks[0].Embedding)
	})

	t.Run("empty slice is a no-op", func(t *testing.T) {
		store := setupTestStore(t)

		assert.NoError(t, store.Add(ctx, nil))
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes by title", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Keep", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Drop", []float32{0, 1}, []float32{1, 1})))

		n, err := store.Delete(ctx, driven.Filter{Title: "Drop"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		count, err := store.Count(ctx, driven.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("deleting nothing returns zero", func(t *testing.T) {
		store := setupTestStore(t)

		n, err := store.Delete(ctx, driven.Filter{Title: "Absent"})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestStore_UpdateCluster(t *testing.T) {
	ctx := context.Background()

	t.Run("writes assignment onto matching rows", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Budget Q1", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Recipe", []float32{0, 1})))

		key := domain.NoteKey{Title: "Budget Q1", CreatedAt: testCreated}
		n, err := store.UpdateCluster(ctx, driven.ByKey(key), driven.ClusterAssignment{
			ID:      0,
			Label:   "Budget",
			Summary: "A group of 1 notes about budget",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		clusters, err := store.Clusters(ctx)
		require.NoError(t, err)
		require.Len(t, clusters, 1)
		assert.Equal(t, "Budget", clusters[0].Label)
		require.Len(t, clusters[0].Members, 1)
		assert.Equal(t, key.Title, clusters[0].Members[0].Title)
		assert.True(t, clusters[0].Members[0].CreatedAt.Equal(key.CreatedAt))
	})
}

func TestStore_Count(t *testing.T) {
	ctx := context.Background()

	t.Run("counts by note key", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{1, 0}, []float32{0, 1})))

		key := domain.NoteKey{Title: "Note", CreatedAt: testCreated}
		count, err := store.Count(ctx, driven.ByKey(key))
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("different creation time does not match", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{1, 0})))

		other := domain.NoteKey{Title: "Note", CreatedAt: testCreated.Add(time.Hour)}
		count, err := store.Count(ctx, driven.ByKey(other))
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStore_Scan(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by title then index", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Beta", []float32{1, 0}, []float32{0, 1})))
		require.NoError(t, store.Add(ctx, testChunks("Alpha", []float32{1, 1})))

		chunks, err := store.Scan(ctx, driven.Filter{})
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "Alpha", chunks[0].NoteKey.Title)
		assert.Equal(t, "Beta", chunks[1].NoteKey.Title)
		assert.Equal(t, 0, chunks[1].Index)
		assert.Equal(t, 1, chunks[2].Index)
	})

	t.Run("round-trips timestamps at millisecond precision", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{1, 0})))

		chunks, err := store.Scan(ctx, driven.Filter{})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.True(t, chunks[0].NoteKey.CreatedAt.Equal(testCreated))
	})
}

func TestStore_SearchVector(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks by cosine similarity", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Aligned", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Orthogonal", []float32{0, 1})))

		hits, err := store.SearchVector(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "Aligned", hits[0].Chunk.NoteKey.Title)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("respects k", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("One", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Two", []float32{0.9, 0.1})))
		require.NoError(t, store.Add(ctx, testChunks("Three", []float32{0, 1})))

		hits, err := store.SearchVector(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("skips rows without embeddings", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("NoVector", nil)))

		hits, err := store.SearchVector(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("includes cluster assignment in hits", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Budget Q1", []float32{1, 0})))

		key := domain.NoteKey{Title: "Budget Q1", CreatedAt: testCreated}
		_, err := store.UpdateCluster(ctx, driven.ByKey(key), driven.ClusterAssignment{
			ID: 0, Label: "Budget", Summary: "A group of 1 notes about budget",
		})
		require.NoError(t, err)

		hits, err := store.SearchVector(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		require.NotNil(t, hits[0].Cluster)
		assert.Equal(t, "Budget", hits[0].Cluster.Label)
	})
}

func TestStore_SearchText(t *testing.T) {
	ctx := context.Background()

	t.Run("finds chunks by content", func(t *testing.T) {
		store := setupTestStore(t)

		key := domain.NoteKey{Title: "Budget Q1", CreatedAt: testCreated}
		require.NoError(t, store.Add(ctx, []domain.Chunk{{
			ID: "c1", NoteKey: key, Index: 0, Total: 1,
			Text: "projected quarterly spend on infrastructure",
		}}))

		hits, err := store.SearchText(ctx, "quarterly", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Budget Q1", hits[0].Chunk.NoteKey.Title)
	})

	t.Run("no match yields no hits", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Note", []float32{1, 0})))

		hits, err := store.SearchText(ctx, "zzzunmatched", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestStore_Clusters(t *testing.T) {
	ctx := context.Background()

	t.Run("groups notes by assignment", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Budget Q1", []float32{1, 0})))
		require.NoError(t, store.Add(ctx, testChunks("Budget Q2", []float32{1, 0.1})))
		require.NoError(t, store.Add(ctx, testChunks("Recipe", []float32{0, 1})))

		budget := driven.ClusterAssignment{ID: 0, Label: "Budget", Summary: "A group of 2 notes about budget"}
		for _, title := range []string{"Budget Q1", "Budget Q2"} {
			_, err := store.UpdateCluster(ctx, driven.Filter{Title: title}, budget)
			require.NoError(t, err)
		}
		outlier := driven.ClusterAssignment{ID: domain.Outlier, Label: domain.OutlierLabel, Summary: domain.OutlierSummary}
		_, err := store.UpdateCluster(ctx, driven.Filter{Title: "Recipe"}, outlier)
		require.NoError(t, err)

		clusters, err := store.Clusters(ctx)
		require.NoError(t, err)
		require.Len(t, clusters, 2)

		assert.Equal(t, "Budget", clusters[0].Label)
		assert.Equal(t, 2, clusters[0].Size())
		assert.Equal(t, domain.Outlier, clusters[1].ID)
		assert.Equal(t, domain.OutlierLabel, clusters[1].Label)
	})

	t.Run("unassigned rows are excluded", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Add(ctx, testChunks("Unassigned", []float32{1, 0})))

		clusters, err := store.Clusters(ctx)
		require.NoError(t, err)
		assert.Empty(t, clusters)
	})
}

func TestVectorEncoding(t *testing.T) {
	t.Run("round-trips float32 slices", func(t *testing.T) {
		in := []float32{0.1, -2.5, 3.75, 0}

		out := bytesToFloat32Slice(float32SliceToBytes(in))

		assert.Equal(t, in, out)
	})

	t.Run("nil maps to nil", func(t *testing.T) {
		assert.Nil(t, float32SliceToBytes(nil))
		assert.Nil(t, bytesToFloat32Slice(nil))
	})
}
