package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// Filter selects chunk rows by structured predicates. Fields are
// combined with AND; zero-valued fields are ignored. Adapters turn a
// Filter into parameterized queries, never into concatenated strings,
// so titles containing quotes cannot corrupt a predicate.
type Filter struct {
	// Title matches rows by note title.
	Title string

	// CreatedAt matches rows by note creation timestamp. Only
	// meaningful together with Title (joint identity).
	CreatedAt *time.Time

	// ClusterID matches rows by assigned cluster label.
	ClusterID *domain.ClusterLabel
}

// ByKey returns a filter matching all chunks of one note.
func ByKey(key domain.NoteKey) Filter {
	created := key.CreatedAt
	return Filter{Title: key.Title, CreatedAt: &created}
}

// ByCluster returns a filter matching all chunks with the given label.
func ByCluster(id domain.ClusterLabel) Filter {
	return Filter{ClusterID: &id}
}

// ClusterAssignment is the cluster metadata written onto chunk rows
// after a clustering pass.
type ClusterAssignment struct {
	// ID is the cluster label, or domain.Outlier.
	ID domain.ClusterLabel

	// Label is the human-readable cluster name.
	Label string

	// Summary is the cluster description.
	Summary string
}

// ChunkHit is a search result from the chunk store.
type ChunkHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Cluster is the assignment on the matched row, if any.
	Cluster *ClusterAssignment

	// Score is the similarity or rank score, higher is better.
	Score float64
}

// ChunkStore persists chunks with their embeddings and cluster
// assignments in a flat record schema. It is the only durable shared
// resource of the pipeline; all writes are upserts keyed by
// (title, created_at, index) and safe to retry.
type ChunkStore interface {
	// Add inserts or replaces chunk rows.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Delete removes rows matching the filter and reports how many.
	Delete(ctx context.Context, f Filter) (int, error)

	// UpdateCluster writes a cluster assignment onto rows matching the
	// filter and reports how many were touched.
	UpdateCluster(ctx context.Context, f Filter, a ClusterAssignment) (int, error)

	// Count reports the number of rows matching the filter.
	Count(ctx context.Context, f Filter) (int, error)

	// Scan returns the chunks matching the filter, ordered by note and
	// chunk index.
	Scan(ctx context.Context, f Filter) ([]domain.Chunk, error)

	// SearchVector finds the k most similar chunks to the query vector
	// by cosine similarity.
	SearchVector(ctx context.Context, query []float32, k int) ([]ChunkHit, error)

	// SearchText finds chunks matching the full-text query.
	SearchText(ctx context.Context, query string, limit int) ([]ChunkHit, error)

	// Clusters reconstructs the stored clusters from row assignments.
	Clusters(ctx context.Context) ([]domain.Cluster, error)

	// Close releases resources.
	Close() error
}

// SnapshotStore persists the incremental sync snapshot between passes.
type SnapshotStore interface {
	// Load reads the previous snapshot. Returns (nil, nil) when no
	// snapshot exists yet: a missing snapshot means "everything is new",
	// not an error.
	Load(ctx context.Context) (*domain.CacheSnapshot, error)

	// Save fully replaces the snapshot.
	Save(ctx context.Context, snap *domain.CacheSnapshot) error
}
