// Package memory provides in-memory implementations of the driven
// store ports, used in tests and as a fallback when no database is
// wanted.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// row is one stored chunk plus its cluster assignment.
type row struct {
	chunk      domain.Chunk
	assignment *driven.ClusterAssignment
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu   sync.RWMutex
	rows []row
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

// Add inserts or replaces chunk rows, keyed by (title, created_at, index).
func (s *ChunkStore) Add(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		replaced := false
		for i := range s.rows {
			existing := s.rows[i].chunk
			if existing.NoteKey.Title == chunk.NoteKey.Title &&
				existing.NoteKey.CreatedAt.Equal(chunk.NoteKey.CreatedAt) &&
				existing.Index == chunk.Index {
				s.rows[i] = row{chunk: chunk}
				replaced = true
				break
			}
		}
		if !replaced {
			s.rows = append(s.rows, row{chunk: chunk})
		}
	}
	return nil
}

// Delete removes rows matching the filter.
func (s *ChunkStore) Delete(_ context.Context, f driven.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	deleted := 0
	for _, r := range s.rows {
		if matches(r, f) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return deleted, nil
}

// UpdateCluster writes a cluster assignment onto rows matching the filter.
func (s *ChunkStore) UpdateCluster(_ context.Context, f driven.Filter, a driven.ClusterAssignment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.rows {
		if matches(s.rows[i], f) {
			assignment := a
			s.rows[i].assignment = &assignment
			updated++
		}
	}
	return updated, nil
}

// Count reports the number of rows matching the filter.
func (s *ChunkStore) Count(_ context.Context, f driven.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.rows {
		if matches(r, f) {
			count++
		}
	}
	return count, nil
}

// Scan returns the chunks matching the filter, ordered by note and index.
func (s *ChunkStore) Scan(_ context.Context, f driven.Filter) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, r := range s.rows {
		if matches(r, f) {
			chunks = append(chunks, r.chunk)
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].NoteKey.Title != chunks[j].NoteKey.Title {
			return chunks[i].NoteKey.Title < chunks[j].NoteKey.Title
		}
		if !chunks[i].NoteKey.CreatedAt.Equal(chunks[j].NoteKey.CreatedAt) {
			return chunks[i].NoteKey.CreatedAt.Before(chunks[j].NoteKey.CreatedAt)
		}
		return chunks[i].Index < chunks[j].Index
	})
	return chunks, nil
}

// SearchVector finds the k most similar chunks by cosine similarity.
func (s *ChunkStore) SearchVector(_ context.Context, query []float32, k int) ([]driven.ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.ChunkHit
	for _, r := range s.rows {
		if len(r.chunk.Embedding) != len(query) || len(query) == 0 {
			continue
		}
		hits = append(hits, driven.ChunkHit{
			Chunk:   r.chunk,
			Cluster: r.assignment,
			Score:   cosineSimilarity(query, r.chunk.Embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchText finds chunks containing the query as a substring,
// case-insensitively. A simple stand-in for real full-text search.
func (s *ChunkStore) SearchText(_ context.Context, query string, limit int) ([]driven.ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var hits []driven.ChunkHit
	for _, r := range s.rows {
		if strings.Contains(strings.ToLower(r.chunk.Text), needle) ||
			strings.Contains(strings.ToLower(r.chunk.NoteKey.Title), needle) {
			hits = append(hits, driven.ChunkHit{Chunk: r.chunk, Cluster: r.assignment, Score: 1})
		}
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Clusters reconstructs the stored clusters, outlier group last.
func (s *ChunkStore) Clusters(_ context.Context) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type meta struct {
		label   string
		summary string
	}
	metas := make(map[int]meta)
	members := make(map[int]map[string]domain.NoteKey)

	for _, r := range s.rows {
		if r.assignment == nil {
			continue
		}
		id := r.assignment.ID
		metas[id] = meta{label: r.assignment.Label, summary: r.assignment.Summary}
		if members[id] == nil {
			members[id] = make(map[string]domain.NoteKey)
		}
		members[id][r.chunk.NoteKey.String()] = r.chunk.NoteKey
	}

	ids := make([]int, 0, len(members))
	hasOutliers := false
	for id := range members {
		if id == domain.Outlier {
			hasOutliers = true
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if hasOutliers {
		ids = append(ids, domain.Outlier)
	}

	clusters := make([]domain.Cluster, 0, len(ids))
	for _, id := range ids {
		keyIDs := make([]string, 0, len(members[id]))
		for kid := range members[id] {
			keyIDs = append(keyIDs, kid)
		}
		sort.Strings(keyIDs)

		keys := make([]domain.NoteKey, 0, len(keyIDs))
		for _, kid := range keyIDs {
			keys = append(keys, members[id][kid])
		}

		clusters = append(clusters, domain.Cluster{
			ID:      id,
			Label:   metas[id].label,
			Summary: metas[id].summary,
			Members: keys,
		})
	}
	return clusters, nil
}

// Close releases resources.
func (s *ChunkStore) Close() error {
	return nil
}

// matches reports whether a row satisfies the filter. Zero-valued
// filter fields are ignored; an empty filter matches everything.
func matches(r row, f driven.Filter) bool {
	if f.Title != "" && r.chunk.NoteKey.Title != f.Title {
		return false
	}
	if f.CreatedAt != nil && !r.chunk.NoteKey.CreatedAt.Equal(*f.CreatedAt) {
		return false
	}
	if f.ClusterID != nil {
		if r.assignment == nil || r.assignment.ID != *f.ClusterID {
			return false
		}
	}
	return true
}

// cosineSimilarity computes cosine similarity in float64.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
