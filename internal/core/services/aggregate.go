package services

import (
	"sort"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// Aggregate reduces chunk embeddings to one vector per note: the
// dimension-wise arithmetic mean of all chunk vectors sharing a note
// key. Chunks without an embedding are skipped; a note with no
// embedded chunks produces no NoteEmbedding at all, never a zero
// vector.
//
// Sums are accumulated in float64 and divided once, so the mean is
// bit-for-bit reproducible regardless of chunk order.
func Aggregate(chunks []domain.Chunk) []domain.NoteEmbedding {
	type group struct {
		key   domain.NoteKey
		sums  []float64
		count int
	}

	groups := make(map[string]*group)
	var order []string //nolint:prealloc // group count unknown

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}

		id := chunk.NoteKey.String()
		g, ok := groups[id]
		if !ok {
			g = &group{key: chunk.NoteKey, sums: make([]float64, len(chunk.Embedding))}
			groups[id] = g
			order = append(order, id)
		}
		if len(chunk.Embedding) != len(g.sums) {
			// Dimension mismatch within one note; drop the malformed vector.
			continue
		}

		for i, v := range chunk.Embedding {
			g.sums[i] += float64(v)
		}
		g.count++
	}

	sort.Strings(order)

	embeddings := make([]domain.NoteEmbedding, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if g.count == 0 {
			continue
		}

		vector := make([]float32, len(g.sums))
		for i, sum := range g.sums {
			vector[i] = float32(sum / float64(g.count))
		}

		embeddings = append(embeddings, domain.NoteEmbedding{
			NoteKey:    g.key,
			Vector:     vector,
			ChunkCount: g.count,
		})
	}

	return embeddings
}
