package driving

import (
	"context"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// TopicService reads organised topics and searches the chunk store.
type TopicService interface {
	// List returns the stored clusters, outlier group last.
	List(ctx context.Context) ([]domain.Cluster, error)

	// Search finds chunks by semantic similarity when an embedding
	// service is available, falling back to full-text search otherwise.
	Search(ctx context.Context, query string, limit int) ([]driven.ChunkHit, error)
}
