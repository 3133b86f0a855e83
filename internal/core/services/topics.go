package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// Ensure TopicService implements the interface.
var _ driving.TopicService = (*TopicService)(nil)

// TopicService reads organised topics and searches the chunk store.
// The embedding service is optional; without it Search falls back to
// full-text matching.
type TopicService struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
}

// NewTopicService creates a topic service. embedder may be nil.
func NewTopicService(store driven.ChunkStore, embedder driven.EmbeddingService) *TopicService {
	return &TopicService{store: store, embedder: embedder}
}

// List returns the stored clusters, outlier group last.
func (s *TopicService) List(ctx context.Context) ([]domain.Cluster, error) {
	clusters, err := s.store.Clusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	return clusters, nil
}

// Search finds chunks by vector similarity when embeddings are
// available, otherwise by full-text match.
func (s *TopicService) Search(ctx context.Context, query string, limit int) ([]driven.ChunkHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []driven.ChunkHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	if s.embedder != nil {
		vector, err := s.embedder.Embed(ctx, query)
		if err == nil {
			return s.store.SearchVector(ctx, vector, limit)
		}
		logger.Warn("Query embedding failed, falling back to text search: %v", err)
	}

	return s.store.SearchText(ctx, query, limit)
}
