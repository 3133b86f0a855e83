package mcp

import (
	"context"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// mockTopicService is a mock implementation of driving.TopicService.
type mockTopicService struct {
	clusters []domain.Cluster
	hits     []driven.ChunkHit
	err      error
}

func (m *mockTopicService) List(_ context.Context) ([]domain.Cluster, error) {
	return m.clusters, m.err
}

func (m *mockTopicService) Search(_ context.Context, _ string, _ int) ([]driven.ChunkHit, error) {
	return m.hits, m.err
}

// mockOrganizer is a mock implementation of driving.Organizer.
type mockOrganizer struct {
	report *driving.PassReport
	err    error
}

func (m *mockOrganizer) Organize(_ context.Context, _ int) (*driving.PassReport, error) {
	return m.report, m.err
}

func (m *mockOrganizer) Status(_ context.Context) (*driving.PassStatus, error) {
	return &driving.PassStatus{}, nil
}
