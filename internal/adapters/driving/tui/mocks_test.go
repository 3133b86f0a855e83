package tui

import (
	"context"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// mockTopicService implements driving.TopicService for tests.
type mockTopicService struct {
	clusters  []domain.Cluster
	listErr   error
	hits      []driven.ChunkHit
	searchErr error
}

var _ driving.TopicService = (*mockTopicService)(nil)

func (m *mockTopicService) List(_ context.Context) ([]domain.Cluster, error) {
	return m.clusters, m.listErr
}

func (m *mockTopicService) Search(_ context.Context, _ string, _ int) ([]driven.ChunkHit, error) {
	return m.hits, m.searchErr
}

// mockOrganizer implements driving.Organizer for tests.
type mockOrganizer struct {
	report *driving.PassReport
	err    error
}

var _ driving.Organizer = (*mockOrganizer)(nil)

func (m *mockOrganizer) Organize(_ context.Context, _ int) (*driving.PassReport, error) {
	return m.report, m.err
}

func (m *mockOrganizer) Status(_ context.Context) (*driving.PassStatus, error) {
	return &driving.PassStatus{}, nil
}
