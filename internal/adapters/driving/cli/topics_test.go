package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// mockTopicService implements driving.TopicService for testing.
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

func setupTopicsTest(svc *mockTopicService) func() {
	oldTopics := topicService
	topicService = svc
	return func() {
		topicService = oldTopics
	}
}

func TestTopicsCmd_Use(t *testing.T) {
	assert.Equal(t, "topics", topicsCmd.Use)
}

func TestTopicsCmd_ListsClusters(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cleanup := setupTopicsTest(&mockTopicService{
		clusters: []domain.Cluster{
			{
				ID:      0,
				Label:   "Budget",
				Summary: "A group of 3 notes about budget",
				Members: []domain.NoteKey{
					{Title: "Budget Q1", CreatedAt: created},
					{Title: "Budget Q2", CreatedAt: created},
					{Title: "Budget Q3", CreatedAt: created},
				},
			},
			{
				ID:      domain.Outlier,
				Label:   domain.OutlierLabel,
				Summary: domain.OutlierSummary,
				Members: []domain.NoteKey{
					{Title: "Recipe: Soup", CreatedAt: created},
				},
			},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"topics"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Budget")
	assert.Contains(t, buf.String(), "(3 notes)")
	assert.Contains(t, buf.String(), "Uncategorized")
	assert.Contains(t, buf.String(), "Recipe: Soup")
}

func TestTopicsCmd_EmptyIndex(t *testing.T) {
	cleanup := setupTopicsTest(&mockTopicService{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"topics"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No topics yet")
}

func TestTopicsCmd_JSONOutput(t *testing.T) {
	cleanup := setupTopicsTest(&mockTopicService{
		clusters: []domain.Cluster{
			{ID: 0, Label: "Budget", Summary: "A group of 2 notes about budget"},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"topics", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		topicsJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"Label": "Budget"`)
}
