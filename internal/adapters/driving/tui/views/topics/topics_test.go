package topics

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

type stubTopics struct {
	clusters []domain.Cluster
	err      error
}

func (s *stubTopics) List(_ context.Context) ([]domain.Cluster, error) {
	return s.clusters, s.err
}

func (s *stubTopics) Search(_ context.Context, _ string, _ int) ([]driven.ChunkHit, error) {
	return nil, nil
}

func testClusters() []domain.Cluster {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Cluster{
		{
			ID:      0,
			Label:   "Budget",
			Summary: "A group of 2 notes about budget",
			Members: []domain.NoteKey{
				{Title: "Budget Q1", CreatedAt: created},
				{Title: "Budget Q2", CreatedAt: created},
			},
		},
		{
			ID:      domain.Outlier,
			Label:   domain.OutlierLabel,
			Summary: domain.OutlierSummary,
			Members: []domain.NoteKey{{Title: "Trip to Japan", CreatedAt: created}},
		},
	}
}

func loadedView(t *testing.T) *View {
	t.Helper()
	view := NewView(styles.DefaultStyles(), &stubTopics{clusters: testClusters()})
	view.SetDimensions(80, 24)

	cmd := view.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	loaded, ok := msg.(messages.TopicsLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)

	view, _ = view.Update(loaded)
	return view
}

func TestNewView_NilStyles(t *testing.T) {
	view := NewView(nil, &stubTopics{})

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
}

func TestView_InitLoadsTopics(t *testing.T) {
	view := loadedView(t)

	require.Len(t, view.Clusters(), 2)
	assert.Equal(t, "Budget", view.Clusters()[0].Label)
}

func TestView_InitWithoutService(t *testing.T) {
	view := NewView(nil, nil)

	cmd := view.Init()
	require.NotNil(t, cmd)

	loaded, ok := cmd().(messages.TopicsLoaded)
	require.True(t, ok)
	assert.Error(t, loaded.Err)
}

func TestView_ListError(t *testing.T) {
	view := NewView(nil, &stubTopics{err: errors.New("store closed")})
	view.SetDimensions(80, 24)

	loaded := view.Init()().(messages.TopicsLoaded)
	view, _ = view.Update(loaded)

	assert.Error(t, view.Err())
	assert.Contains(t, view.View(), "store closed")
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(t)

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, view.Selected())

	// Down past the last topic stays put.
	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.Selected())

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, view.Selected())
}

func TestView_ExpandCollapse(t *testing.T) {
	view := loadedView(t)

	// Members are hidden until expanded.
	assert.NotContains(t, view.View(), "Budget Q1")

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	out := view.View()
	assert.Contains(t, out, "Budget Q1")
	assert.Contains(t, out, "Budget Q2")

	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotContains(t, view.View(), "Budget Q1")
}

func TestView_RendersTopicList(t *testing.T) {
	view := loadedView(t)

	out := view.View()

	assert.Contains(t, out, "Budget (2 notes)")
	assert.Contains(t, out, domain.OutlierLabel)
	assert.Contains(t, out, "A group of 2 notes about budget")
}

func TestView_EmptyTopics(t *testing.T) {
	view := NewView(nil, &stubTopics{})
	view.SetDimensions(80, 24)

	loaded := view.Init()().(messages.TopicsLoaded)
	view, _ = view.Update(loaded)

	assert.Contains(t, view.View(), "No topics yet")
}

func TestView_LoadingState(t *testing.T) {
	view := NewView(nil, &stubTopics{clusters: testClusters()})
	view.SetDimensions(80, 24)

	assert.Contains(t, view.View(), "Loading topics...")
}

func TestView_Reset(t *testing.T) {
	view := loadedView(t)
	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	view, _ = view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	view.Reset()

	assert.Equal(t, 0, view.Selected())
	assert.Empty(t, view.expanded)
	assert.False(t, view.loaded)
}

func TestView_ReloadKey(t *testing.T) {
	view := loadedView(t)

	view, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	require.NotNil(t, cmd)
	assert.False(t, view.loaded)

	loaded, ok := cmd().(messages.TopicsLoaded)
	require.True(t, ok)
	assert.Len(t, loaded.Clusters, 2)
}
