package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sema-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// fakeSource serves a fixed note set. Titles listed in fetchErrs fail
// with a per-note FetchError instead of producing a note.
type fakeSource struct {
	metas     []domain.NoteMeta
	notes     map[string]domain.Note
	fetchErrs map[string]error
}

func (s *fakeSource) Type() string { return "fake" }

func (s *fakeSource) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{}
}

func (s *fakeSource) Validate(_ context.Context) error { return nil }

func (s *fakeSource) ListMeta(_ context.Context, limit int) ([]domain.NoteMeta, error) {
	metas := s.metas
	if limit > 0 && limit < len(metas) {
		metas = metas[:limit]
	}
	return metas, nil
}

func (s *fakeSource) Fetch(_ context.Context, titles []string) (<-chan domain.Note, <-chan error) {
	notesCh := make(chan domain.Note)
	errsCh := make(chan error, len(titles))

	go func() {
		defer close(notesCh)
		defer close(errsCh)

		for _, title := range titles {
			if err, ok := s.fetchErrs[title]; ok {
				errsCh <- &driven.FetchError{Title: title, Err: err}
				continue
			}
			if note, ok := s.notes[title]; ok {
				notesCh <- note
			}
		}
	}()

	return notesCh, errsCh
}

func (s *fakeSource) Watch(_ context.Context) (<-chan domain.NoteMeta, error) {
	return nil, errors.New("fake: watch not supported")
}

func (s *fakeSource) Close() error { return nil }

// fakeBatchEmbedder maps chunk text to fixed vectors. Texts in
// failNotes fail the whole batch; texts in failChunks produce a nil
// vector alongside a partial error.
type fakeBatchEmbedder struct {
	vectors    map[string][]float32
	failNotes  map[string]error
	failChunks map[string]error
}

func (e *fakeBatchEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (e *fakeBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var firstErr error
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err, ok := e.failNotes[text]; ok {
			return nil, err
		}
		if err, ok := e.failChunks[text]; ok {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, firstErr
}

func (e *fakeBatchEmbedder) Dimensions() int { return 2 }

func (e *fakeBatchEmbedder) ModelName() string { return "fake-model" }

func (e *fakeBatchEmbedder) Ping(_ context.Context) error { return nil }

func (e *fakeBatchEmbedder) Close() error { return nil }

// wholeChunker returns the input as a single chunk.
type wholeChunker struct{}

func (wholeChunker) Chunk(text string) []string { return []string{text} }

// spyStore counts writes on top of the in-memory chunk store.
type spyStore struct {
	*memory.ChunkStore
	adds    int
	deletes int
}

func (s *spyStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	s.adds++
	return s.ChunkStore.Add(ctx, chunks)
}

func (s *spyStore) Delete(ctx context.Context, f driven.Filter) (int, error) {
	s.deletes++
	return s.ChunkStore.Delete(ctx, f)
}

type pipelineFixture struct {
	source    *fakeSource
	embedder  *fakeBatchEmbedder
	store     *spyStore
	snapshots *memory.SnapshotStore
	pipeline  *Pipeline
}

// newPipelineFixture wires a pipeline over three budget notes that
// cluster together and two unrelated notes that stay outliers.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	note := func(title, body string, offset time.Duration) domain.Note {
		return domain.Note{
			Title:      title,
			Body:       body,
			CreatedAt:  base.Add(offset),
			ModifiedAt: base.Add(offset + time.Hour),
		}
	}

	notes := []domain.Note{
		note("Budget Q1", "january spending", 0),
		note("Budget Q2", "april spending", time.Minute),
		note("Budget Q3", "july spending", 2*time.Minute),
		note("Recipe: Soup", "leek and potato", 3*time.Minute),
		note("Trip to Japan", "tokyo itinerary", 4*time.Minute),
	}

	source := &fakeSource{notes: make(map[string]domain.Note)}
	for _, n := range notes {
		source.metas = append(source.metas, n.Meta())
		source.notes[n.Title] = n
	}

	embedder := &fakeBatchEmbedder{vectors: map[string][]float32{
		notes[0].Text(): {1.0, 0.0},
		notes[1].Text(): {1.1, 0.0},
		notes[2].Text(): {1.0, 0.1},
		notes[3].Text(): {0.0, 5.0},
		notes[4].Text(): {-5.0, 0.0},
	}}

	store := &spyStore{ChunkStore: memory.NewChunkStore()}
	snapshots := memory.NewSnapshotStore()

	pipeline := NewPipeline(source, embedder, wholeChunker{}, store, snapshots, PipelineConfig{
		MinPoints: 2,
		Epsilon:   0.5,
	})

	return &pipelineFixture{
		source:    source,
		embedder:  embedder,
		store:     store,
		snapshots: snapshots,
		pipeline:  pipeline,
	}
}

func TestPipeline_FirstPass(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, report.NotesSeen)
	assert.Equal(t, 5, report.NotesNew)
	assert.Zero(t, report.NotesModified)
	assert.Zero(t, report.NotesUnchanged)
	assert.Zero(t, report.NotesFailed)
	assert.Equal(t, 5, report.ChunksStored)
	assert.Zero(t, report.ChunksFailed)

	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 2, report.Outliers)

	clusters, err := f.store.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, "Budget", clusters[0].Label)
	assert.Equal(t, 3, clusters[0].Size())
	assert.Equal(t, domain.Outlier, clusters[1].ID)
	assert.Equal(t, domain.OutlierLabel, clusters[1].Label)
	assert.Equal(t, 2, clusters[1].Size())

	snap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Entries, 5)
	assert.Contains(t, snap.Entries, "Budget Q1")
}

func TestPipeline_SecondPassIsNoOp(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	firstSnap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)

	addsAfterFirst := f.store.adds
	deletesAfterFirst := f.store.deletes

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	assert.Zero(t, report.NotesNew)
	assert.Zero(t, report.NotesModified)
	assert.Equal(t, 5, report.NotesUnchanged)
	assert.Zero(t, report.ChunksStored)

	// Cluster tallies still come back, from the store.
	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 2, report.Outliers)

	// No chunk writes on a no-op pass; the snapshot timestamp advances.
	assert.Equal(t, addsAfterFirst, f.store.adds)
	assert.Equal(t, deletesAfterFirst, f.store.deletes)

	secondSnap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)
	assert.False(t, secondSnap.LastSync.Before(firstSnap.LastSync))
	assert.Len(t, secondSnap.Entries, 5)
}

func TestPipeline_ModifiedNoteReprocessed(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	// Edit one note: bump its modification time and change the body.
	edited := f.source.notes["Budget Q1"]
	edited.Body = "revised january spending"
	edited.ModifiedAt = edited.ModifiedAt.Add(time.Hour)
	f.source.notes["Budget Q1"] = edited
	f.source.metas[0] = edited.Meta()
	f.embedder.vectors[edited.Text()] = []float32{1.0, 0.0}

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	assert.Zero(t, report.NotesNew)
	assert.Equal(t, 1, report.NotesModified)
	assert.Equal(t, 4, report.NotesUnchanged)
	assert.Equal(t, 1, report.ChunksStored)

	// The note's chunks were replaced, not duplicated.
	count, err := f.store.Count(ctx, driven.Filter{Title: "Budget Q1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	chunks, err := f.store.Scan(ctx, driven.Filter{Title: "Budget Q1"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "revised")
}

func TestPipeline_FetchFailureRetriedNextPass(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.source.fetchErrs = map[string]error{"Recipe: Soup": errors.New("rate limited")}

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, report.NotesFailed)
	assert.Equal(t, []string{"Recipe: Soup"}, report.FailedTitles)
	assert.Equal(t, 4, report.ChunksStored)

	// Failed notes stay out of the snapshot so the next pass treats
	// them as new.
	snap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, snap.Entries, "Recipe: Soup")

	f.source.fetchErrs = nil

	report, err = f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NotesNew)
	assert.Equal(t, 4, report.NotesUnchanged)
	assert.Zero(t, report.NotesFailed)
}

func TestPipeline_EmbedFailureFailsNote(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	failing := f.source.notes["Trip to Japan"]
	f.embedder.failNotes = map[string]error{failing.Text(): errors.New("model offline")}

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, report.NotesFailed)
	assert.Contains(t, report.FailedTitles, "Trip to Japan")
	assert.Equal(t, 4, report.ChunksStored)

	snap, err := f.snapshots.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, snap.Entries, "Trip to Japan")
}

func TestPipeline_PartialChunkFailureStoredWithoutVector(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	partial := f.source.notes["Recipe: Soup"]
	f.embedder.failChunks = map[string]error{partial.Text(): errors.New("timeout")}

	report, err := f.pipeline.Organize(ctx, 0)
	require.NoError(t, err)

	// The note is not failed; its chunk is stored without a vector.
	assert.Zero(t, report.NotesFailed)
	assert.Equal(t, 5, report.ChunksStored)
	assert.Equal(t, 1, report.ChunksFailed)

	chunks, err := f.store.Scan(ctx, driven.Filter{Title: "Recipe: Soup"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Embedding)
}

func TestPipeline_NoEmbeddingsAtAll(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.embedder.failNotes = make(map[string]error)
	for _, n := range f.source.notes {
		f.embedder.failNotes[n.Text()] = errors.New("model offline")
	}

	_, err := f.pipeline.Organize(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrNoEmbeddings)
}

func TestPipeline_LimitBoundsEnumeration(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	report, err := f.pipeline.Organize(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.NotesSeen)
	assert.Equal(t, 2, report.NotesNew)
}

func TestPipeline_MissingCollaborators(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	t.Run("nil source", func(t *testing.T) {
		p := NewPipeline(nil, f.embedder, wholeChunker{}, f.store, f.snapshots, PipelineConfig{})
		_, err := p.Organize(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("nil embedder", func(t *testing.T) {
		p := NewPipeline(f.source, nil, wholeChunker{}, f.store, f.snapshots, PipelineConfig{})
		_, err := p.Organize(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestPipeline_StatusIdle(t *testing.T) {
	f := newPipelineFixture(t)

	status, err := f.pipeline.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
}
