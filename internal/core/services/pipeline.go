package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Organizer = (*Pipeline)(nil)

// DefaultNoteTimeout bounds how long one note may spend in fetch plus
// embedding before it is recorded as failed.
const DefaultNoteTimeout = 2 * time.Minute

// PipelineConfig holds the tunables of one organise pass.
type PipelineConfig struct {
	// MinPoints and Epsilon are passed to the cluster engine untouched.
	MinPoints int
	Epsilon   float64

	// Refine configures the outlier quality gate.
	Refine RefineConfig

	// Workers bounds the parallel fan-out for chunking and embedding.
	Workers int

	// NoteTimeout is the per-note processing deadline. A timed-out note
	// contributes nothing and is retried next pass.
	NoteTimeout time.Duration

	// EmbedRate throttles embedding calls per second. 0 disables
	// throttling.
	EmbedRate float64
}

// Pipeline coordinates the organise pass: change detection, chunking,
// embedding, aggregation, clustering, outlier refinement, naming and
// store writes. All collaborators are injected; the pipeline owns no
// hidden globals.
type Pipeline struct {
	source    driven.NoteSource
	embedder  driven.EmbeddingService
	chunker   driven.Chunker
	store     driven.ChunkStore
	snapshots driven.SnapshotStore
	cfg       PipelineConfig
	limiter   *rate.Limiter

	mu      sync.RWMutex
	running bool
	status  driving.PassStatus
}

// NewPipeline creates a pipeline with the given collaborators.
func NewPipeline(
	source driven.NoteSource,
	embedder driven.EmbeddingService,
	chunkProc driven.Chunker,
	store driven.ChunkStore,
	snapshots driven.SnapshotStore,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = DefaultMinPoints
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.NoteTimeout <= 0 {
		cfg.NoteTimeout = DefaultNoteTimeout
	}

	var limiter *rate.Limiter
	if cfg.EmbedRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRate), 1)
	}

	return &Pipeline{
		source:    source,
		embedder:  embedder,
		chunker:   chunkProc,
		store:     store,
		snapshots: snapshots,
		cfg:       cfg,
		limiter:   limiter,
	}
}

// notedChunks is the per-note output of the chunk+embed stage.
type notedChunks struct {
	note   domain.Note
	chunks []domain.Chunk
	failed int // chunks whose embedding failed
}

// Organize runs one pass.
//
//nolint:gocyclo // Orchestration function with necessary sequential stages
func (p *Pipeline) Organize(ctx context.Context, limit int) (*driving.PassReport, error) {
	if p.source == nil {
		return nil, domain.ErrSourceUnavailable
	}
	if p.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if !p.begin() {
		return nil, domain.ErrPassInProgress
	}
	defer p.end()

	report := &driving.PassReport{}

	// 1. ENUMERATE source metadata
	p.setStage("listing notes")
	metas, err := p.source.ListMeta(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	report.NotesSeen = len(metas)

	// 2. DIFF against the previous snapshot
	p.setStage("change detection")
	snap, err := p.snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	changes := Diff(metas, snap)
	report.NotesNew = len(changes.New)
	report.NotesModified = len(changes.Modified)
	report.NotesUnchanged = len(changes.Unchanged)

	// Nothing changed: refresh the snapshot timestamp and stop. No
	// store writes happen on a no-op pass.
	if report.NotesNew == 0 && report.NotesModified == 0 {
		logger.Info("No changes since last pass")
		if err := p.saveSnapshot(ctx, metas, nil); err != nil {
			return nil, err
		}
		p.fillClusterCounts(ctx, report)
		return report, nil
	}

	// 3. FETCH changed notes
	p.setStage("fetching")
	notes, fetchFailed := p.fetchNotes(ctx, changes)
	report.NotesFailed += len(fetchFailed)
	report.FailedTitles = append(report.FailedTitles, fetchFailed...)

	// 4. CHUNK + EMBED with bounded fan-out
	p.setStage("embedding")
	processed, embedFailed := p.chunkAndEmbed(ctx, notes)
	report.NotesFailed += len(embedFailed)
	report.FailedTitles = append(report.FailedTitles, embedFailed...)

	// 5. WRITE chunks, verifying row counts after the upserts
	p.setStage("storing chunks")
	for _, pc := range processed {
		if err := p.storeNote(ctx, pc); err != nil {
			return report, err
		}
		report.ChunksStored += len(pc.chunks)
		report.ChunksFailed += pc.failed
		p.bumpProcessed()
	}

	// 6. CLUSTER over the full candidate set, never a partial one
	p.setStage("clustering")
	all, err := p.store.Scan(ctx, driven.Filter{})
	if err != nil {
		return report, fmt.Errorf("scan chunks: %w", err)
	}
	embeddings := Aggregate(all)
	if len(embeddings) == 0 {
		return report, domain.ErrNoEmbeddings
	}

	labels := Cluster(embeddings, p.cfg.MinPoints, p.cfg.Epsilon)

	// 7. REFINE outliers through the quality gate
	p.setStage("refining outliers")
	refined := Refine(labels, embeddings, p.cfg.Refine)
	for id, before := range labels {
		if before == domain.Outlier && refined[id] != domain.Outlier {
			report.Reassigned++
		}
	}

	// 8. NAME clusters and write assignments back
	p.setStage("naming topics")
	keys := make(map[string]domain.NoteKey, len(embeddings))
	for _, e := range embeddings {
		keys[e.NoteKey.String()] = e.NoteKey
	}
	clusters := DescribeClusters(refined, keys)

	for _, cluster := range clusters {
		if cluster.ID == domain.Outlier {
			report.Outliers = cluster.Size()
		} else {
			report.Clusters++
		}

		assignment := driven.ClusterAssignment{ID: cluster.ID, Label: cluster.Label, Summary: cluster.Summary}
		for _, member := range cluster.Members {
			if _, err := p.store.UpdateCluster(ctx, driven.ByKey(member), assignment); err != nil {
				return report, fmt.Errorf("update cluster for %q: %w", member.Title, err)
			}
		}
	}

	// 9. REPLACE the snapshot, leaving failed notes out so the next
	// pass retries them.
	p.setStage("saving snapshot")
	if err := p.saveSnapshot(ctx, metas, report.FailedTitles); err != nil {
		return report, err
	}

	logger.Info("Pass complete: %d clusters, %d outliers, %d notes failed",
		report.Clusters, report.Outliers, report.NotesFailed)
	return report, nil
}

// Status returns progress of the running pass, or an idle status.
func (p *Pipeline) Status(_ context.Context) (*driving.PassStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status := p.status
	return &status, nil
}

// fetchNotes streams full content for all new and modified notes.
// Per-note fetch failures are collected, not fatal.
func (p *Pipeline) fetchNotes(ctx context.Context, changes Changes) ([]domain.Note, []string) {
	titles := make([]string, 0, len(changes.New)+len(changes.Modified))
	for _, meta := range changes.New {
		titles = append(titles, meta.Title)
	}
	for _, meta := range changes.Modified {
		titles = append(titles, meta.Title)
	}

	notesCh, errsCh := p.source.Fetch(ctx, titles)

	var notes []domain.Note
	var failed []string
	for notesCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return notes, failed

		case note, ok := <-notesCh:
			if !ok {
				notesCh = nil
				continue
			}
			notes = append(notes, note)

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			var fe *driven.FetchError
			if errors.As(err, &fe) {
				logger.Warn("Fetch failed for %q: %v", fe.Title, fe.Err)
				failed = append(failed, fe.Title)
			} else if err != nil {
				logger.Warn("Source error: %v", err)
			}
		}
	}

	return notes, failed
}

// chunkAndEmbed fans out per-note chunking and embedding over the
// worker pool. Notes whose embedding call failed outright are returned
// as failed titles; per-chunk failures leave the chunk stored without
// a vector.
func (p *Pipeline) chunkAndEmbed(ctx context.Context, notes []domain.Note) ([]notedChunks, []string) {
	results := RunPool(ctx, p.cfg.Workers, p.cfg.NoteTimeout, p.limiter, notes,
		func(taskCtx context.Context, note domain.Note) (notedChunks, error) {
			return p.processNote(taskCtx, note)
		})

	var processed []notedChunks
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			logger.Warn("Note %q failed: %v", notes[r.Index].Title, r.Err)
			failed = append(failed, notes[r.Index].Title)
			p.bumpErrors()
			continue
		}
		processed = append(processed, r.Value)
	}

	return processed, failed
}

// processNote chunks one note and embeds every chunk. A failed batch
// call fails the note; a nil vector for one chunk fails only that
// chunk.
func (p *Pipeline) processNote(ctx context.Context, note domain.Note) (notedChunks, error) {
	pieces := p.chunker.Chunk(note.Text())

	vectors, err := p.embedder.EmbedBatch(ctx, pieces)
	if err != nil && vectors == nil {
		return notedChunks{}, fmt.Errorf("embed note: %w", err)
	}

	result := notedChunks{note: note}
	for i, text := range pieces {
		chunk := domain.Chunk{
			ID:      uuid.New().String(),
			NoteKey: note.Key(),
			Index:   i,
			Total:   len(pieces),
			Text:    text,
		}
		if i < len(vectors) && len(vectors[i]) > 0 {
			chunk.Embedding = vectors[i]
		} else {
			result.failed++
		}
		result.chunks = append(result.chunks, chunk)
	}

	return result, nil
}

// storeNote replaces all stored chunks of a note and verifies the row
// count afterwards. The delete-then-add sequence is idempotent, so a
// retried pass cannot leave duplicate rows.
func (p *Pipeline) storeNote(ctx context.Context, pc notedChunks) error {
	// Delete by title: a modified note may carry stale rows under an
	// older creation timestamp.
	if _, err := p.store.Delete(ctx, driven.Filter{Title: pc.note.Title}); err != nil {
		return fmt.Errorf("delete stale chunks for %q: %w", pc.note.Title, err)
	}

	if err := p.store.Add(ctx, pc.chunks); err != nil {
		return fmt.Errorf("add chunks for %q: %w", pc.note.Title, err)
	}

	count, err := p.store.Count(ctx, driven.ByKey(pc.note.Key()))
	if err != nil {
		return fmt.Errorf("count chunks for %q: %w", pc.note.Title, err)
	}
	if count != len(pc.chunks) {
		return fmt.Errorf("%w: note %q has %d rows, expected %d",
			domain.ErrStoreVerification, pc.note.Title, count, len(pc.chunks))
	}

	return nil
}

// saveSnapshot fully replaces the snapshot with the current note set,
// excluding failed titles so they are retried as new or modified.
func (p *Pipeline) saveSnapshot(ctx context.Context, metas []domain.NoteMeta, failedTitles []string) error {
	failed := make(map[string]struct{}, len(failedTitles))
	for _, title := range failedTitles {
		failed[title] = struct{}{}
	}

	snap := domain.NewCacheSnapshot()
	for _, meta := range metas {
		if _, ok := failed[meta.Title]; ok {
			continue
		}
		snap.Entries[meta.Title] = domain.SnapshotEntry{
			CreatedAt:  meta.CreatedAt,
			ModifiedAt: meta.ModifiedAt,
		}
	}

	if err := p.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// fillClusterCounts populates cluster tallies from the store on a
// no-op pass. Best effort.
func (p *Pipeline) fillClusterCounts(ctx context.Context, report *driving.PassReport) {
	clusters, err := p.store.Clusters(ctx)
	if err != nil {
		logger.Debug("Cluster counts unavailable: %v", err)
		return
	}
	for _, c := range clusters {
		if c.ID == domain.Outlier {
			report.Outliers = c.Size()
		} else {
			report.Clusters++
		}
	}
}

// begin marks the pass as running. Returns false when one is active.
func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.status = driving.PassStatus{Running: true}
	return true
}

// end clears the running state.
func (p *Pipeline) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.status.Running = false
}

func (p *Pipeline) setStage(stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Stage = stage
	logger.Section(stage)
}

func (p *Pipeline) bumpProcessed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.NotesProcessed++
}

func (p *Pipeline) bumpErrors() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.ErrorCount++
}
