package driving

import "context"

// Organizer runs the full organise pipeline: change detection,
// chunking, embedding, aggregation, clustering, outlier refinement and
// cluster naming.
type Organizer interface {
	// Organize runs one pass. Limit bounds how many notes are
	// enumerated from the source; 0 means unbounded.
	Organize(ctx context.Context, limit int) (*PassReport, error)

	// Status returns progress of the running pass, or an idle status.
	Status(ctx context.Context) (*PassStatus, error)
}

// PassStatus is the live progress of an organise pass.
type PassStatus struct {
	// Running indicates a pass is currently in progress.
	Running bool

	// Stage names the stage currently executing.
	Stage string

	// NotesProcessed counts notes whose chunks and embeddings are done.
	NotesProcessed int

	// ErrorCount counts per-note failures so far.
	ErrorCount int
}

// PassReport is the outcome of one organise pass. Per-note and
// per-chunk failures are tallied here instead of aborting the pass.
type PassReport struct {
	// NotesSeen is how many notes the source enumerated.
	NotesSeen int

	// NotesNew, NotesModified and NotesUnchanged are the change
	// detection counts. They partition NotesSeen.
	NotesNew       int
	NotesModified  int
	NotesUnchanged int

	// NotesFailed counts notes dropped by fetch or embedding failure.
	// Failed notes are excluded from the snapshot and retried next run.
	NotesFailed int

	// FailedTitles lists the titles of failed notes for the caller.
	FailedTitles []string

	// ChunksStored is the number of chunk rows written this pass.
	ChunksStored int

	// ChunksFailed counts chunks whose embedding failed.
	ChunksFailed int

	// Clusters is the number of clusters found, excluding the outlier
	// group.
	Clusters int

	// Outliers is the number of notes left in the outlier group after
	// refinement.
	Outliers int

	// Reassigned is the number of outliers moved into a cluster by the
	// quality gate.
	Reassigned int
}
