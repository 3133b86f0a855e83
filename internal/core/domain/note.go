package domain

import (
	"fmt"
	"time"
)

// NoteMeta is the lightweight metadata a note source returns before
// content is fetched. Title alone is not unique; full identity is
// resolved by NoteKey once the creation timestamp is known.
type NoteMeta struct {
	// Title is the human-readable note title.
	Title string

	// CreatedAt is when the note was created in the source system.
	CreatedAt time.Time

	// ModifiedAt is when the note was last edited in the source system.
	ModifiedAt time.Time
}

// Note is a fully fetched note. It is treated as an immutable input
// for one organise pass.
type Note struct {
	// Title is the human-readable note title.
	Title string

	// Body is the full plain-text content.
	Body string

	// CreatedAt is when the note was created in the source system.
	CreatedAt time.Time

	// ModifiedAt is when the note was last edited in the source system.
	ModifiedAt time.Time
}

// Meta returns the metadata view of the note.
func (n Note) Meta() NoteMeta {
	return NoteMeta{Title: n.Title, CreatedAt: n.CreatedAt, ModifiedAt: n.ModifiedAt}
}

// Key returns the identity key of the note.
func (n Note) Key() NoteKey {
	return NoteKey{Title: n.Title, CreatedAt: n.CreatedAt}
}

// Text returns the text that is chunked and embedded: the title
// concatenated with the body so short notes still carry their topic.
func (n Note) Text() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Body
}

// NoteKey identifies a note. Two notes are the same entity iff both
// title and creation timestamp match exactly.
type NoteKey struct {
	// Title is the note title.
	Title string

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time
}

// String renders the key in a stable form usable as a map key and as
// a snapshot entry key.
func (k NoteKey) String() string {
	return fmt.Sprintf("%s\x1f%d", k.Title, k.CreatedAt.UnixMilli())
}

// Chunk is a bounded-length text segment of one note, with positional
// overlap to its neighbour. Chunks are never mutated after creation;
// re-indexing a modified note replaces its chunks wholesale.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// NoteKey links to the source note.
	NoteKey NoteKey

	// Index is the 0-based, dense position within the note.
	Index int

	// Total is the number of chunks produced from the note. Constant
	// across all chunks of one note.
	Total int

	// Text is the chunk content.
	Text string

	// Embedding is the vector produced by the embedding service.
	// Nil when embedding failed for this chunk.
	Embedding []float32
}

// NoteEmbedding is the dimension-wise mean of all chunk embeddings of
// one note. Derived, never persisted independently of its chunks.
type NoteEmbedding struct {
	// NoteKey links to the source note.
	NoteKey NoteKey

	// Vector is the centroid of the note's chunk embeddings.
	Vector []float32

	// ChunkCount is the number of chunk embeddings averaged. Always >= 1;
	// a note with no embedded chunks has no NoteEmbedding.
	ChunkCount int
}
