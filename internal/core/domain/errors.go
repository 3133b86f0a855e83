package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoEmbeddings indicates clustering was requested with zero note
	// embeddings available. This is a pass-level failure, distinct from
	// clustering running and finding zero clusters.
	ErrNoEmbeddings = errors.New("no note embeddings available")

	// ErrSourceUnavailable indicates the note source is not configured
	// or cannot be reached.
	ErrSourceUnavailable = errors.New("note source unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Organising is impossible without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreVerification indicates a post-write count check against
	// the chunk store did not match what was written. The pass is
	// aborted rather than declaring a silent partial write a success.
	ErrStoreVerification = errors.New("store verification failed")

	// ErrPassInProgress indicates an organise pass is already running.
	ErrPassInProgress = errors.New("organise pass in progress")
)
