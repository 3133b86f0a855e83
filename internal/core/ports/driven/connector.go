package driven

import (
	"context"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// NoteSource fetches notes from an external system. Each source type
// (filesystem, notion, ...) implements this interface.
type NoteSource interface {
	// Type returns the source type identifier.
	Type() string

	// Capabilities returns what this source supports.
	Capabilities() SourceCapabilities

	// Validate checks the source is properly configured and reachable.
	// For filesystem this checks the path exists; for API sources it
	// makes a lightweight test call.
	Validate(ctx context.Context) error

	// ListMeta enumerates note metadata. A limit of 0 means unbounded.
	// Titles may repeat; identity is resolved after Fetch.
	ListMeta(ctx context.Context, limit int) ([]domain.NoteMeta, error)

	// Fetch streams full notes for the given titles. Per-note fetch
	// failures are sent on the error channel and do not terminate the
	// stream; both channels are closed when the source is done.
	Fetch(ctx context.Context, titles []string) (<-chan domain.Note, <-chan error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.NoteMeta, error)

	// Close releases resources.
	Close() error
}

// SourceCapabilities describes what a note source supports.
type SourceCapabilities struct {
	// SupportsWatch indicates the source can push real-time events.
	SupportsWatch bool

	// SupportsValidation indicates Validate() performs an actual check.
	SupportsValidation bool

	// SupportsPagination indicates the source handles paginated APIs
	// internally. Informational.
	SupportsPagination bool
}

// FetchError reports a per-note fetch failure on a Fetch error channel.
type FetchError struct {
	// Title is the title of the note that failed.
	Title string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "fetch " + e.Title + ": " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *FetchError) Unwrap() error {
	return e.Err
}
