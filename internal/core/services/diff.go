package services

import (
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// Changes classifies the current note set against the previous
// snapshot. New, Modified and Unchanged partition the input exactly:
// every note appears in exactly one list.
type Changes struct {
	// New are notes whose title is absent from the snapshot.
	New []domain.NoteMeta

	// Modified are notes whose modification timestamp differs from the
	// cached value. Any mismatch counts, not only strictly newer.
	Modified []domain.NoteMeta

	// Unchanged are notes matching the snapshot exactly.
	Unchanged []domain.NoteMeta
}

// Diff compares current note metadata against the previous snapshot.
// Comparison is keyed by title; full identity by (title, created_at)
// is resolved downstream once content is fetched. A nil snapshot means
// first run: every note is new.
//
// Callers must delete all stored chunks of every modified note before
// re-chunking it, so stale rows never coexist with fresh ones.
func Diff(current []domain.NoteMeta, snap *domain.CacheSnapshot) Changes {
	var changes Changes

	if snap == nil || len(snap.Entries) == 0 {
		changes.New = append(changes.New, current...)
		logger.Debug("No snapshot: %d notes classified new", len(current))
		return changes
	}

	for _, meta := range current {
		entry, ok := snap.Entries[meta.Title]
		switch {
		case !ok:
			changes.New = append(changes.New, meta)
		case !entry.ModifiedAt.Equal(meta.ModifiedAt):
			changes.Modified = append(changes.Modified, meta)
		default:
			changes.Unchanged = append(changes.Unchanged, meta)
		}
	}

	logger.Debug("Diff: %d new, %d modified, %d unchanged",
		len(changes.New), len(changes.Modified), len(changes.Unchanged))
	return changes
}
