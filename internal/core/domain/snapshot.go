package domain

import "time"

// SnapshotEntry records the timestamps of one note at the end of a
// pass. Entries are keyed by title: the source system does not
// guarantee creation-timestamp stability before content is fetched, so
// the cheap pre-filter compares titles only.
type SnapshotEntry struct {
	// CreatedAt is the note's creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt is the note's last-edit timestamp as seen in the pass.
	ModifiedAt time.Time `json:"modified_at"`
}

// CacheSnapshot is the persisted record of the previous pass, used to
// skip re-embedding unchanged notes. It is read at the start of a pass
// and fully replaced, never merged, at the end.
type CacheSnapshot struct {
	// LastSync is when the snapshot was written.
	LastSync time.Time `json:"last_sync"`

	// Entries maps note title to the timestamps seen at last sync.
	Entries map[string]SnapshotEntry `json:"entries"`
}

// NewCacheSnapshot returns an empty snapshot stamped now.
func NewCacheSnapshot() *CacheSnapshot {
	return &CacheSnapshot{
		LastSync: time.Now().UTC(),
		Entries:  make(map[string]SnapshotEntry),
	}
}
