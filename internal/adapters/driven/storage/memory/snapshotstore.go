package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap *domain.CacheSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Load reads the previous snapshot. Returns (nil, nil) when none was
// saved yet.
func (s *SnapshotStore) Load(_ context.Context) (*domain.CacheSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, nil
	}

	copied := &domain.CacheSnapshot{
		LastSync: s.snap.LastSync,
		Entries:  make(map[string]domain.SnapshotEntry, len(s.snap.Entries)),
	}
	for k, v := range s.snap.Entries {
		copied.Entries[k] = v
	}
	return copied, nil
}

// Save fully replaces the snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.CacheSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}
