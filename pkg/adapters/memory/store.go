package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Store implements ports.ExecutionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	// Copy to ensure isolation, similar to serialization
	copied := cloneSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.ID] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[executionID]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}

	// Copy on read so caller can't mutate store state directly by pointer
	return cloneSnapshot(snap), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, executionID)
	return nil
}

// List returns the stored execution ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// cloneSnapshot copies the snapshot structure. Attribute values are shared.
func cloneSnapshot(src *domain.Snapshot) *domain.Snapshot {
	dst := *src
	dst.Conversation = append([]domain.Attribute(nil), src.Conversation...)
	dst.Sessions = make([]domain.SessionRecord, len(src.Sessions))
	for i, rec := range src.Sessions {
		rec.Attributes = append([]domain.Attribute(nil), rec.Attributes...)
		dst.Sessions[i] = rec
	}
	return &dst
}
