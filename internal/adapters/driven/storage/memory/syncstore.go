package memory

import (
	"context"
	"sync"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
// The mutex stands in for the file adapter's advisory lock.
type SyncStateStore struct {
	mu    sync.RWMutex
	state domain.SyncState

	// UpdateErr, when set, is returned by Update before fn runs.
	UpdateErr error
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{state: make(domain.SyncState)}
}

// Get retrieves the record for (site, artifact).
func (s *SyncStateStore) Get(_ context.Context, site, artifact string) (*domain.SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.state.Record(site, artifact)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Records returns all records for a site.
func (s *SyncStateStore) Records(_ context.Context, site string) (map[string]domain.SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Site(site), nil
}

// Update runs fn against the state under the lock.
func (s *SyncStateStore) Update(_ context.Context, fn func(state domain.SyncState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	return fn(s.state)
}

// State returns a snapshot copy of the whole state, for assertions.
func (s *SyncStateStore) State() domain.SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.SyncState, len(s.state))
	for site, arts := range s.state {
		cp := make(map[string]domain.SyncRecord, len(arts))
		for name, rec := range arts {
			cp[name] = rec
		}
		out[site] = cp
	}
	return out
}
