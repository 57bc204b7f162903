// Package memory provides in-memory implementations of the storage
// ports. Used in tests and as a reference for the file-backed adapters.
package memory

import (
	"context"
	"sync"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
type IndexStore struct {
	mu    sync.RWMutex
	snaps map[string]*domain.IndexSnapshot

	// SaveErr, when set, is returned by Save. Simulates persist failures.
	SaveErr error

	// Saves counts successful Save calls.
	Saves int
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{snaps: make(map[string]*domain.IndexSnapshot)}
}

// Load returns a deep copy of the stored snapshot, or an empty snapshot
// for an unknown site.
func (s *IndexStore) Load(_ context.Context, site string) (*domain.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[domain.NormaliseSiteKey(site)]
	if !ok {
		return domain.NewIndexSnapshot(), nil
	}
	return copySnapshot(snap), nil
}

// Save stores a deep copy of the snapshot.
func (s *IndexStore) Save(_ context.Context, site string, snap *domain.IndexSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.snaps[domain.NormaliseSiteKey(site)] = copySnapshot(snap)
	s.Saves++
	return nil
}

func copySnapshot(snap *domain.IndexSnapshot) *domain.IndexSnapshot {
	out := domain.NewIndexSnapshot()
	for id, entity := range snap.Entities {
		out.Entities[id] = entity
	}
	for shard, ids := range snap.Shards {
		members := make([]string, len(ids))
		copy(members, ids)
		out.Shards[shard] = members
	}
	return out
}
