package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is an in-memory implementation of driven.ArtifactStore.
type ArtifactStore struct {
	mu    sync.RWMutex
	files map[string]map[string][]byte
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{files: make(map[string]map[string][]byte)}
}

// Write stores an artifact.
func (s *ArtifactStore) Write(_ context.Context, site, name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.NormaliseSiteKey(site)
	if s.files[key] == nil {
		s.files[key] = make(map[string][]byte)
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	s.files[key][name] = cp
	return nil
}

// Remove deletes an artifact. Unknown names are a no-op.
func (s *ArtifactStore) Remove(_ context.Context, site, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files[domain.NormaliseSiteKey(site)], name)
	return nil
}

// List returns the artifact names for a site in lexical order.
func (s *ArtifactStore) List(_ context.Context, site string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.files[domain.NormaliseSiteKey(site)] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Content returns the stored bytes for an artifact, for assertions.
func (s *ArtifactStore) Content(site, name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[domain.NormaliseSiteKey(site)][name]
	return content, ok
}
