package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

const artifactPrefix = "llms-"

// ArtifactStore persists shard artifacts as flat text files in the
// site's data directory, next to the index and manifest.
type ArtifactStore struct {
	dataDir string
}

// NewArtifactStore creates a file-backed artifact store rooted at dataDir.
func NewArtifactStore(dataDir string) *ArtifactStore {
	return &ArtifactStore{dataDir: dataDir}
}

func (s *ArtifactStore) siteDir(site string) string {
	return filepath.Join(s.dataDir, domain.NormaliseSiteKey(site))
}

// Write stores an artifact atomically.
func (s *ArtifactStore) Write(_ context.Context, site, name string, content []byte) error {
	if err := writeAtomic(filepath.Join(s.siteDir(site), name), content); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

// Remove deletes an artifact. Removing an absent artifact is a no-op.
func (s *ArtifactStore) Remove(_ context.Context, site, name string) error {
	err := os.Remove(filepath.Join(s.siteDir(site), name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact %s: %w", name, err)
	}
	return nil
}

// List returns the artifact file names for a site in lexical order.
func (s *ArtifactStore) List(_ context.Context, site string) ([]string, error) {
	entries, err := os.ReadDir(s.siteDir(site))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, artifactPrefix) && strings.HasSuffix(name, ".txt") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
