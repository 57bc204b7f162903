package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

const (
	indexFileName    = "index.json"
	manifestFileName = "manifest.json"
	siteLockName     = ".lock"
)

// IndexStore persists one content index per site under
// <dataDir>/<site-key>/: index.json holds the entity records, manifest.json
// the shard membership lists. Both are written together under an
// exclusive lock so the record/manifest pair is never observed split.
type IndexStore struct {
	dataDir string
}

// NewIndexStore creates a file-backed index store rooted at dataDir.
func NewIndexStore(dataDir string) *IndexStore {
	return &IndexStore{dataDir: dataDir}
}

// indexedEntity is the on-disk record shape.
type indexedEntity struct {
	Title        string            `json:"title"`
	Price        string            `json:"price,omitempty"`
	Availability string            `json:"availability,omitempty"`
	Description  string            `json:"description,omitempty"`
	Specs        []domain.SpecAttr `json:"specs,omitempty"`
	ShardKey     string            `json:"shard"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (s *IndexStore) siteDir(site string) string {
	return filepath.Join(s.dataDir, domain.NormaliseSiteKey(site))
}

// Load reads the snapshot for a site. A site without persisted state
// yields an empty snapshot.
func (s *IndexStore) Load(_ context.Context, site string) (*domain.IndexSnapshot, error) {
	dir := s.siteDir(site)
	lock, err := acquireLock(filepath.Join(dir, siteLockName), false)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	snap := domain.NewIndexSnapshot()

	records := make(map[string]indexedEntity)
	if err := readJSON(filepath.Join(dir, indexFileName), &records); err != nil {
		return nil, fmt.Errorf("read index for %s: %w", site, err)
	}
	for id, rec := range records {
		snap.Entities[id] = domain.Entity{
			ID:    id,
			Title: rec.Title,
			Body: domain.EntityBody{
				Price:        rec.Price,
				Availability: rec.Availability,
				Description:  rec.Description,
				Specs:        rec.Specs,
			},
			ShardKey:  rec.ShardKey,
			UpdatedAt: rec.UpdatedAt,
		}
	}

	manifest := make(map[string][]string)
	if err := readJSON(filepath.Join(dir, manifestFileName), &manifest); err != nil {
		return nil, fmt.Errorf("read manifest for %s: %w", site, err)
	}
	for shard, ids := range manifest {
		snap.Shards[shard] = ids
	}

	return snap, nil
}

// Save writes both files atomically under the site's exclusive lock.
func (s *IndexStore) Save(_ context.Context, site string, snap *domain.IndexSnapshot) error {
	dir := s.siteDir(site)
	lock, err := acquireLock(filepath.Join(dir, siteLockName), true)
	if err != nil {
		return err
	}
	defer lock.release()

	records := make(map[string]indexedEntity, len(snap.Entities))
	for id, entity := range snap.Entities {
		records[id] = indexedEntity{
			Title:        entity.Title,
			Price:        entity.Body.Price,
			Availability: entity.Body.Availability,
			Description:  entity.Body.Description,
			Specs:        entity.Body.Specs,
			ShardKey:     entity.ShardKey,
			UpdatedAt:    entity.UpdatedAt,
		}
	}
	if err := writeJSON(filepath.Join(dir, indexFileName), records); err != nil {
		return fmt.Errorf("write index for %s: %w", site, err)
	}
	if err := writeJSON(filepath.Join(dir, manifestFileName), snap.Shards); err != nil {
		return fmt.Errorf("write manifest for %s: %w", site, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, append(data, '\n'))
}
