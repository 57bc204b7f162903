// Package file provides the TOML-backed site profile store.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

const profilesFileName = "profiles.toml"

// ProfileStore reads site profiles from a TOML file in the config
// directory. Profiles are loaded once at construction; the file is the
// whole configuration surface for the categorisation waterfall.
type ProfileStore struct {
	profiles []domain.SiteProfile
}

// profilesFile is the on-disk TOML shape.
type profilesFile struct {
	Profiles []profileEntry `toml:"profiles"`
}

type profileEntry struct {
	Site                 string         `toml:"site"`
	BaseURL              string         `toml:"base_url"`
	EntityPathMarker     string         `toml:"entity_path_marker"`
	CategorySegmentIndex int            `toml:"category_segment_index"`
	UseBreadcrumbs       bool           `toml:"use_breadcrumbs"`
	DefaultShard         string         `toml:"default_shard"`
	MaxArtifactChars     int            `toml:"max_artifact_chars"`
	AgentID              string         `toml:"agent_id"`
	Keywords             []keywordEntry `toml:"keywords"`
}

type keywordEntry struct {
	Category string   `toml:"category"`
	Keywords []string `toml:"keywords"`
}

// NewProfileStore loads profiles.toml from configDir. If configDir is
// empty, defaults to ~/.llmsync. A missing file yields an empty store.
func NewProfileStore(configDir string) (*ProfileStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".llmsync")
	}

	path := filepath.Join(configDir, profilesFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ProfileStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var parsed profilesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	store := &ProfileStore{}
	for _, entry := range parsed.Profiles {
		profile := domain.SiteProfile{
			Site:                 entry.Site,
			BaseURL:              entry.BaseURL,
			EntityPathMarker:     entry.EntityPathMarker,
			CategorySegmentIndex: entry.CategorySegmentIndex,
			UseBreadcrumbs:       entry.UseBreadcrumbs,
			DefaultShard:         entry.DefaultShard,
			MaxArtifactChars:     entry.MaxArtifactChars,
			AgentID:              entry.AgentID,
		}
		for _, kw := range entry.Keywords {
			profile.Keywords = append(profile.Keywords, domain.CategoryKeywords{
				Category: kw.Category,
				Keywords: kw.Keywords,
			})
		}
		profile.Normalise()
		store.profiles = append(store.profiles, profile)
	}
	return store, nil
}

// NewStaticProfileStore wraps an in-memory profile list. Used in tests.
func NewStaticProfileStore(profiles ...domain.SiteProfile) *ProfileStore {
	store := &ProfileStore{}
	for _, profile := range profiles {
		profile.Normalise()
		store.profiles = append(store.profiles, profile)
	}
	return store
}

// Get returns the profile whose site matches the host. Matching is
// case-insensitive and ignores a leading "www.".
func (s *ProfileStore) Get(host string) (*domain.SiteProfile, error) {
	needle := canonicalHost(host)
	for i := range s.profiles {
		if canonicalHost(s.profiles[i].Site) == needle {
			profile := s.profiles[i]
			return &profile, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, host)
}

// List returns all configured profiles.
func (s *ProfileStore) List() ([]domain.SiteProfile, error) {
	out := make([]domain.SiteProfile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}
