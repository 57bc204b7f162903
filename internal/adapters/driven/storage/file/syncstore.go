package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

const (
	syncStateFileName = "sync-state.json"
	syncLockFileName  = "sync-state.lock"
)

// SyncStateStore persists the process-wide sync state as a single JSON
// file: site key to artifact name to sync record.
//
// The store is small enough that whole-file locking is acceptable.
// Readers take a shared flock, Update takes an exclusive flock for the
// smallest critical section around its read-modify-write, and every
// write goes through a temporary file plus rename.
type SyncStateStore struct {
	statePath string
	lockPath  string
}

// NewSyncStateStore creates a file-backed sync state store under dataDir.
func NewSyncStateStore(dataDir string) *SyncStateStore {
	return &SyncStateStore{
		statePath: filepath.Join(dataDir, syncStateFileName),
		lockPath:  filepath.Join(dataDir, syncLockFileName),
	}
}

// Get retrieves the record for (site, artifact) under a shared lock.
func (s *SyncStateStore) Get(_ context.Context, site, artifact string) (*domain.SyncRecord, error) {
	lock, err := acquireLock(s.lockPath, false)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := state.Record(site, artifact)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Records returns all records for a site under a shared lock.
func (s *SyncStateStore) Records(_ context.Context, site string) (map[string]domain.SyncRecord, error) {
	lock, err := acquireLock(s.lockPath, false)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	return state.Site(site), nil
}

// Update runs fn against the current state under an exclusive lock and
// persists the result atomically. Nothing is written when fn errors.
func (s *SyncStateStore) Update(_ context.Context, fn func(state domain.SyncState) error) error {
	lock, err := acquireLock(s.lockPath, true)
	if err != nil {
		return err
	}
	defer lock.release()

	state, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.persist(state)
}

// load reads and validates the state file. Malformed branches are
// dropped with a warning rather than aborting the whole store, and
// entries under legacy site spellings are merged into the canonical key.
func (s *SyncStateStore) load() (domain.SyncState, error) {
	state := make(domain.SyncState)

	data, err := os.ReadFile(s.statePath)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}

	var sites map[string]json.RawMessage
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse sync state: %w", err)
	}

	for site, rawArtifacts := range sites {
		var artifacts map[string]json.RawMessage
		if err := json.Unmarshal(rawArtifacts, &artifacts); err != nil {
			logger.Warn("Dropping malformed sync state branch for site %q: %v", site, err)
			continue
		}
		for name, rawRecord := range artifacts {
			var rec domain.SyncRecord
			if err := json.Unmarshal(rawRecord, &rec); err != nil {
				logger.Warn("Dropping malformed sync record %s/%s: %v", site, name, err)
				continue
			}
			if rec.ContentHash == "" && rec.RemoteDocumentID == "" && rec.PreviousDocumentID == "" {
				logger.Warn("Dropping empty sync record %s/%s", site, name)
				continue
			}
			if state[site] == nil {
				state[site] = make(map[string]domain.SyncRecord)
			}
			state[site][name] = rec
		}
	}

	if merged := state.Reconcile(); merged > 0 {
		logger.Info("Reconciled %d legacy site key(s) in sync state", merged)
	}
	return state, nil
}

func (s *SyncStateStore) persist(state domain.SyncState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := writeAtomic(s.statePath, append(data, '\n')); err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	return nil
}
