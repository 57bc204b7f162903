package driven

import (
	"context"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// SyncStateStore persists the artifact-to-remote-document state.
// Implementations guard the whole file with advisory locking: reads take
// a shared lock, Update takes an exclusive lock for the duration of the
// read-modify-write, and writes go through a temporary file plus rename
// so a concurrent reader never sees a truncated state.
type SyncStateStore interface {
	// Get retrieves the record for (site, artifact).
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, site, artifact string) (*domain.SyncRecord, error)

	// Records returns all records for a site, keyed by artifact name.
	Records(ctx context.Context, site string) (map[string]domain.SyncRecord, error)

	// Update runs fn against the current state under an exclusive lock
	// and persists the result atomically. If fn returns an error nothing
	// is written. This is the only mutation path; it makes one
	// invocation's read-modify-write atomic relative to another's.
	Update(ctx context.Context, fn func(state domain.SyncState) error) error
}
