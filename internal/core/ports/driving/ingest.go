package driving

import "context"

// Ingestor processes change notification payloads end to end: normalise,
// extract, categorise, index, materialise, sync.
type Ingestor interface {
	// ProcessPayload handles one raw webhook payload. The affected sites
	// are derived from the subject URLs inside the payload.
	ProcessPayload(ctx context.Context, payload []byte) (*IngestReport, error)

	// Remove strikes one entity from a site's index and syncs the
	// affected shard. Removing an unknown entity is idempotent.
	Remove(ctx context.Context, site, entityURL string) error

	// Sync rematerialises every shard of a site from the content index
	// and syncs all artifacts. Unchanged artifacts are skipped by hash.
	Sync(ctx context.Context, site string) (*SyncReport, error)

	// Rebuild re-scrapes every indexed entity of a site, re-resolves its
	// category, then materialises and syncs all artifacts.
	Rebuild(ctx context.Context, site string) (*SyncReport, error)
}

// IngestReport summarises one ingest invocation.
type IngestReport struct {
	// RunID identifies the invocation in logs.
	RunID string

	// Events is the number of change events normalised from the payload.
	Events int

	// Upserted is the number of entities inserted or replaced.
	Upserted int

	// Removed is the number of entities struck from the index.
	Removed int

	// Degraded lists subject URLs processed in degraded full-subject
	// mode because diff extraction found no usable candidate.
	Degraded []string

	// Skipped lists subject URLs that could not be processed (no
	// profile, invalid entity page). Logged, not fatal.
	Skipped []string

	// Sync reports the remote synchronisation outcome per site.
	Sync map[string]*SyncReport
}
