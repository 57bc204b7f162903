package driven

import "context"

// ArtifactStore persists shard artifacts on durable storage.
type ArtifactStore interface {
	// Write stores an artifact atomically under its name.
	Write(ctx context.Context, site, name string, content []byte) error

	// Remove deletes an artifact. Removing an absent artifact is a no-op.
	Remove(ctx context.Context, site, name string) error

	// List returns the artifact names currently stored for a site.
	List(ctx context.Context, site string) ([]string, error)
}
