package driven

import (
	"context"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// IndexStore persists one content index snapshot per site: the entity
// records plus the shard membership manifest.
type IndexStore interface {
	// Load returns the snapshot for a site. A site that has never been
	// persisted yields an empty snapshot, not an error.
	Load(ctx context.Context, site string) (*domain.IndexSnapshot, error)

	// Save persists the snapshot atomically: a concurrent reader sees
	// either the previous state or the new one, never a partial write.
	Save(ctx context.Context, site string, snap *domain.IndexSnapshot) error
}
