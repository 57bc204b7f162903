package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// ContentIndex is the authoritative mapping from entity id to its
// last-known content and shard assignment for one site. It is the source
// of truth for what the remote store should contain.
//
// Every mutation is flushed through the index store before it returns.
// On a persist failure the in-memory state is NOT rolled back: partial
// application is not distinguishable from success without a successful
// flush, so the caller must retry the whole operation.
type ContentIndex struct {
	store driven.IndexStore
	site  string
	snap  *domain.IndexSnapshot

	// changed tracks shards whose membership or content changed since
	// the index was opened. Drives materialisation.
	changed map[string]struct{}

	now func() time.Time
}

// OpenContentIndex loads the persisted snapshot for a site.
// A site that has never been indexed yields an empty, usable index.
func OpenContentIndex(ctx context.Context, store driven.IndexStore, site string) (*ContentIndex, error) {
	snap, err := store.Load(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("load index for %s: %w", site, err)
	}
	if snap == nil {
		snap = domain.NewIndexSnapshot()
	}
	return &ContentIndex{
		store:   store,
		site:    site,
		snap:    snap,
		changed: make(map[string]struct{}),
		now:     time.Now,
	}, nil
}

// Site returns the site this index belongs to.
func (i *ContentIndex) Site() string {
	return i.site
}

// Upsert inserts or replaces an entity record by id. A shard move removes
// the entity from the old shard's membership and appends it to the new
// one, atomically with respect to the index's own persistence.
func (i *ContentIndex) Upsert(ctx context.Context, entity domain.Entity) error {
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = i.now()
	}

	if prior, exists := i.snap.Entities[entity.ID]; exists && prior.ShardKey != entity.ShardKey {
		i.snap.Shards[prior.ShardKey] = removeID(i.snap.Shards[prior.ShardKey], entity.ID)
		if len(i.snap.Shards[prior.ShardKey]) == 0 {
			delete(i.snap.Shards, prior.ShardKey)
		}
		i.changed[prior.ShardKey] = struct{}{}
	}

	if !containsID(i.snap.Shards[entity.ShardKey], entity.ID) {
		i.snap.Shards[entity.ShardKey] = append(i.snap.Shards[entity.ShardKey], entity.ID)
	}
	i.snap.Entities[entity.ID] = entity
	i.changed[entity.ShardKey] = struct{}{}

	return i.flush(ctx)
}

// Remove deletes an entity and shrinks its shard's membership.
// Removing an absent id is idempotent and does not touch storage.
func (i *ContentIndex) Remove(ctx context.Context, id string) error {
	entity, exists := i.snap.Entities[id]
	if !exists {
		return nil
	}

	delete(i.snap.Entities, id)
	i.snap.Shards[entity.ShardKey] = removeID(i.snap.Shards[entity.ShardKey], id)
	if len(i.snap.Shards[entity.ShardKey]) == 0 {
		delete(i.snap.Shards, entity.ShardKey)
	}
	i.changed[entity.ShardKey] = struct{}{}

	return i.flush(ctx)
}

// Entity returns the record for an id, if present.
func (i *ContentIndex) Entity(id string) (domain.Entity, bool) {
	entity, ok := i.snap.Entities[id]
	return entity, ok
}

// ShardMembers returns the ordered member entity ids of a shard
// (insertion order, for artifact stability). The returned slice is a copy.
func (i *ContentIndex) ShardMembers(shardKey string) []string {
	members := i.snap.Shards[shardKey]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Shards returns all shard keys in lexical order.
func (i *ContentIndex) Shards() []string {
	keys := make([]string, 0, len(i.snap.Shards))
	for key := range i.snap.Shards {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ChangedShards returns, in lexical order, the shards touched since the
// index was opened. Shards that lost their last member are included so
// their artifacts can be withdrawn.
func (i *ContentIndex) ChangedShards() []string {
	keys := make([]string, 0, len(i.changed))
	for key := range i.changed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (i *ContentIndex) flush(ctx context.Context) error {
	if err := i.store.Save(ctx, i.site, i.snap); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexPersist, err)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
