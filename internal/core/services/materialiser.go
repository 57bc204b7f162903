package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// Materialiser regenerates the flat per-shard text artifacts from the
// content index whenever membership changes. Serialisation order is the
// shard's insertion order and must never change: artifact hashes are only
// meaningful while the order stays stable.
type Materialiser struct {
	artifacts driven.ArtifactStore
}

// NewMaterialiser creates a shard materialiser.
func NewMaterialiser(artifacts driven.ArtifactStore) *Materialiser {
	return &Materialiser{artifacts: artifacts}
}

// Materialise serialises the given shards of the index into artifacts,
// splitting shards whose serialised length exceeds the profile's
// character ceiling. The union of entity ids across a shard's parts
// equals exactly the shard's membership in the index. Artifacts of parts
// that no longer exist (shrunken or emptied shards) are removed.
// Returns every artifact produced this pass.
func (m *Materialiser) Materialise(
	ctx context.Context,
	profile *domain.SiteProfile,
	index *ContentIndex,
	shardKeys []string,
) ([]domain.ShardArtifact, error) {
	var produced []domain.ShardArtifact

	for _, shardKey := range shardKeys {
		artifacts, err := m.materialiseShard(ctx, profile, index, shardKey)
		if err != nil {
			return nil, err
		}
		produced = append(produced, artifacts...)
	}
	return produced, nil
}

func (m *Materialiser) materialiseShard(
	ctx context.Context,
	profile *domain.SiteProfile,
	index *ContentIndex,
	shardKey string,
) ([]domain.ShardArtifact, error) {
	site := index.Site()
	members := index.ShardMembers(shardKey)

	var artifacts []domain.ShardArtifact
	part := domain.ShardArtifact{Site: site, ShardKey: shardKey, PartIndex: 1}
	var buf strings.Builder

	flush := func() {
		if len(part.EntityIDs) == 0 {
			return
		}
		part.Name = domain.ArtifactName(site, shardKey, part.PartIndex)
		part.Content = []byte(buf.String())
		artifacts = append(artifacts, part)
		part = domain.ShardArtifact{Site: site, ShardKey: shardKey, PartIndex: part.PartIndex + 1}
		buf.Reset()
	}

	for _, id := range members {
		entity, ok := index.Entity(id)
		if !ok {
			// Manifest/record divergence would break the membership
			// invariant; surface it instead of papering over.
			return nil, fmt.Errorf("shard %s lists unknown entity %s", shardKey, id)
		}
		block := renderEntity(entity)
		if buf.Len() > 0 && buf.Len()+len(block) > profile.MaxArtifactChars {
			flush()
		}
		buf.WriteString(block)
		part.EntityIDs = append(part.EntityIDs, id)
	}
	flush()

	for _, artifact := range artifacts {
		if err := m.artifacts.Write(ctx, site, artifact.Name, artifact.Content); err != nil {
			return nil, fmt.Errorf("%w: write artifact %s: %v", domain.ErrIndexPersist, artifact.Name, err)
		}
	}

	if err := m.removeStaleParts(ctx, site, shardKey, len(artifacts)); err != nil {
		return nil, err
	}

	logger.Debug("Materialised shard %s/%s into %d artifact(s), %d entities",
		site, shardKey, len(artifacts), len(members))
	return artifacts, nil
}

// removeStaleParts deletes artifacts of parts beyond the current count,
// left behind when a shard shrank below a split boundary or emptied.
func (m *Materialiser) removeStaleParts(ctx context.Context, site, shardKey string, liveParts int) error {
	existing, err := m.artifacts.List(ctx, site)
	if err != nil {
		return fmt.Errorf("list artifacts for %s: %w", site, err)
	}

	live := make(map[string]struct{}, liveParts)
	for p := 1; p <= liveParts; p++ {
		live[domain.ArtifactName(site, shardKey, p)] = struct{}{}
	}

	for _, name := range existing {
		if !artifactBelongsToShard(site, shardKey, name) {
			continue
		}
		if _, ok := live[name]; ok {
			continue
		}
		if err := m.artifacts.Remove(ctx, site, name); err != nil {
			return fmt.Errorf("remove stale artifact %s: %w", name, err)
		}
		logger.Debug("Removed stale artifact %s", name)
	}
	return nil
}

// artifactBelongsToShard matches names produced by domain.ArtifactName
// for this shard, including numbered parts.
func artifactBelongsToShard(site, shardKey, name string) bool {
	base := domain.ArtifactName(site, shardKey, 1)
	if name == base {
		return true
	}
	prefix := strings.TrimSuffix(base, ".txt") + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".txt") {
		return false
	}
	suffix := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".txt")
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return suffix != ""
}

// renderEntity serialises one entity as a llms.txt style block.
// The format is fixed; changing it invalidates every stored content hash.
func renderEntity(entity domain.Entity) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(entity.Title)
	b.WriteString("\n\nURL: ")
	b.WriteString(entity.ID)
	b.WriteString("\n")
	if entity.Body.Price != "" {
		b.WriteString("Price: ")
		b.WriteString(entity.Body.Price)
		b.WriteString("\n")
	}
	if entity.Body.Availability != "" {
		b.WriteString("Availability: ")
		b.WriteString(entity.Body.Availability)
		b.WriteString("\n")
	}
	if entity.Body.Description != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(entity.Body.Description))
		b.WriteString("\n")
	}
	if len(entity.Body.Specs) > 0 {
		b.WriteString("\nSpecifications:\n")
		for _, spec := range entity.Body.Specs {
			b.WriteString("- ")
			b.WriteString(spec.Name)
			b.WriteString(": ")
			b.WriteString(spec.Value)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n---\n\n")
	return b.String()
}
