package domain

import "fmt"

// ShardArtifact is one flat textual unit derived from a shard.
// A shard produces multiple artifacts when the serialised size of its
// entities exceeds the configured character ceiling.
type ShardArtifact struct {
	// Site identifies the owning site.
	Site string

	// ShardKey is the shard this artifact belongs to.
	ShardKey string

	// PartIndex is the 1-based part number within the shard.
	PartIndex int

	// Name is the artifact file name, unique within the site.
	Name string

	// EntityIDs is the ordered sequence of member entity ids.
	// The union of EntityIDs across all parts of a shard equals exactly
	// the shard's membership in the content index.
	EntityIDs []string

	// Content is the serialised artifact bytes.
	Content []byte
}

// ArtifactName builds the canonical artifact file name for a shard part.
// The first part carries no suffix so single-part shards keep stable names.
func ArtifactName(site, shardKey string, part int) string {
	site = NormaliseSiteKey(site)
	if part <= 1 {
		return fmt.Sprintf("llms-%s-%s.txt", site, shardKey)
	}
	return fmt.Sprintf("llms-%s-%s-%d.txt", site, shardKey, part)
}
