package domain

import "strings"

// Default profile parameters applied by Normalise.
const (
	// DefaultEntityPathMarker marks entity pages in URL paths.
	DefaultEntityPathMarker = "/products/"

	// DefaultShardKey is the catch-all bucket used when every
	// categorisation strategy fails.
	DefaultShardKey = "other"

	// DefaultMaxArtifactChars is the artifact size ceiling imposed by the
	// knowledge base service.
	DefaultMaxArtifactChars = 300_000
)

// SiteProfile supplies the per-site parameters for the extraction and
// categorisation waterfall.
type SiteProfile struct {
	// Site is the site's host name (e.g. "shop.example.com").
	Site string

	// BaseURL resolves relative candidate links found in diffs.
	BaseURL string

	// EntityPathMarker is the path segment identifying entity pages.
	EntityPathMarker string

	// CategorySegmentIndex is the zero-based URL path segment used by the
	// structural categorisation strategy.
	CategorySegmentIndex int

	// UseBreadcrumbs enables the breadcrumb strategy when the structural
	// strategy yields the default bucket.
	UseBreadcrumbs bool

	// DefaultShard is the catch-all shard key.
	DefaultShard string

	// Keywords is the ordered keyword classification table.
	// Order matters: the first matching category wins.
	Keywords []CategoryKeywords

	// MaxArtifactChars is the per-artifact character ceiling.
	MaxArtifactChars int

	// AgentID is the knowledge base consumer documents are assigned to.
	// Empty disables assignment.
	AgentID string
}

// CategoryKeywords maps one category to its keyword set.
type CategoryKeywords struct {
	Category string
	Keywords []string
}

// Normalise fills unset profile fields with defaults.
func (p *SiteProfile) Normalise() {
	if p.EntityPathMarker == "" {
		p.EntityPathMarker = DefaultEntityPathMarker
	}
	if p.DefaultShard == "" {
		p.DefaultShard = DefaultShardKey
	}
	if p.MaxArtifactChars <= 0 {
		p.MaxArtifactChars = DefaultMaxArtifactChars
	}
	if p.BaseURL == "" && p.Site != "" {
		p.BaseURL = "https://" + p.Site
	}
	p.BaseURL = strings.TrimRight(p.BaseURL, "/")
}

// SiteKey returns the canonical state key for this profile's site.
func (p *SiteProfile) SiteKey() string {
	return NormaliseSiteKey(p.Site)
}
