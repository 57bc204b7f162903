package services

import (
	"net/url"
	"strings"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// CategoryResolver derives the stable shard key for an entity through a
// deterministic multi-strategy waterfall: structural path position, then
// breadcrumb trail, then keyword classification, then the default bucket.
// For a fixed input and a fixed site profile the same shard key always
// results; there is no randomness and no dependence on processing order.
type CategoryResolver struct{}

// NewCategoryResolver creates a category resolver.
func NewCategoryResolver() *CategoryResolver {
	return &CategoryResolver{}
}

// Resolve maps an entity to its shard key under the given profile.
// Breadcrumbs may be empty; they are consulted only when the profile
// enables them and the structural strategy yielded the default bucket.
func (r *CategoryResolver) Resolve(
	profile *domain.SiteProfile,
	entityURL string,
	title string,
	body domain.EntityBody,
	breadcrumbs []string,
) string {
	// 1. Structural: the configured path segment of the entity's own URL.
	shard := r.structural(profile, entityURL)

	// 2. Breadcrumb: most specific segment, only as a rescue for the
	// default bucket.
	if shard == profile.DefaultShard && profile.UseBreadcrumbs && len(breadcrumbs) > 0 {
		if crumb := SanitiseShardKey(breadcrumbs[len(breadcrumbs)-1]); crumb != "" {
			shard = crumb
		}
	}

	// 3. Keyword classification: first matching category wins.
	if shard == profile.DefaultShard {
		if keyword := r.keyword(profile, title, body); keyword != "" {
			shard = keyword
		}
	}

	return shard
}

// structural takes the profile's path segment from the entity URL.
// Segments that are empty or coincide with the entity path marker are not
// recognisable categories and fall back to the default bucket.
func (r *CategoryResolver) structural(profile *domain.SiteProfile, entityURL string) string {
	u, err := url.Parse(entityURL)
	if err != nil {
		return profile.DefaultShard
	}

	segments := splitPath(u.Path)
	idx := profile.CategorySegmentIndex
	if idx < 0 || idx >= len(segments) {
		return profile.DefaultShard
	}

	segment := SanitiseShardKey(segments[idx])
	marker := SanitiseShardKey(profile.EntityPathMarker)
	if segment == "" || segment == marker {
		return profile.DefaultShard
	}
	return segment
}

// keyword matches title and body tokens against the profile's ordered
// category table.
func (r *CategoryResolver) keyword(profile *domain.SiteProfile, title string, body domain.EntityBody) string {
	haystack := strings.ToLower(title + " " + body.Description)
	for _, spec := range body.Specs {
		haystack += " " + strings.ToLower(spec.Name+" "+spec.Value)
	}

	for _, entry := range profile.Keywords {
		for _, keyword := range entry.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				return SanitiseShardKey(entry.Category)
			}
		}
	}
	return ""
}

// SanitiseShardKey lower-cases a raw category value and collapses every
// run of non-alphanumeric characters into a single underscore.
func SanitiseShardKey(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	pendingSep := false
	for _, r := range raw {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case isAlnum:
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
