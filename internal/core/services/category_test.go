package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

func resolverProfile() *domain.SiteProfile {
	profile := &domain.SiteProfile{
		Site:                 "mydiy.ie",
		CategorySegmentIndex: 0,
		UseBreadcrumbs:       true,
		Keywords: []domain.CategoryKeywords{
			{Category: "power-tools", Keywords: []string{"drill", "sander", "jigsaw"}},
			{Category: "hand-tools", Keywords: []string{"hammer", "chisel"}},
		},
	}
	profile.Normalise()
	return profile
}

func TestCategoryResolver_StructuralStrategy(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/garden-tools/products/lawn-rake",
		"Lawn Rake", domain.EntityBody{}, nil)

	assert.Equal(t, "garden_tools", shard)
}

func TestCategoryResolver_MarkerSegmentIsNotACategory(t *testing.T) {
	r := NewCategoryResolver()

	// Segment 0 is the entity path marker itself; structural yields the
	// default and the waterfall continues.
	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/mystery-item",
		"Mystery Item", domain.EntityBody{}, nil)

	assert.Equal(t, "other", shard)
}

func TestCategoryResolver_BreadcrumbRescue(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/cordless-combi",
		"Cordless Combi", domain.EntityBody{},
		[]string{"Tools", "Power Tools"})

	assert.Equal(t, "power_tools", shard)
}

func TestCategoryResolver_BreadcrumbsDisabledByProfile(t *testing.T) {
	r := NewCategoryResolver()
	profile := resolverProfile()
	profile.UseBreadcrumbs = false

	shard := r.Resolve(profile,
		"https://www.mydiy.ie/products/unbranded-widget",
		"Unbranded Widget", domain.EntityBody{},
		[]string{"Tools", "Power Tools"})

	assert.Equal(t, "other", shard)
}

func TestCategoryResolver_StructuralWinsOverBreadcrumbs(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/garden-tools/products/shears",
		"Garden Shears", domain.EntityBody{},
		[]string{"Tools", "Power Tools"})

	assert.Equal(t, "garden_tools", shard)
}

func TestCategoryResolver_KeywordStrategy(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/x200",
		"X200 Cordless Drill", domain.EntityBody{}, nil)

	assert.Equal(t, "power_tools", shard)
}

func TestCategoryResolver_KeywordOrderBreaksTies(t *testing.T) {
	r := NewCategoryResolver()

	// Matches both tables; the first configured category wins.
	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/combo-kit",
		"Drill and Hammer Combo Kit", domain.EntityBody{}, nil)

	assert.Equal(t, "power_tools", shard)
}

func TestCategoryResolver_KeywordMatchesBodyContent(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/pro-250",
		"PRO-250", domain.EntityBody{Description: "Random orbital sander with dust extraction"}, nil)

	assert.Equal(t, "power_tools", shard)
}

func TestCategoryResolver_DefaultBucket(t *testing.T) {
	r := NewCategoryResolver()

	shard := r.Resolve(resolverProfile(),
		"https://www.mydiy.ie/products/gift-voucher",
		"Gift Voucher", domain.EntityBody{}, nil)

	assert.Equal(t, "other", shard)
}

func TestCategoryResolver_Deterministic(t *testing.T) {
	r := NewCategoryResolver()
	profile := resolverProfile()

	first := r.Resolve(profile,
		"https://www.mydiy.ie/products/x200",
		"X200 Cordless Drill", domain.EntityBody{}, []string{"Tools"})
	for i := 0; i < 50; i++ {
		again := r.Resolve(profile,
			"https://www.mydiy.ie/products/x200",
			"X200 Cordless Drill", domain.EntityBody{}, []string{"Tools"})
		assert.Equal(t, first, again)
	}
}

func TestSanitiseShardKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Power Tools", "power_tools"},
		{"garden-tools", "garden_tools"},
		{"  Drills & Drivers  ", "drills_drivers"},
		{"---", ""},
		{"", ""},
		{"ABC123", "abc123"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitiseShardKey(tt.in), "input %q", tt.in)
	}
}
