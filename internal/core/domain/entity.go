package domain

import "time"

// Entity represents a single tracked catalog product.
// It is the canonical representation after scraping.
type Entity struct {
	// ID is the canonical URL. Globally unique, immutable once assigned.
	ID string

	// Title is the human-readable product title.
	Title string

	// Body is the structured semantic content.
	Body EntityBody

	// ShardKey is the category bucket this entity belongs to.
	// Mutable only by re-resolution.
	ShardKey string

	// UpdatedAt is when the entity was last mutated.
	UpdatedAt time.Time
}

// EntityBody holds the structured content of an entity.
// An entity either has a complete body or is absent from the index;
// it is never partially written.
type EntityBody struct {
	// Price is the display price, as scraped.
	Price string

	// Availability is the stock state, as scraped.
	Availability string

	// Description is the product description text.
	Description string

	// Specs is the ordered specification list.
	Specs []SpecAttr
}

// SpecAttr is one name/value pair in a specification list.
type SpecAttr struct {
	Name  string
	Value string
}

// ScrapeResult is the scraper collaborator's output for one entity page.
type ScrapeResult struct {
	// Title is the extracted page title.
	Title string

	// Body is the structured content extracted from the page.
	Body EntityBody

	// Breadcrumbs is the breadcrumb trail, most general first.
	// Empty when the page exposes none.
	Breadcrumbs []string
}

// IndexSnapshot is the full persisted state of one site's content index:
// the entity records plus the shard membership manifest.
type IndexSnapshot struct {
	// Entities maps entity id to its record.
	Entities map[string]Entity

	// Shards maps shard key to the ordered member entity ids
	// (insertion order, for artifact stability).
	Shards map[string][]string
}

// NewIndexSnapshot returns an empty snapshot.
func NewIndexSnapshot() *IndexSnapshot {
	return &IndexSnapshot{
		Entities: make(map[string]Entity),
		Shards:   make(map[string][]string),
	}
}
