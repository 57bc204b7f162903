package driven

import (
	"context"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// Scraper fetches an entity page and extracts its structured content.
// The actual scraping engine is an external collaborator; this port
// specifies only its boundary.
type Scraper interface {
	// Scrape fetches url and returns its title and structured body.
	// Fails with domain.ErrScrapeFailed on transient errors (retryable)
	// and domain.ErrScrapeInvalid when the URL is not an entity page
	// (permanent).
	Scrape(ctx context.Context, url string) (*domain.ScrapeResult, error)
}
