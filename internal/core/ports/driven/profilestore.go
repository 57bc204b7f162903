package driven

import (
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// ProfileStore supplies site profiles from configuration.
type ProfileStore interface {
	// Get returns the profile for a host. Returns
	// domain.ErrProfileNotFound when no profile matches.
	Get(host string) (*domain.SiteProfile, error)

	// List returns all configured profiles.
	List() ([]domain.SiteProfile, error)
}
