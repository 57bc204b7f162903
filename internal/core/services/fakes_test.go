package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// fakeProfiles serves a fixed profile set keyed by host.
type fakeProfiles struct {
	profiles map[string]domain.SiteProfile
}

var _ driven.ProfileStore = (*fakeProfiles)(nil)

func newFakeProfiles(profiles ...domain.SiteProfile) *fakeProfiles {
	store := &fakeProfiles{profiles: make(map[string]domain.SiteProfile)}
	for _, profile := range profiles {
		profile.Normalise()
		store.profiles[strings.TrimPrefix(strings.ToLower(profile.Site), "www.")] = profile
	}
	return store
}

func (f *fakeProfiles) Get(host string) (*domain.SiteProfile, error) {
	profile, ok := f.profiles[strings.TrimPrefix(strings.ToLower(host), "www.")]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, host)
	}
	return &profile, nil
}

func (f *fakeProfiles) List() ([]domain.SiteProfile, error) {
	var out []domain.SiteProfile
	for _, profile := range f.profiles {
		out = append(out, profile)
	}
	return out, nil
}

// fakeScraper serves canned results by URL and records call order.
type fakeScraper struct {
	mu      sync.Mutex
	results map[string]*domain.ScrapeResult
	errs    map[string]error

	// transientFailures fails each URL's first N calls with
	// domain.ErrScrapeFailed before succeeding.
	transientFailures int
	attempts          map[string]int

	calls []string
}

var _ driven.Scraper = (*fakeScraper)(nil)

func newFakeScraper() *fakeScraper {
	return &fakeScraper{
		results:  make(map[string]*domain.ScrapeResult),
		errs:     make(map[string]error),
		attempts: make(map[string]int),
	}
}

func (f *fakeScraper) set(url, title string, body domain.EntityBody, breadcrumbs ...string) {
	f.results[url] = &domain.ScrapeResult{Title: title, Body: body, Breadcrumbs: breadcrumbs}
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*domain.ScrapeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	f.attempts[url]++
	if f.attempts[url] <= f.transientFailures {
		return nil, fmt.Errorf("%w: transient", domain.ErrScrapeFailed)
	}
	if result, ok := f.results[url]; ok {
		cp := *result
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: no product markup at %s", domain.ErrScrapeInvalid, url)
}

func (f *fakeScraper) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == url {
			count++
		}
	}
	return count
}

// noSleep replaces backoff waits in tests.
func noSleep(context.Context, time.Duration) error { return nil }
