package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

const (
	scrapeAttempts  = 3
	scrapeBaseDelay = time.Second
)

// Ingestor drives one change set through the whole core:
// normalise, extract, categorise, index, materialise, sync.
//
// One invocation is single-threaded and processes its events in order.
// Concurrent invocations are tolerated through the stores' advisory
// locking; last writer wins at artifact granularity, and the content
// index, not the remote mirror, is the source of truth.
type Ingestor struct {
	profiles     driven.ProfileStore
	indexes      driven.IndexStore
	artifacts    driven.ArtifactStore
	scraper      driven.Scraper
	normaliser   *Normaliser
	extractor    *DiffExtractor
	resolver     *CategoryResolver
	materialiser *Materialiser
	lifecycle    *Lifecycle

	sleep func(ctx context.Context, d time.Duration) error
}

// NewIngestor wires the core services together.
func NewIngestor(
	profiles driven.ProfileStore,
	indexes driven.IndexStore,
	artifacts driven.ArtifactStore,
	scraper driven.Scraper,
	normaliser *Normaliser,
	extractor *DiffExtractor,
	resolver *CategoryResolver,
	materialiser *Materialiser,
	lifecycle *Lifecycle,
) *Ingestor {
	return &Ingestor{
		profiles:     profiles,
		indexes:      indexes,
		artifacts:    artifacts,
		scraper:      scraper,
		normaliser:   normaliser,
		extractor:    extractor,
		resolver:     resolver,
		materialiser: materialiser,
		lifecycle:    lifecycle,
		sleep:        sleepContext,
	}
}

// siteWork is the per-site state accumulated while applying events.
type siteWork struct {
	profile *domain.SiteProfile
	index   *ContentIndex
}

// ProcessPayload handles one raw webhook payload to completion.
//
// Local failures (malformed payload, index persistence) abort the
// invocation before any remote side effect. Remote failures are contained
// within the lifecycle manager: they are logged, reflected in the report
// and never roll back the already-updated content index.
func (s *Ingestor) ProcessPayload(ctx context.Context, payload []byte) (*driving.IngestReport, error) {
	events, err := s.normaliser.Normalise(payload)
	if err != nil {
		return nil, err
	}

	report := &driving.IngestReport{
		RunID:  uuid.NewString(),
		Events: len(events),
		Sync:   make(map[string]*driving.SyncReport),
	}
	logger.Info("Run %s: processing %d change event(s)", report.RunID, len(events))

	work := make(map[string]*siteWork)
	var siteOrder []string

	for _, ev := range events {
		host, err := subjectHost(ev.SubjectURL)
		if err != nil {
			logger.Warn("Skipping event with unparseable subject %q: %v", ev.SubjectURL, err)
			report.Skipped = append(report.Skipped, ev.SubjectURL)
			continue
		}

		w, ok := work[host]
		if !ok {
			w, err = s.openSite(ctx, host)
			if errors.Is(err, domain.ErrProfileNotFound) {
				logger.Warn("No site profile for %s, skipping %s", host, ev.SubjectURL)
				report.Skipped = append(report.Skipped, ev.SubjectURL)
				continue
			}
			if err != nil {
				return nil, err
			}
			work[host] = w
			siteOrder = append(siteOrder, host)
		}

		if err := s.applyEvent(ctx, w, ev, report); err != nil {
			return nil, err
		}
	}

	for _, host := range siteOrder {
		w := work[host]
		changed := w.index.ChangedShards()
		if len(changed) == 0 {
			continue
		}
		syncReport, err := s.materialiseAndSync(ctx, w, changed)
		if err != nil {
			return nil, err
		}
		report.Sync[w.profile.Site] = syncReport
	}

	logger.Info("Run %s complete: %d upserted, %d removed, %d skipped",
		report.RunID, report.Upserted, report.Removed, len(report.Skipped))
	return report, nil
}

// applyEvent routes one change event. Only index-persistence failures
// propagate; per-entity scrape problems are logged and counted.
func (s *Ingestor) applyEvent(ctx context.Context, w *siteWork, ev domain.ChangeEvent, report *driving.IngestReport) error {
	if ev.Kind != domain.EntityRemoved && !ev.HasContent() {
		// Notifier quality signal. The event is still processed; entity
		// pages are re-scraped regardless and contentless listings fall
		// through to degraded mode.
		logger.Warn("%s event for %s carries no diff or snapshot", ev.Kind, ev.SubjectURL)
	}

	switch ev.Kind {
	case domain.EntityRemoved:
		if err := w.index.Remove(ctx, canonicalEntityURL(ev.SubjectURL)); err != nil {
			return err
		}
		report.Removed++
		return nil

	case domain.ListingChanged:
		targets := s.extractor.Extract(w.profile, ev)
		if len(targets) == 0 {
			// Degraded mode: the whole listing subject becomes the unit
			// of work. Quality warning, not an error.
			logger.Warn("No new entity found in diff for %s, degrading to full-subject processing", ev.SubjectURL)
			report.Degraded = append(report.Degraded, ev.SubjectURL)
			targets = []string{ev.SubjectURL}
		}
		for _, target := range targets {
			if err := s.upsertFromScrape(ctx, w, target, report); err != nil {
				return err
			}
		}
		return nil

	default: // EntityAdded, EntityModified
		return s.upsertFromScrape(ctx, w, ev.SubjectURL, report)
	}
}

// upsertFromScrape scrapes one entity page, resolves its shard and
// upserts it. Transient scrape failures are retried with backoff; a URL
// the scraper rejects as a non-entity page is skipped with a warning.
func (s *Ingestor) upsertFromScrape(ctx context.Context, w *siteWork, entityURL string, report *driving.IngestReport) error {
	result, err := s.scrapeWithRetry(ctx, entityURL)
	if err != nil {
		if errors.Is(err, domain.ErrScrapeInvalid) {
			logger.Warn("Not an entity page, skipping: %s", entityURL)
			report.Skipped = append(report.Skipped, entityURL)
			return nil
		}
		logger.Warn("Scrape of %s failed after %d attempts: %v", entityURL, scrapeAttempts, err)
		report.Skipped = append(report.Skipped, entityURL)
		return nil
	}

	id := canonicalEntityURL(entityURL)
	shard := s.resolver.Resolve(w.profile, id, result.Title, result.Body, result.Breadcrumbs)
	entity := domain.Entity{
		ID:       id,
		Title:    result.Title,
		Body:     result.Body,
		ShardKey: shard,
	}
	if err := w.index.Upsert(ctx, entity); err != nil {
		return err
	}
	report.Upserted++
	logger.Debug("Upserted %s into shard %s", id, shard)
	return nil
}

func (s *Ingestor) scrapeWithRetry(ctx context.Context, entityURL string) (*domain.ScrapeResult, error) {
	delay := scrapeBaseDelay
	var lastErr error
	for attempt := 1; attempt <= scrapeAttempts; attempt++ {
		result, err := s.scraper.Scrape(ctx, entityURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrScrapeInvalid) {
			return nil, err
		}
		if attempt == scrapeAttempts {
			break
		}
		logger.Debug("Scrape attempt %d/%d for %s failed: %v", attempt, scrapeAttempts, entityURL, err)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
	return nil, lastErr
}

// Remove strikes one entity from a site's index and syncs the affected
// shard. Removing an unknown entity is idempotent.
func (s *Ingestor) Remove(ctx context.Context, site, entityURL string) error {
	w, err := s.openSite(ctx, site)
	if err != nil {
		return err
	}
	if err := w.index.Remove(ctx, canonicalEntityURL(entityURL)); err != nil {
		return err
	}

	changed := w.index.ChangedShards()
	if len(changed) == 0 {
		return nil
	}
	_, err = s.materialiseAndSync(ctx, w, changed)
	return err
}

// Sync rematerialises every shard of a site and syncs all artifacts.
// With no underlying content change this produces zero uploads and zero
// deletes: every artifact hashes the same and is skipped.
func (s *Ingestor) Sync(ctx context.Context, site string) (*driving.SyncReport, error) {
	w, err := s.openSite(ctx, site)
	if err != nil {
		return nil, err
	}
	return s.materialiseAndSync(ctx, w, w.index.Shards())
}

// Rebuild re-scrapes every indexed entity of a site, re-resolves its
// category, then materialises and syncs all artifacts.
func (s *Ingestor) Rebuild(ctx context.Context, site string) (*driving.SyncReport, error) {
	w, err := s.openSite(ctx, site)
	if err != nil {
		return nil, err
	}

	report := &driving.IngestReport{Sync: make(map[string]*driving.SyncReport)}
	for _, shard := range w.index.Shards() {
		for _, id := range w.index.ShardMembers(shard) {
			if err := s.upsertFromScrape(ctx, w, id, report); err != nil {
				return nil, err
			}
		}
	}

	// Re-resolution can empty a shard entirely. Shards() no longer lists
	// it, but its artifact and sync record are still live, so the emptied
	// shards have to be materialised too for their withdrawal to happen.
	shards := w.index.Shards()
	seen := make(map[string]bool, len(shards))
	for _, shard := range shards {
		seen[shard] = true
	}
	for _, shard := range w.index.ChangedShards() {
		if !seen[shard] {
			shards = append(shards, shard)
		}
	}

	return s.materialiseAndSync(ctx, w, shards)
}

// materialiseAndSync regenerates artifacts for the given shards and runs
// the remote lifecycle. Remote errors are logged, reflected in the report
// and contained here; local materialisation errors propagate.
func (s *Ingestor) materialiseAndSync(ctx context.Context, w *siteWork, shards []string) (*driving.SyncReport, error) {
	artifacts, err := s.materialiser.Materialise(ctx, w.profile, w.index, shards)
	if err != nil {
		return nil, err
	}

	live, err := s.artifacts.List(ctx, w.profile.Site)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", w.profile.Site, err)
	}
	if live == nil {
		live = []string{}
	}

	report, err := s.lifecycle.SyncArtifacts(ctx, w.profile, artifacts, live)
	if err != nil {
		logger.Warn("Remote sync for %s left recoverable state: %v", w.profile.Site, err)
	}
	return report, nil
}

func (s *Ingestor) openSite(ctx context.Context, host string) (*siteWork, error) {
	profile, err := s.profiles.Get(host)
	if err != nil {
		return nil, err
	}
	index, err := OpenContentIndex(ctx, s.indexes, profile.Site)
	if err != nil {
		return nil, err
	}
	return &siteWork{profile: profile, index: index}, nil
}

func subjectHost(subjectURL string) (string, error) {
	u, err := url.Parse(subjectURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", subjectURL)
	}
	return u.Host, nil
}

// canonicalEntityURL strips volatile query and fragment parts so one
// product maps to exactly one entity id.
func canonicalEntityURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
