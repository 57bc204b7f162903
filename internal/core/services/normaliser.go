package services

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

//go:embed payload_schema.json
var payloadSchemaJSON []byte

const payloadSchemaURL = "payload.schema.json"

// Normaliser converts heterogeneous change notification payloads into a
// canonical ordered sequence of change events. It has no side effects.
type Normaliser struct {
	profiles driven.ProfileStore
	schema   *jsonschema.Schema
}

// NewNormaliser compiles the payload schema and returns a normaliser.
// The profile store is consulted only to tell listing pages from entity
// pages; it is never mutated.
func NewNormaliser(profiles driven.ProfileStore) (*Normaliser, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payloadSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse payload schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(payloadSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add payload schema: %w", err)
	}
	schema, err := compiler.Compile(payloadSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}

	return &Normaliser{profiles: profiles, schema: schema}, nil
}

// multiPagePayload is the modern multi-subject webhook shape.
type multiPagePayload struct {
	ChangedPages []struct {
		URL            string `json:"url"`
		ChangeType     string `json:"changeType"`
		ScrapedContent string `json:"scrapedContent"`
		Diff           struct {
			Text string `json:"text"`
		} `json:"diff"`
	} `json:"changedPages"`
}

// singlePagePayload is the legacy single-subject webhook shape.
type singlePagePayload struct {
	Website struct {
		URL string `json:"url"`
	} `json:"website"`
	Change struct {
		ChangeType string `json:"changeType"`
		Diff       struct {
			Text string `json:"text"`
		} `json:"diff"`
	} `json:"change"`
	ScrapeResult struct {
		Markdown string `json:"markdown"`
	} `json:"scrapeResult"`
}

// Normalise validates a raw payload against the accepted shapes and
// returns the ordered change events it carries. Missing optional fields
// stay absent; no defaults are invented for diff or snapshot content.
// Fails with domain.ErrMalformedPayload when neither shape matches or no
// subject URL can be recovered.
func (n *Normaliser) Normalise(payload []byte) ([]domain.ChangeEvent, error) {
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if err := n.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	var multi multiPagePayload
	if err := json.Unmarshal(payload, &multi); err == nil && len(multi.ChangedPages) > 0 {
		events := make([]domain.ChangeEvent, 0, len(multi.ChangedPages))
		for _, page := range multi.ChangedPages {
			if page.URL == "" {
				return nil, fmt.Errorf("%w: changed page without url", domain.ErrMalformedPayload)
			}
			events = append(events, n.buildEvent(page.URL, page.ChangeType, page.Diff.Text, page.ScrapedContent))
		}
		return events, nil
	}

	var single singlePagePayload
	if err := json.Unmarshal(payload, &single); err == nil && single.Website.URL != "" {
		ev := n.buildEvent(single.Website.URL, single.Change.ChangeType, single.Change.Diff.Text, single.ScrapeResult.Markdown)
		return []domain.ChangeEvent{ev}, nil
	}

	return nil, fmt.Errorf("%w: no subject URL recovered", domain.ErrMalformedPayload)
}

func (n *Normaliser) buildEvent(subjectURL, changeType, diffText, fullContent string) domain.ChangeEvent {
	ev := domain.ChangeEvent{
		SubjectURL:  subjectURL,
		Kind:        mapChangeKind(changeType),
		DiffText:    diffText,
		FullContent: fullContent,
	}
	if ev.Kind != domain.EntityRemoved && n.isListingPage(subjectURL) {
		ev.Kind = domain.ListingChanged
	}
	return ev
}

// isListingPage reports whether the subject URL is a category page rather
// than a single entity page, per the site profile's entity path marker.
// Hosts without a profile are treated as entity pages; the ingestor will
// skip them with a warning.
func (n *Normaliser) isListingPage(subjectURL string) bool {
	u, err := url.Parse(subjectURL)
	if err != nil || u.Host == "" {
		return false
	}
	profile, err := n.profiles.Get(u.Host)
	if err != nil {
		return false
	}
	return !strings.Contains(u.Path, profile.EntityPathMarker)
}

// mapChangeKind maps notifier change type strings onto the canonical
// enum. Unknown types are treated as modifications; the content decides.
func mapChangeKind(changeType string) domain.ChangeKind {
	switch strings.ToLower(strings.TrimSpace(changeType)) {
	case "page_added", "added", "new":
		return domain.EntityAdded
	case "page_removed", "removed", "deleted":
		return domain.EntityRemoved
	case "page_changed", "changed", "content_changed", "modified":
		return domain.EntityModified
	default:
		logger.Warn("Unknown change type %q, treating as modification", changeType)
		return domain.EntityModified
	}
}
