package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// cdnPathMarker identifies content-delivery-network asset paths that sit
// next to the real entity link in listing diffs.
const cdnPathMarker = "/cdn/"

// mediaSuffixes are binary media extensions that disqualify a candidate.
var mediaSuffixes = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".avif", ".ico", ".bmp",
}

var (
	absoluteLinkPattern = regexp.MustCompile(`https?://[^\s)\]'"<>]+`)
	relativeLinkPattern = regexp.MustCompile(`(?:^|[\s("'=\[])(/[A-Za-z0-9][^\s)\]'"<>]*)`)
)

// DiffExtractor isolates the genuinely new entity links from the diff of
// a listing page. Only added lines are considered; this eliminates the
// dominant failure mode of picking an existing entity that merely appears
// earlier in the unfiltered text.
type DiffExtractor struct{}

// NewDiffExtractor creates a diff extractor.
func NewDiffExtractor() *DiffExtractor {
	return &DiffExtractor{}
}

// Extract returns the ordered sequence of new entity URLs found in the
// event's diff, resolved to absolute URLs against the event's subject.
// An empty result means no usable candidate survived; the caller must
// degrade to treating the whole subject as the unit of work.
func (e *DiffExtractor) Extract(profile *domain.SiteProfile, ev domain.ChangeEvent) []string {
	if strings.TrimSpace(ev.DiffText) == "" {
		return nil
	}

	added := addedLines(ev.DiffText)
	if len(added) == 0 {
		return nil
	}

	base, err := url.Parse(ev.SubjectURL)
	if err != nil {
		logger.Warn("Unparseable subject URL %q: %v", ev.SubjectURL, err)
		base = nil
	}

	var candidates []string
	seen := make(map[string]struct{})
	for _, line := range added {
		for _, raw := range scanLinks(line) {
			resolved, ok := e.resolve(profile, base, raw)
			if !ok {
				continue
			}
			if _, dup := seen[resolved]; dup {
				continue
			}
			seen[resolved] = struct{}{}
			candidates = append(candidates, resolved)
		}
	}
	return candidates
}

// addedLines returns the pure addition lines of a diff, without their
// prefix. It first tries strict unified-diff parsing; diffs that are only
// line-prefixed text (no file headers) fall back to a plain prefix scan.
func addedLines(diffText string) []string {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err == nil && len(fileDiffs) > 0 {
		var lines []string
		for _, fd := range fileDiffs {
			for _, hunk := range fd.Hunks {
				for _, line := range strings.Split(string(hunk.Body), "\n") {
					if strings.HasPrefix(line, "+") {
						lines = append(lines, line[1:])
					}
				}
			}
		}
		return dropBlank(lines)
	}

	// Prefix scan: keep "+" lines, drop the diff's own "+++" file marker.
	var lines []string
	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			lines = append(lines, line[1:])
		}
	}
	return dropBlank(lines)
}

func dropBlank(lines []string) []string {
	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// scanLinks finds absolute and relative link tokens in one line.
func scanLinks(line string) []string {
	links := absoluteLinkPattern.FindAllString(line, -1)
	for _, m := range relativeLinkPattern.FindAllStringSubmatch(line, -1) {
		links = append(links, m[1])
	}
	for i, link := range links {
		links[i] = strings.TrimRight(link, ".,;:!?")
	}
	return links
}

// resolve filters noise and resolves a candidate against the base URL.
func (e *DiffExtractor) resolve(profile *domain.SiteProfile, base *url.URL, raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Host == "" || !strings.Contains(u.Path, profile.EntityPathMarker) {
		return "", false
	}
	if isMediaPath(u.Path) || strings.Contains(u.Path, cdnPathMarker) {
		return "", false
	}
	u.Fragment = ""
	u.RawQuery = ""
	return u.String(), true
}

func isMediaPath(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range mediaSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
