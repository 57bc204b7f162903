package domain

import (
	"strings"
	"time"
)

// SyncRecord links one shard artifact to its remote document.
// It is the basis for deciding whether a remote upload is needed.
type SyncRecord struct {
	// ContentHash is the digest of the artifact's serialised bytes.
	ContentHash string `json:"hash"`

	// RemoteDocumentID is the identity assigned by the knowledge base on
	// the last successful upload. Empty while a replace is in flight.
	RemoteDocumentID string `json:"document_id"`

	// PreviousDocumentID is set only during an in-flight replace and is
	// the only continuity if the new upload fails after the old document
	// was deleted. Cleared on success, kept on failure.
	PreviousDocumentID string `json:"previous_document_id,omitempty"`

	// UploadedAt is when the last successful upload completed.
	UploadedAt time.Time `json:"uploaded_at"`
}

// ReplacePending reports whether the record represents an in-flight
// replace. Such a record must be resolved before it is considered stable.
func (r SyncRecord) ReplacePending() bool {
	return r.PreviousDocumentID != ""
}

// SyncState is the whole persisted sync state: site key to artifact name
// to sync record. The file adapter guards every read-modify-write of this
// structure with an advisory lock.
type SyncState map[string]map[string]SyncRecord

// NormaliseSiteKey canonicalises site spellings (dotted vs separator
// form) to the single underscore representation used in state keys and
// artifact names.
func NormaliseSiteKey(site string) string {
	site = strings.ToLower(strings.TrimSpace(site))
	site = strings.TrimPrefix(site, "www.")
	var b strings.Builder
	for _, r := range site {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(collapseUnderscores(b.String()), "_")
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// Record returns the record for (site, artifact), if any.
// The site key is normalised before lookup.
func (s SyncState) Record(site, artifact string) (SyncRecord, bool) {
	site = NormaliseSiteKey(site)
	arts, ok := s[site]
	if !ok {
		return SyncRecord{}, false
	}
	rec, ok := arts[artifact]
	return rec, ok
}

// Put stores a record under the normalised site key.
func (s SyncState) Put(site, artifact string, rec SyncRecord) {
	site = NormaliseSiteKey(site)
	if s[site] == nil {
		s[site] = make(map[string]SyncRecord)
	}
	s[site][artifact] = rec
}

// Remove deletes a record. Removing an absent record is a no-op.
func (s SyncState) Remove(site, artifact string) {
	site = NormaliseSiteKey(site)
	delete(s[site], artifact)
	if len(s[site]) == 0 {
		delete(s, site)
	}
}

// Site returns all records for a site, keyed by artifact name.
// The returned map is a copy; mutating it does not affect the state.
func (s SyncState) Site(site string) map[string]SyncRecord {
	out := make(map[string]SyncRecord)
	for name, rec := range s[NormaliseSiteKey(site)] {
		out[name] = rec
	}
	return out
}

// Reconcile merges entries stored under legacy site spellings into the
// canonical key. When both spellings carry the same artifact, the entry
// already under the canonical key wins. Returns the number of merged keys.
func (s SyncState) Reconcile() int {
	merged := 0
	for key, arts := range s {
		canonical := NormaliseSiteKey(key)
		if canonical == key || canonical == "" {
			continue
		}
		if s[canonical] == nil {
			s[canonical] = make(map[string]SyncRecord)
		}
		for name, rec := range arts {
			if _, exists := s[canonical][name]; !exists {
				s[canonical][name] = rec
			}
		}
		delete(s, key)
		merged++
	}
	return merged
}
