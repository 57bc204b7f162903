package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformedPayload indicates a change notification payload that
	// matches none of the accepted shapes, or carries no subject URL.
	// Processing of that payload is aborted.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrProfileNotFound indicates no site profile is configured for a host.
	ErrProfileNotFound = errors.New("site profile not found")

	// ErrIndexPersist indicates the content index could not be flushed to
	// durable storage. The invocation must be retried as a whole; the
	// in-memory index is not rolled back.
	ErrIndexPersist = errors.New("index persist failed")

	// Scraper errors.

	// ErrScrapeFailed indicates a transient scrape failure. Retryable.
	ErrScrapeFailed = errors.New("scrape failed")

	// ErrScrapeInvalid indicates the URL is not an entity page. Permanent.
	ErrScrapeInvalid = errors.New("scrape invalid")

	// Knowledge base errors.

	// ErrUploadFailed indicates a remote document upload failed.
	ErrUploadFailed = errors.New("upload failed")

	// ErrDeleteFailed indicates an old remote document could not be removed.
	// The replacement upload is still attempted; the old record is kept.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrAssignmentFailed indicates an agent assignment batch was rejected.
	ErrAssignmentFailed = errors.New("assignment failed")

	// ErrIndexingNotReady indicates RAG indexing is not yet confirmed.
	// Expected transient state, retried with backoff.
	ErrIndexingNotReady = errors.New("indexing not ready")

	// ErrRemoteNotFound indicates the remote document id is unknown to the
	// knowledge base. Tolerated during delete.
	ErrRemoteNotFound = errors.New("remote document not found")

	// ErrHasDependents indicates the remote document is still referenced
	// and cannot be deleted.
	ErrHasDependents = errors.New("remote document has dependents")
)
