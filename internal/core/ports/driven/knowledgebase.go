package driven

import "context"

// IndexStatus is the RAG indexing state of a remote document.
type IndexStatus int

const (
	// StatusPending indicates indexing has not completed yet.
	StatusPending IndexStatus = iota

	// StatusReady indicates the document is retrievable.
	StatusReady

	// StatusFailed indicates indexing failed permanently.
	StatusFailed
)

// String returns a human-readable name for the status.
func (s IndexStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// KnowledgeBase is the remote document store used for retrieval-augmented
// generation. Uploads always create new document identities; the service
// offers no locking or transactional API, so the lifecycle manager's own
// hash comparison and delete-before-upload sequencing is the only
// consistency mechanism.
type KnowledgeBase interface {
	// Upload stores content under name and returns the assigned document id.
	Upload(ctx context.Context, name string, content []byte) (string, error)

	// Delete removes a remote document. Returns domain.ErrRemoteNotFound
	// if the id is unknown and domain.ErrHasDependents if the document is
	// still referenced.
	Delete(ctx context.Context, documentID string) error

	// AssignBatch attaches documents to an agent. The caller must respect
	// the externally imposed batch size ceiling.
	AssignBatch(ctx context.Context, agentID string, documentIDs []string) error

	// VerifyIndexed reports the RAG indexing state of a document.
	VerifyIndexed(ctx context.Context, documentID string) (IndexStatus, error)
}
