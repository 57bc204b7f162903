package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

// Ensure KnowledgeBase implements the interface.
var _ driven.KnowledgeBase = (*KnowledgeBase)(nil)

// KnowledgeBase is an in-memory fake of the remote document store.
// Like the real service, every upload creates a new document identity.
type KnowledgeBase struct {
	mu          sync.Mutex
	docs        map[string][]byte
	assignments map[string][]string

	// UploadErr fails the next Upload calls while set.
	UploadErr error

	// DeleteErr fails Delete calls while set (except unknown ids, which
	// always yield domain.ErrRemoteNotFound).
	DeleteErr error

	// AssignErr fails AssignBatch calls while set.
	AssignErr error

	// PendingVerifications is the number of VerifyIndexed calls per
	// document that report pending before ready.
	PendingVerifications int

	verifyCalls map[string]int

	// Uploads and Deletes record the call order for assertions.
	Uploads []string
	Deletes []string
}

// NewKnowledgeBase creates a new fake knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		docs:        make(map[string][]byte),
		assignments: make(map[string][]string),
		verifyCalls: make(map[string]int),
	}
}

// Upload stores content and assigns a fresh document id.
func (k *KnowledgeBase) Upload(_ context.Context, name string, content []byte) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.UploadErr != nil {
		return "", k.UploadErr
	}
	docID := uuid.NewString()
	cp := make([]byte, len(content))
	copy(cp, content)
	k.docs[docID] = cp
	k.Uploads = append(k.Uploads, name)
	return docID, nil
}

// Delete removes a document.
func (k *KnowledgeBase) Delete(_ context.Context, documentID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.docs[documentID]; !ok {
		return domain.ErrRemoteNotFound
	}
	if k.DeleteErr != nil {
		return k.DeleteErr
	}
	delete(k.docs, documentID)
	k.Deletes = append(k.Deletes, documentID)
	return nil
}

// AssignBatch attaches documents to an agent.
func (k *KnowledgeBase) AssignBatch(_ context.Context, agentID string, documentIDs []string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.AssignErr != nil {
		return k.AssignErr
	}
	for _, docID := range documentIDs {
		if _, ok := k.docs[docID]; !ok {
			return fmt.Errorf("unknown document %s", docID)
		}
	}
	k.assignments[agentID] = append(k.assignments[agentID], documentIDs...)
	return nil
}

// VerifyIndexed reports pending for the first PendingVerifications calls
// per document, then ready. Unknown documents report failed.
func (k *KnowledgeBase) VerifyIndexed(_ context.Context, documentID string) (driven.IndexStatus, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.docs[documentID]; !ok {
		return driven.StatusFailed, nil
	}
	k.verifyCalls[documentID]++
	if k.verifyCalls[documentID] <= k.PendingVerifications {
		return driven.StatusPending, nil
	}
	return driven.StatusReady, nil
}

// DocumentCount returns the number of stored documents.
func (k *KnowledgeBase) DocumentCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.docs)
}

// Document returns stored content by id, for assertions.
func (k *KnowledgeBase) Document(documentID string) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	content, ok := k.docs[documentID]
	return content, ok
}

// Assigned returns the document ids assigned to an agent.
func (k *KnowledgeBase) Assigned(agentID string) []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]string, len(k.assignments[agentID]))
	copy(out, k.assignments[agentID])
	return out
}
