package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/storage/memory"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
)

func newTestLifecycle(kb driven.KnowledgeBase, state driven.SyncStateStore) *Lifecycle {
	l := NewLifecycle(kb, state)
	l.sleep = noSleep
	return l
}

func artifact(name, content string) domain.ShardArtifact {
	return domain.ShardArtifact{
		Site:      "mydiy.ie",
		ShardKey:  "drills",
		PartIndex: 1,
		Name:      name,
		Content:   []byte(content),
	}
}

func TestLifecycle_UploadsFreshArtifacts(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "content")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.PendingVerification)
	assert.Equal(t, 1, kb.DocumentCount())

	rec, err := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, err)
	assert.Equal(t, ContentHash([]byte("content")), rec.ContentHash)
	assert.NotEmpty(t, rec.RemoteDocumentID)
	assert.False(t, rec.ReplacePending())
}

func TestLifecycle_SecondSyncWithSameContentIsFreeOfRemoteWrites(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)
	artifacts := []domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "content")}

	_, err := l.SyncArtifacts(context.Background(), testProfile(), artifacts, nil)
	require.NoError(t, err)
	uploadsAfterFirst := len(kb.Uploads)

	report, err := l.SyncArtifacts(context.Background(), testProfile(), artifacts,
		[]string{"llms-mydiy_ie-drills.txt"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Uploaded)
	assert.Equal(t, 0, report.Replaced)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, uploadsAfterFirst, len(kb.Uploads))
	assert.Empty(t, kb.Deletes)
}

func TestLifecycle_ReplacesChangedArtifact(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	_, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "v1")}, nil)
	require.NoError(t, err)
	oldRec, err := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, err)

	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "v2")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Replaced)
	assert.Equal(t, []string{oldRec.RemoteDocumentID}, kb.Deletes)

	newRec, err := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, err)
	assert.Equal(t, ContentHash([]byte("v2")), newRec.ContentHash)
	assert.NotEqual(t, oldRec.RemoteDocumentID, newRec.RemoteDocumentID)
	assert.False(t, newRec.ReplacePending())
	assert.Equal(t, 1, kb.DocumentCount())
}

func TestLifecycle_DeleteFailureKeepsOldDocumentID(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	_, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "v1")}, nil)
	require.NoError(t, err)
	oldRec, err := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, err)

	kb.DeleteErr = errors.New("remote timeout")
	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "v2")}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDeleteFailed)
	assert.Equal(t, 1, report.Failed)

	// The new content was still uploaded; the unremoved old document id
	// is preserved so a later run can retry the delete.
	rec, recErr := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, recErr)
	assert.Equal(t, ContentHash([]byte("v2")), rec.ContentHash)
	assert.NotEmpty(t, rec.RemoteDocumentID)
	assert.Equal(t, oldRec.RemoteDocumentID, rec.PreviousDocumentID)
}

func TestLifecycle_UploadFailureLeavesResumableReplace(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)
	name := "llms-mydiy_ie-drills.txt"

	_, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact(name, "v1")}, nil)
	require.NoError(t, err)
	oldRec, err := state.Get(context.Background(), "mydiy.ie", name)
	require.NoError(t, err)

	kb.UploadErr = errors.New("remote unavailable")
	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact(name, "v2")}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	assert.Equal(t, 1, report.Failed)

	rec, recErr := state.Get(context.Background(), "mydiy.ie", name)
	require.NoError(t, recErr)
	assert.True(t, rec.ReplacePending())
	assert.Equal(t, oldRec.RemoteDocumentID, rec.PreviousDocumentID)

	// The hash matches but the record is pending, so the next run resumes
	// the replace instead of skipping.
	kb.UploadErr = nil
	report, err = l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact(name, "v2")}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Replaced)
	rec, recErr = state.Get(context.Background(), "mydiy.ie", name)
	require.NoError(t, recErr)
	assert.False(t, rec.ReplacePending())
	assert.Equal(t, ContentHash([]byte("v2")), rec.ContentHash)
}

func TestLifecycle_PrunesOrphanedDocuments(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	_, err := l.SyncArtifacts(context.Background(), testProfile(), []domain.ShardArtifact{
		artifact("llms-mydiy_ie-drills.txt", "drills"),
		artifact("llms-mydiy_ie-sanders.txt", "sanders"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, kb.DocumentCount())

	// The sanders shard emptied; only the drills artifact survives.
	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "drills")},
		[]string{"llms-mydiy_ie-drills.txt"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, 1, kb.DocumentCount())

	_, err = state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-sanders.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycle_AssignsUploadedDocumentsToAgent(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	profile := testProfile()
	profile.AgentID = "agent-1"

	_, err := l.SyncArtifacts(context.Background(), profile,
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "content")}, nil)

	require.NoError(t, err)
	assert.Len(t, kb.Assigned("agent-1"), 1)
}

// batchRecorder wraps the fake knowledge base to observe assignment
// batch sizes.
type batchRecorder struct {
	*memory.KnowledgeBase
	batchSizes []int
}

func (b *batchRecorder) AssignBatch(ctx context.Context, agentID string, documentIDs []string) error {
	b.batchSizes = append(b.batchSizes, len(documentIDs))
	return b.KnowledgeBase.AssignBatch(ctx, agentID, documentIDs)
}

func TestLifecycle_AssignmentRespectsBatchCeiling(t *testing.T) {
	kb := &batchRecorder{KnowledgeBase: memory.NewKnowledgeBase()}
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	profile := testProfile()
	profile.AgentID = "agent-1"

	var artifacts []domain.ShardArtifact
	for i := 0; i < AssignBatchCeiling+5; i++ {
		name := fmt.Sprintf("llms-mydiy_ie-shard%02d.txt", i)
		artifacts = append(artifacts, artifact(name, name))
	}

	_, err := l.SyncArtifacts(context.Background(), profile, artifacts, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{AssignBatchCeiling, 5}, kb.batchSizes)
}

func TestLifecycle_VerificationRetriesUntilReady(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	kb.PendingVerifications = 3
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "content")}, nil)

	require.NoError(t, err)
	assert.Empty(t, report.PendingVerification)
}

func TestLifecycle_UnconfirmedVerificationReportedNotFatal(t *testing.T) {
	kb := memory.NewKnowledgeBase()
	kb.PendingVerifications = 100
	state := memory.NewSyncStateStore()
	l := newTestLifecycle(kb, state)

	report, err := l.SyncArtifacts(context.Background(), testProfile(),
		[]domain.ShardArtifact{artifact("llms-mydiy_ie-drills.txt", "content")}, nil)

	require.NoError(t, err)
	require.Len(t, report.PendingVerification, 1)

	rec, recErr := state.Get(context.Background(), "mydiy.ie", "llms-mydiy_ie-drills.txt")
	require.NoError(t, recErr)
	assert.Equal(t, rec.RemoteDocumentID, report.PendingVerification[0])
}
