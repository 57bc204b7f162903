package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driven"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

const (
	// AssignBatchCeiling is the externally imposed maximum number of
	// documents per agent assignment call.
	AssignBatchCeiling = 20

	// verifyAttempts bounds the RAG indexing verification schedule.
	verifyAttempts = 5

	// verifyBaseWait is the first verification wait; it doubles per
	// attempt up to verifyMaxWait.
	verifyBaseWait = 2 * time.Second
	verifyMaxWait  = 30 * time.Second
)

// Lifecycle orchestrates remote upload, delete, assignment and
// verification against the knowledge base, using the sync state store to
// decide what work is needed and to survive partial failure.
//
// The remote store offers no transactions: the hash comparison and the
// delete-before-upload sequencing here are the only consistency
// mechanism. An in-flight replace is persisted before the first remote
// call so a crashed or failed invocation can be resumed.
type Lifecycle struct {
	kb    driven.KnowledgeBase
	state driven.SyncStateStore

	// sleep is injectable for tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewLifecycle creates a document lifecycle manager.
func NewLifecycle(kb driven.KnowledgeBase, state driven.SyncStateStore) *Lifecycle {
	return &Lifecycle{
		kb:    kb,
		state: state,
		sleep: sleepContext,
		now:   time.Now,
	}
}

// SyncArtifacts brings the remote store in line with the given artifacts
// for one site: uploads new artifacts, replaces changed ones, prunes
// orphaned remote documents, assigns documents to the profile's agent in
// bounded batches and verifies RAG indexing with progressive backoff.
//
// Remote failures never roll back the content index; affected records
// are left in an explicitly flagged intermediate state and retried on
// the next invocation. A non-nil report is returned even on error.
func (l *Lifecycle) SyncArtifacts(
	ctx context.Context,
	profile *domain.SiteProfile,
	artifacts []domain.ShardArtifact,
	pruneTo []string,
) (*driving.SyncReport, error) {
	report := &driving.SyncReport{}
	var errs []error
	var freshIDs []string

	for _, artifact := range artifacts {
		docID, outcome, err := l.syncOne(ctx, profile.Site, artifact)
		switch outcome {
		case outcomeSkipped:
			report.Skipped++
		case outcomeUploaded:
			report.Uploaded++
			freshIDs = append(freshIDs, docID)
		case outcomeReplaced:
			report.Replaced++
			freshIDs = append(freshIDs, docID)
		case outcomeFailed:
			report.Failed++
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if pruneTo != nil {
		deleted, err := l.pruneOrphans(ctx, profile.Site, pruneTo)
		report.Deleted = deleted
		if err != nil {
			errs = append(errs, err)
		}
	}

	if profile.AgentID != "" && len(freshIDs) > 0 {
		if err := l.assign(ctx, profile.AgentID, freshIDs); err != nil {
			errs = append(errs, err)
		}
	}

	pending := l.verify(ctx, freshIDs)
	report.PendingVerification = pending

	return report, errors.Join(errs...)
}

type syncOutcome int

const (
	outcomeSkipped syncOutcome = iota
	outcomeUploaded
	outcomeReplaced
	outcomeFailed
)

// syncOne runs the per-artifact state machine.
func (l *Lifecycle) syncOne(ctx context.Context, site string, artifact domain.ShardArtifact) (string, syncOutcome, error) {
	hash := ContentHash(artifact.Content)

	rec, err := l.state.Get(ctx, site, artifact.Name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", outcomeFailed, fmt.Errorf("get sync record %s: %w", artifact.Name, err)
	}

	// Stable record with matching hash: nothing to do.
	if rec != nil && !rec.ReplacePending() && rec.ContentHash == hash {
		logger.Debug("Artifact %s unchanged, skipping", artifact.Name)
		return rec.RemoteDocumentID, outcomeSkipped, nil
	}

	fresh := rec == nil || (rec.RemoteDocumentID == "" && !rec.ReplacePending())
	if fresh {
		docID, err := l.upload(ctx, site, artifact, hash)
		if err != nil {
			return "", outcomeFailed, err
		}
		return docID, outcomeUploaded, nil
	}

	docID, err := l.replace(ctx, site, artifact, hash, *rec)
	if err != nil {
		return "", outcomeFailed, err
	}
	return docID, outcomeReplaced, nil
}

// upload handles the no-record case: upload then record.
func (l *Lifecycle) upload(ctx context.Context, site string, artifact domain.ShardArtifact, hash string) (string, error) {
	docID, err := l.kb.Upload(ctx, artifact.Name, artifact.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUploadFailed, artifact.Name, err)
	}

	err = l.state.Update(ctx, func(state domain.SyncState) error {
		state.Put(site, artifact.Name, domain.SyncRecord{
			ContentHash:      hash,
			RemoteDocumentID: docID,
			UploadedAt:       l.now(),
		})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record upload of %s: %w", artifact.Name, err)
	}

	logger.Info("Uploaded %s as document %s", artifact.Name, docID)
	return docID, nil
}

// replace handles the hash-changed and resume-pending cases.
//
// The pending marker is persisted before the old document is touched:
// if the upload then fails after the delete succeeded, the record keeps
// the previous document id as the only continuity, and the artifact is
// transiently absent from the remote store. Accepted, logged risk.
func (l *Lifecycle) replace(ctx context.Context, site string, artifact domain.ShardArtifact, hash string, rec domain.SyncRecord) (string, error) {
	oldID := rec.RemoteDocumentID
	if oldID == "" {
		// Resuming a previously failed replace.
		oldID = rec.PreviousDocumentID
	}

	err := l.state.Update(ctx, func(state domain.SyncState) error {
		state.Put(site, artifact.Name, domain.SyncRecord{
			ContentHash:        hash,
			PreviousDocumentID: oldID,
		})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("mark replace of %s: %w", artifact.Name, err)
	}

	deleteFailed := false
	if err := l.kb.Delete(ctx, oldID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRemoteNotFound):
			// Already gone; continue.
		default:
			// The old record is kept so the document is not orphaned;
			// the replacement upload is still attempted.
			deleteFailed = true
			logger.Warn("Delete of old document %s for %s failed: %v", oldID, artifact.Name, err)
		}
	}

	docID, uploadErr := l.kb.Upload(ctx, artifact.Name, artifact.Content)
	if uploadErr != nil {
		// Record stays replace-pending; the next run retries the upload.
		logger.Warn("Replace of %s failed after deleting %s: artifact transiently absent remotely", artifact.Name, oldID)
		return "", fmt.Errorf("%w: replace %s: %v", domain.ErrUploadFailed, artifact.Name, uploadErr)
	}

	finalRec := domain.SyncRecord{
		ContentHash:      hash,
		RemoteDocumentID: docID,
		UploadedAt:       l.now(),
	}
	if deleteFailed {
		finalRec.PreviousDocumentID = oldID
	}
	err = l.state.Update(ctx, func(state domain.SyncState) error {
		state.Put(site, artifact.Name, finalRec)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record replace of %s: %w", artifact.Name, err)
	}

	if deleteFailed {
		return docID, fmt.Errorf("%w: old document %s for %s", domain.ErrDeleteFailed, oldID, artifact.Name)
	}
	logger.Info("Replaced %s: document %s -> %s", artifact.Name, oldID, docID)
	return docID, nil
}

// pruneOrphans deletes remote documents whose artifact no longer exists
// and drops their records. keep is the full set of live artifact names.
func (l *Lifecycle) pruneOrphans(ctx context.Context, site string, keep []string) (int, error) {
	live := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		live[name] = struct{}{}
	}

	records, err := l.state.Records(ctx, site)
	if err != nil {
		return 0, fmt.Errorf("list sync records for %s: %w", site, err)
	}

	deleted := 0
	var errs []error
	for name, rec := range records {
		if _, ok := live[name]; ok {
			continue
		}
		docID := rec.RemoteDocumentID
		if docID == "" {
			docID = rec.PreviousDocumentID
		}
		if docID != "" {
			if err := l.kb.Delete(ctx, docID); err != nil && !errors.Is(err, domain.ErrRemoteNotFound) {
				// Keep the record; retried next run.
				errs = append(errs, fmt.Errorf("%w: orphan %s: %v", domain.ErrDeleteFailed, name, err))
				continue
			}
		}
		err := l.state.Update(ctx, func(state domain.SyncState) error {
			state.Remove(site, name)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("drop record %s: %w", name, err))
			continue
		}
		deleted++
		logger.Info("Pruned orphaned artifact %s (document %s)", name, docID)
	}
	return deleted, errors.Join(errs...)
}

// assign attaches documents to the agent in bounded batches.
func (l *Lifecycle) assign(ctx context.Context, agentID string, docIDs []string) error {
	for start := 0; start < len(docIDs); start += AssignBatchCeiling {
		end := start + AssignBatchCeiling
		if end > len(docIDs) {
			end = len(docIDs)
		}
		if err := l.kb.AssignBatch(ctx, agentID, docIDs[start:end]); err != nil {
			return fmt.Errorf("%w: batch %d-%d: %v", domain.ErrAssignmentFailed, start, end, err)
		}
		logger.Debug("Assigned %d document(s) to agent %s", end-start, agentID)
	}
	return nil
}

// verify confirms RAG indexing for each document with progressive
// backoff: bounded attempts, doubling waits, capped per-wait maximum.
// Documents still unconfirmed after the final attempt are returned, not
// treated as fatal; they remain queued for the next invocation.
func (l *Lifecycle) verify(ctx context.Context, docIDs []string) []string {
	var pending []string

	for _, docID := range docIDs {
		confirmed := false
		wait := verifyBaseWait

		for attempt := 1; attempt <= verifyAttempts; attempt++ {
			status, err := l.kb.VerifyIndexed(ctx, docID)
			if err != nil {
				logger.Warn("Verify of %s failed (attempt %d/%d): %v", docID, attempt, verifyAttempts, err)
			} else if status == driven.StatusReady {
				confirmed = true
				break
			} else if status == driven.StatusFailed {
				logger.Warn("Indexing of document %s reported failed", docID)
				break
			}

			if attempt == verifyAttempts {
				break
			}
			logger.Debug("Document %s: %v, waiting %s before re-check", docID, domain.ErrIndexingNotReady, wait)
			if err := l.sleep(ctx, wait); err != nil {
				pending = append(pending, docID)
				return pending
			}
			wait *= 2
			if wait > verifyMaxWait {
				wait = verifyMaxWait
			}
		}

		if !confirmed {
			pending = append(pending, docID)
		}
	}
	return pending
}

// ContentHash digests artifact bytes for change detection.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
