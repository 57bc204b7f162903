package cli

import (
	"context"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
)

// fakeIngestor records invocations and returns canned reports.
type fakeIngestor struct {
	payloads     [][]byte
	removed      [][2]string
	syncedSites  []string
	rebuiltSites []string
	ingestReport *driving.IngestReport
	syncReport   *driving.SyncReport
	processErr   error
	removeErr    error
	syncErr      error
	rebuildErr   error
}

var _ driving.Ingestor = (*fakeIngestor)(nil)

func (f *fakeIngestor) ProcessPayload(_ context.Context, payload []byte) (*driving.IngestReport, error) {
	f.payloads = append(f.payloads, payload)
	if f.processErr != nil {
		return nil, f.processErr
	}
	if f.ingestReport != nil {
		return f.ingestReport, nil
	}
	return &driving.IngestReport{RunID: "run-1"}, nil
}

func (f *fakeIngestor) Remove(_ context.Context, site, entityURL string) error {
	f.removed = append(f.removed, [2]string{site, entityURL})
	return f.removeErr
}

func (f *fakeIngestor) Sync(_ context.Context, site string) (*driving.SyncReport, error) {
	f.syncedSites = append(f.syncedSites, site)
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	if f.syncReport != nil {
		return f.syncReport, nil
	}
	return &driving.SyncReport{}, nil
}

func (f *fakeIngestor) Rebuild(_ context.Context, site string) (*driving.SyncReport, error) {
	f.rebuiltSites = append(f.rebuiltSites, site)
	if f.rebuildErr != nil {
		return nil, f.rebuildErr
	}
	if f.syncReport != nil {
		return f.syncReport, nil
	}
	return &driving.SyncReport{}, nil
}

// withFakeIngestor swaps the package-level service for the test's fake
// and restores it afterwards.
func withFakeIngestor(f *fakeIngestor, fn func()) {
	original := ingestor
	ingestor = f
	defer func() { ingestor = original }()
	fn()
}
