// Package file provides the file-backed storage adapters: one content
// index and manifest per site, shard artifacts, and a process-wide sync
// state file. All shared files are protected by advisory locking plus
// atomic rename-on-write, which is what lets concurrent invocations
// overlap safely.
package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileLock is an acquired advisory lock on a sidecar lock file.
type fileLock struct {
	f *os.File
}

// acquireLock opens (creating if needed) the lock file at path and takes
// a shared or exclusive flock on it. Blocks until granted.
func acquireLock(path string, exclusive bool) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flock(f, exclusive); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &fileLock{f: f}, nil
}

// release unlocks and closes the lock file.
func (l *fileLock) release() {
	_ = funlock(l.f)
	_ = l.f.Close()
}

// writeAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so a concurrent reader never observes
// a partial or truncated file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
