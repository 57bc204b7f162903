//go:build unix

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock acquires an advisory lock on f via flock(2), blocking until the
// lock is granted. Shared locks admit concurrent readers; exclusive
// locks serialise writers across processes.
func flock(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	return unix.Flock(int(f.Fd()), how)
}

// funlock releases an advisory lock. Safe to call on an unlocked file.
func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
