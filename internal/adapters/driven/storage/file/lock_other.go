//go:build !unix

package file

import "os"

// Advisory locking is a no-op on platforms without flock(2). Concurrent
// invocations on such platforms still get atomic visibility through the
// temp-file-plus-rename write path, but not mutual exclusion.
func flock(_ *os.File, _ bool) error { return nil }

func funlock(_ *os.File) error { return nil }
