//go:build !linux

package vfs

import (
	"io/fs"
	"time"
)

// changeTime is a no-op outside Linux: other platforms either lack a
// directly comparable ctime (Windows) or this binary doesn't target them
// for the ctime/mtime resilience this implements.
func changeTime(fi fs.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
