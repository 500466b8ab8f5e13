// Package vfs defines the polymorphic filesystem capability the
// reconciler synchronizes across: a uniform set of operations with
// concrete Local and WebDAV providers, plus a ReadOnly decorator that
// turns any provider into a one-way mirror source.
package vfs

import (
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Stat when the path isn't present. It mirrors
// the "stat(path) -> FSEntry?" contract: callers test with errors.Is.
var ErrNotExist = errors.New("vfs: path does not exist")

// Entry is a directory child or stat result. Equality for set-difference
// purposes during directory pairing is defined on Name alone; callers
// that need full-tuple change detection compare the other fields
// explicitly.
type Entry struct {
	ParentPath   string
	Name         string
	IsDir        bool
	LastModified time.Time // UTC, second resolution
	Size         int64
	Locked       bool // set when list() could not stat this child
}

// Capability is the uniform filesystem surface the reconciler drives.
// Every mutator is idempotent against an already-applied state:
// deleting something already gone, or creating a directory that
// already exists, is success.
type Capability interface {
	// List returns dir's direct children, excluding dir itself. A
	// missing directory yields an empty list, not an error.
	List(dir string) ([]Entry, error)

	// Stat returns path's entry, or ErrNotExist if absent.
	Stat(path string) (Entry, error)

	// Read returns the full contents of path.
	Read(path string) ([]byte, error)

	// Write creates or replaces path with data. A no-op that returns
	// nil on a read-only capability.
	Write(path string, data []byte, modTime time.Time) error

	// DeleteFile removes path. Already-gone is success.
	DeleteFile(path string) error

	// MakeDir creates path, and any parent the provider requires.
	// Idempotent against an existing directory.
	MakeDir(path string) error

	// DeleteDir removes path recursively. Idempotent.
	DeleteDir(path string) error

	// Exists reports whether path is present, file or directory.
	Exists(path string) bool

	// IsFile reports whether path exists and is a file.
	IsFile(path string) bool

	// Join combines dir and name into a path native to this
	// capability.
	Join(dir, name string) string

	// IsReadOnly reports whether mutators on this capability are
	// no-ops.
	IsReadOnly() bool

	// Clone returns an independent handle safe to hand to another
	// worker goroutine. Capabilities are not assumed internally
	// thread-safe; callers use clones instead of locking them.
	Clone() Capability

	// String names this capability for logging.
	String() string
}

// Reader is implemented by capabilities that can open a file as a
// stream (used by the reconciler's file copy helper).
type Reader interface {
	OpenRead(path string) (io.ReadCloser, error)
}
