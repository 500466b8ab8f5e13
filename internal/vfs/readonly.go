package vfs

import (
	"fmt"
	"time"
)

// ReadOnly wraps a Capability so every mutator becomes a no-op success.
// It is used to disable one side of a pair for one-way mirroring: reads
// and shadow updates still happen so the other side's content keeps
// propagating, but nothing is ever written or deleted through it.
type ReadOnly struct {
	Capability
}

// Wrap returns c decorated as read-only. Wrapping an already-read-only
// capability is harmless (idempotent).
func Wrap(c Capability) Capability { return ReadOnly{Capability: c} }

func (r ReadOnly) String() string { return fmt.Sprintf("read-only %s", r.Capability.String()) }

func (r ReadOnly) IsReadOnly() bool { return true }

func (r ReadOnly) Clone() Capability { return ReadOnly{Capability: r.Capability.Clone()} }

func (r ReadOnly) Write(path string, data []byte, modTime time.Time) error { return nil }

func (r ReadOnly) DeleteFile(path string) error { return nil }

func (r ReadOnly) MakeDir(path string) error { return nil }

func (r ReadOnly) DeleteDir(path string) error { return nil }

var _ Capability = ReadOnly{}
