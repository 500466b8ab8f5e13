package vfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOnlyReportsItself(t *testing.T) {
	r := Wrap(NewLocal(t.TempDir()))
	assert.True(t, r.IsReadOnly())
}

func TestReadOnlyMutatorsAreNoOps(t *testing.T) {
	l := NewLocal(t.TempDir())
	r := Wrap(l)

	assert.NoError(t, r.Write("a.txt", []byte("x"), time.Time{}))
	assert.False(t, l.Exists("a.txt"), "write through a read-only wrapper must not touch the underlying capability")

	require.NoError(t, l.Write("b.txt", []byte("x"), time.Time{}))
	assert.NoError(t, r.DeleteFile("b.txt"))
	assert.True(t, l.Exists("b.txt"), "delete through a read-only wrapper must be a no-op")

	assert.NoError(t, r.MakeDir("d"))
	assert.False(t, l.Exists("d"))

	require.NoError(t, l.MakeDir("e"))
	assert.NoError(t, r.DeleteDir("e"))
	assert.True(t, l.Exists("e"))
}

func TestReadOnlyReadsPassThrough(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("a.txt", []byte("hello"), time.Time{}))
	r := Wrap(l)

	data, err := r.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entry, err := r.Stat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name)
}

func TestReadOnlyCloneStaysReadOnly(t *testing.T) {
	r := Wrap(NewLocal(t.TempDir()))
	clone := r.Clone()
	assert.True(t, clone.IsReadOnly())
}

func TestWrapIsIdempotent(t *testing.T) {
	r := Wrap(Wrap(NewLocal(t.TempDir())))
	assert.True(t, r.IsReadOnly())
	assert.Contains(t, r.String(), "read-only")
}
