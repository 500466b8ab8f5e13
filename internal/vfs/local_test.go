package vfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriteThenReadRoundTrips(t *testing.T) {
	l := NewLocal(t.TempDir())
	mod := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, l.Write("a.txt", []byte("hello"), mod))

	data, err := l.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalWriteCreatesParentDirs(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("d/e/f.txt", []byte("x"), time.Time{}))
	assert.True(t, l.Exists("d/e/f.txt"))
	assert.True(t, l.Exists("d/e"))
}

func TestLocalStatMissingReturnsErrNotExist(t *testing.T) {
	l := NewLocal(t.TempDir())
	_, err := l.Stat("nope.txt")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStatReflectsModTime(t *testing.T) {
	l := NewLocal(t.TempDir())
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Write("a.txt", []byte("hello"), mod))

	entry, err := l.Stat("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entry.Name)
	assert.False(t, entry.IsDir)
	assert.Equal(t, int64(len("hello")), entry.Size)
	assert.True(t, entry.LastModified.Equal(mod) || entry.LastModified.After(mod))
}

func TestLocalListReturnsChildren(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("a.txt", []byte("a"), time.Time{}))
	require.NoError(t, l.MakeDir("sub"))

	entries, err := l.List("")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["a.txt"])
	assert.True(t, names["sub"])
}

func TestLocalListOfMissingDirIsEmptyNotError(t *testing.T) {
	l := NewLocal(t.TempDir())
	entries, err := l.List("nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalDeleteFileIsIdempotent(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("a.txt", []byte("a"), time.Time{}))
	require.NoError(t, l.DeleteFile("a.txt"))
	require.NoError(t, l.DeleteFile("a.txt"))
	assert.False(t, l.Exists("a.txt"))
}

func TestLocalMakeDirIsIdempotent(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.MakeDir("d"))
	require.NoError(t, l.MakeDir("d"))
	assert.True(t, l.Exists("d"))
}

func TestLocalDeleteDirRemovesRecursively(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("d/e/f.txt", []byte("x"), time.Time{}))
	require.NoError(t, l.DeleteDir("d"))
	assert.False(t, l.Exists("d"))
	assert.False(t, l.Exists("d/e/f.txt"))
}

func TestLocalIsFileDistinguishesDirs(t *testing.T) {
	l := NewLocal(t.TempDir())
	require.NoError(t, l.Write("a.txt", []byte("a"), time.Time{}))
	require.NoError(t, l.MakeDir("d"))
	assert.True(t, l.IsFile("a.txt"))
	assert.False(t, l.IsFile("d"))
	assert.False(t, l.IsFile("nope"))
}

func TestLocalCloneIsIndependentHandle(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root)
	clone := l.Clone()
	require.NoError(t, clone.Write("a.txt", []byte("a"), time.Time{}))
	assert.True(t, l.Exists("a.txt"))
	assert.NotSame(t, l, clone)
}

func TestLocalListSurfacesBrokenSymlinkUnlocked(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root)
	require.NoError(t, l.Write("a.txt", []byte("a"), time.Time{}))

	// Remove the file between readdir and lstat by shadowing List's
	// internal lstat with a file that vanishes mid-scan isn't practical
	// to force portably; instead verify a broken symlink still surfaces
	// as a Locked-free regular entry (lstat succeeds on the link itself).
	link := filepath.Join(root, "broken")
	if err := os.Symlink(filepath.Join(root, "does-not-exist"), link); err != nil {
		t.Skip("symlinks unsupported on this platform")
	}
	entries, err := l.List("")
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.Name == "broken" {
			found = true
			assert.False(t, e.Locked)
		}
	}
	assert.True(t, found)
}
