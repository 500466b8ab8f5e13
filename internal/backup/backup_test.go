package backup

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nameRe = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}-\d{2}-\d{2} [0-9a-f]{4}\] `)

func TestBackupFileCopiesContent(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	s := New(t.TempDir())
	dst, err := s.BackupFile(src)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Regexp(t, nameRe, filepath.Base(dst))
	assert.Contains(t, filepath.Base(dst), "a.txt")
}

func TestBackupFileNamesAreUniqueAcrossCalls(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	s := New(t.TempDir())
	dst1, err := s.BackupFile(src)
	require.NoError(t, err)
	dst2, err := s.BackupFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, dst1, dst2)
}

func TestBackupDirCopiesTreeRecursively(t *testing.T) {
	srcRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcRoot, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "sub", "nested.txt"), []byte("nested"), 0o644))

	s := New(t.TempDir())
	dst, err := s.BackupDir(srcRoot)
	require.NoError(t, err)

	top, err := os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(top))

	nested, err := os.ReadFile(filepath.Join(dst, "sub", "nested.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(nested))
}

func TestBackupFileFailsOnMissingSource(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.BackupFile(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Error(t, err)
}
