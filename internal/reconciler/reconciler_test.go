package reconciler

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dvsync/davsync/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestReconciler wires a Reconciler whose "remote" and "local" are
// both plain os-filesystem trees under separate temp directories, with
// a single pair rooted at "pair" on each side (left absent so tests
// can exercise the root-level dispatch as well as steady-state sync).
func newTestReconciler(t *testing.T, maxWorkers int) (*Reconciler, string, string) {
	t.Helper()
	remoteDir := t.TempDir()
	localDir := t.TempDir()
	settingsDir := t.TempDir()
	logPath := filepath.Join(settingsDir, "sync.log")

	remoteFS := vfs.NewLocal(remoteDir)
	localFS := vfs.NewLocal(localDir)

	r, err := NewReconciler(remoteFS, localFS, logPath, settingsDir, 0, maxWorkers)
	require.NoError(t, err)
	require.NoError(t, r.AddPair("pair", "pair"))
	return r, remoteDir, localDir
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func fileExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestCreationPropagatesLocalToRemote(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)

	_, err := r.Sync(false, false)
	require.NoError(t, err)
	assert.True(t, fileExists(remoteDir, "pair"))
	assert.True(t, fileExists(localDir, "pair"))

	writeFile(t, localDir, "pair/a.txt", "hello")

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", readFile(t, remoteDir, "pair/a.txt"))

	paths, err := r.ShadowPaths("pair", "pair")
	require.NoError(t, err)
	assert.Contains(t, paths, "pair/a.txt")
}

func TestDeletionPropagates(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)
	_, err := r.Sync(false, false)
	require.NoError(t, err)

	writeFile(t, localDir, "pair/a.txt", "hello")
	_, err = r.Sync(false, false)
	require.NoError(t, err)
	require.True(t, fileExists(remoteDir, "pair/a.txt"))

	require.NoError(t, os.Remove(filepath.Join(localDir, "pair", "a.txt")))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.False(t, fileExists(remoteDir, "pair/a.txt"))

	paths, err := r.ShadowPaths("pair", "pair")
	require.NoError(t, err)
	assert.NotContains(t, paths, "pair/a.txt")
}

func TestDivergentNewFilesAreNotMerged(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)
	_, err := r.Sync(false, false)
	require.NoError(t, err)

	writeFile(t, localDir, "pair/a.txt", "X")
	writeFile(t, remoteDir, "pair/a.txt", "Y")

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "X", readFile(t, localDir, "pair/a.txt"))
	assert.Equal(t, "Y", readFile(t, remoteDir, "pair/a.txt"))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "X", readFile(t, localDir, "pair/a.txt"))
	assert.Equal(t, "Y", readFile(t, remoteDir, "pair/a.txt"))
}

func TestIdempotentOnSteadyState(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)
	_, err := r.Sync(false, false)
	require.NoError(t, err)
	writeFile(t, localDir, "pair/a.txt", "hello")
	_, err = r.Sync(false, false)
	require.NoError(t, err)

	remoteBefore, err := os.Stat(filepath.Join(remoteDir, "pair", "a.txt"))
	require.NoError(t, err)

	stats, err := r.Sync(false, false)
	require.NoError(t, err)
	assert.Zero(t, stats.UpdatedFiles)
	assert.Zero(t, stats.UpdatedDirs)

	remoteAfter, err := os.Stat(filepath.Join(remoteDir, "pair", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, remoteBefore.ModTime(), remoteAfter.ModTime())
}

func TestEditWinsOverStaleAndDoesNotReverse(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)
	_, err := r.Sync(false, false)
	require.NoError(t, err)
	writeFile(t, localDir, "pair/a.txt", "v1")
	_, err = r.Sync(false, false)
	require.NoError(t, err)
	require.Equal(t, "v1", readFile(t, remoteDir, "pair/a.txt"))

	// advance local mtime well past the shadow's stored-time slack.
	future := time.Now().Add(time.Hour)
	p := filepath.Join(localDir, "pair", "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("v2"), 0o644))
	require.NoError(t, os.Chtimes(p, future, future))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "v2", readFile(t, remoteDir, "pair/a.txt"))

	// next run: remote now matches local post-sync, no reverse flip.
	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "v2", readFile(t, localDir, "pair/a.txt"))
}

func TestSizeGateBlocksCopyBothDirections(t *testing.T) {
	remoteDir := t.TempDir()
	localDir := t.TempDir()
	settingsDir := t.TempDir()
	remoteFS := vfs.NewLocal(remoteDir)
	localFS := vfs.NewLocal(localDir)

	r, err := NewReconciler(remoteFS, localFS, filepath.Join(settingsDir, "sync.log"), settingsDir, 1, 1) // 1 KB cap
	require.NoError(t, err)
	require.NoError(t, r.AddPair("pair", "pair"))

	_, err = r.Sync(false, false)
	require.NoError(t, err)

	big := make([]byte, 4096)
	writeFile(t, localDir, "pair/big.bin", string(big))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.False(t, fileExists(remoteDir, "pair/big.bin"))

	writeFile(t, remoteDir, "pair/big-remote.bin", string(big))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.False(t, fileExists(localDir, "pair/big-remote.bin"))

	paths, err := r.ShadowPaths("pair", "pair")
	require.NoError(t, err)
	assert.NotContains(t, paths, "pair/big.bin")
	assert.NotContains(t, paths, "pair/big-remote.bin")
}

func TestReadOnlyRemoteNeverMutated(t *testing.T) {
	remoteDir := t.TempDir()
	localDir := t.TempDir()
	settingsDir := t.TempDir()
	// The remote root must already exist on disk: a read-only
	// capability's MakeDir is a no-op, so the root-level dispatch
	// would otherwise never see it as present.
	require.NoError(t, os.MkdirAll(filepath.Join(remoteDir, "pair"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(localDir, "pair"), 0o755))

	remoteFS := vfs.Wrap(vfs.NewLocal(remoteDir))
	localFS := vfs.NewLocal(localDir)

	r, err := NewReconciler(remoteFS, localFS, filepath.Join(settingsDir, "sync.log"), settingsDir, 0, 1)
	require.NoError(t, err)
	require.NoError(t, r.AddPair("pair", "pair"))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	writeFile(t, localDir, "pair/a.txt", "hello")

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.False(t, fileExists(remoteDir, "pair/a.txt"), "read-only remote must never be written")

	// A local-only file with no shadow baseline and a read-only remote
	// has nowhere to go: it is left untouched, including the shadow, so
	// the next run retries rather than silently dropping it.
	paths, err := r.ShadowPaths("pair", "pair")
	require.NoError(t, err)
	assert.NotContains(t, paths, "pair/a.txt")
}

func TestReadOnlyLocalNeverMutated(t *testing.T) {
	remoteDir := t.TempDir()
	localDir := t.TempDir()
	settingsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(remoteDir, "pair"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(localDir, "pair"), 0o755))

	remoteFS := vfs.NewLocal(remoteDir)
	localFS := vfs.Wrap(vfs.NewLocal(localDir))

	r, err := NewReconciler(remoteFS, localFS, filepath.Join(settingsDir, "sync.log"), settingsDir, 0, 1)
	require.NoError(t, err)
	require.NoError(t, r.AddPair("pair", "pair"))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	writeFile(t, remoteDir, "pair/a.txt", "from-remote")

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.False(t, fileExists(localDir, "pair/a.txt"), "read-only local must never be written")
}

func TestContentOnReadOnlySidePropagatesOutward(t *testing.T) {
	remoteDir := t.TempDir()
	localDir := t.TempDir()
	settingsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(remoteDir, "pair"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(localDir, "pair"), 0o755))

	remoteFS := vfs.NewLocal(remoteDir)
	localFS := vfs.Wrap(vfs.NewLocal(localDir))

	r, err := NewReconciler(remoteFS, localFS, filepath.Join(settingsDir, "sync.log"), settingsDir, 0, 1)
	require.NoError(t, err)
	require.NoError(t, r.AddPair("pair", "pair"))

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	// Content placed directly on disk under the read-only local side
	// (simulating pre-existing local content), not through the
	// capability, since the decorator's own Write is a no-op.
	writeFile(t, localDir, "pair/already-there.txt", "local-origin")

	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "local-origin", readFile(t, remoteDir, "pair/already-there.txt"))
}

func TestTypeConflictIsInert(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 1)
	_, err := r.Sync(false, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(localDir, "pair", "x"), 0o755))
	writeFile(t, remoteDir, "pair/x", "a file here")

	_, err = r.Sync(false, false)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(localDir, "pair", "x"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(remoteDir, "pair", "x"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestConcurrencyAgnosticFinalState(t *testing.T) {
	for _, workers := range []int{1, 4, 16} {
		r, remoteDir, localDir := newTestReconciler(t, workers)
		_, err := r.Sync(false, false)
		require.NoError(t, err)

		var rels []string
		for i := 0; i < 20; i++ {
			rel := filepath.Join("pair", "dir"+strconv.Itoa(i%5), "f"+strconv.Itoa(i)+".txt")
			rels = append(rels, rel)
			writeFile(t, localDir, rel, "x")
		}

		_, err = r.Sync(false, false)
		require.NoError(t, err)

		for _, rel := range rels {
			assert.True(t, fileExists(remoteDir, rel), "workers=%d path=%s", workers, rel)
		}
	}
}

func TestNestedDirectoriesRecurseBothDirections(t *testing.T) {
	r, remoteDir, localDir := newTestReconciler(t, 4)
	_, err := r.Sync(false, false)
	require.NoError(t, err)

	writeFile(t, localDir, "pair/a/b/c.txt", "deep")
	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "deep", readFile(t, remoteDir, "pair/a/b/c.txt"))

	writeFile(t, remoteDir, "pair/x/y.txt", "remote-side")
	_, err = r.Sync(false, false)
	require.NoError(t, err)
	assert.Equal(t, "remote-side", readFile(t, localDir, "pair/x/y.txt"))
}
