package reconciler

import (
	"github.com/dvsync/davsync/internal/shadow"
	"github.com/dvsync/davsync/internal/vfs"
)

// initialSync handles the root-level dispatch's second row: the root is
// present on at most one side, and the gate flags permit proceeding.
// remoteExists/localExists describe which side (if any) already has
// content; remoteEntry/localEntry are only meaningful for the side that
// exists.
//
//   - remote only:  copy remote root to local, record shadow.
//   - local only:   copy local root to remote, record shadow.
//   - neither:      make-dir both roots, record shadow (the gate already
//     guarantees both flags were false to reach here).
//
// A file root always writes, with no size-gate. A dir root is created
// on the missing side and then handed to reconcileDirs, which performs
// the recursive copy via the normal per-path Case B/C file logic and
// per-subdirectory creation.
func (s *session) initialSync(remoteRoot, localRoot string, remoteExists, localExists bool, remoteEntry, localEntry vfs.Entry, sh *shadow.Store) {
	switch {
	case remoteExists && !localExists:
		s.initialSyncFromSide(remoteRoot, localRoot, remoteEntry, s.remoteFS, s.localFS, sh)
	case localExists && !remoteExists:
		s.initialSyncFromSide(localRoot, remoteRoot, localEntry, s.localFS, s.remoteFS, sh)
	default:
		s.initialSyncBothMissing(remoteRoot, localRoot, sh)
	}
}

// initialSyncFromSide copies srcRoot (on srcFS) to dstRoot (on dstFS),
// recording the result in the shadow store keyed by the LOCAL path.
// Which of srcFS/dstFS is local is determined by the caller.
func (s *session) initialSyncFromSide(srcRoot, dstRoot string, srcEntry vfs.Entry, srcFS, dstFS vfs.Capability, sh *shadow.Store) {
	localRoot, localIsSrc := srcRoot, srcFS == s.localFS
	if !localIsSrc {
		localRoot = dstRoot
	}

	if !srcEntry.IsDir {
		if err := copyFile(srcFS, dstFS, srcRoot, dstRoot, srcEntry); err != nil {
			s.recordError(srcRoot, err)
			return
		}
		if err := sh.WriteFile(localRoot, srcEntry.Size); err != nil {
			s.recordError(localRoot, err)
			return
		}
		s.stats.IncProcessedFile()
		s.stats.IncUpdatedFile()
		return
	}

	if err := dstFS.MakeDir(dstRoot); err != nil {
		s.recordError(dstRoot, err)
		return
	}
	if err := sh.CreateDir(localRoot); err != nil {
		s.recordError(localRoot, err)
		return
	}
	s.stats.IncProcessedDir()
	s.stats.IncUpdatedDir()

	if localIsSrc {
		s.reconcileDirs(dstRoot, srcRoot, true, true, sh)
	} else {
		s.reconcileDirs(srcRoot, dstRoot, true, true, sh)
	}
}

// initialSyncBothMissing is reached only when the gate flags permit it
// (both only-if-*-exist flags false): an empty directory is created on
// both sides and recorded once in the shadow store.
func (s *session) initialSyncBothMissing(remoteRoot, localRoot string, sh *shadow.Store) {
	if err := s.remoteFS.MakeDir(remoteRoot); err != nil {
		s.recordError(remoteRoot, err)
		return
	}
	if err := s.localFS.MakeDir(localRoot); err != nil {
		s.recordError(localRoot, err)
		return
	}
	if err := sh.CreateDir(localRoot); err != nil {
		s.recordError(localRoot, err)
		return
	}
	s.stats.IncProcessedDir()
	s.stats.IncUpdatedDir()
}
