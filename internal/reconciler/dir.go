package reconciler

import (
	"github.com/dvsync/davsync/internal/shadow"
	"github.com/dvsync/davsync/internal/vfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// reconcileDirs implements directory reconciliation. isRemoteExist
// and isLocalExist describe whether remotePath/localPath are already
// known to exist (propagated from the caller, or true/true for a root
// where both sides were found present).
func (s *session) reconcileDirs(remotePath, localPath string, isRemoteExist, isLocalExist bool, sh *shadow.Store) {
	s.stats.IncProcessedDir()
	s.renderProgress()

	if !isRemoteExist && !isLocalExist {
		s.recordError(localPath, errors.New("directory missing on both sides"))
		return
	}

	if !isRemoteExist {
		shEntry, shPresent := sh.Get(localPath)
		if shPresent && shEntry.IsDir {
			// Shadow drop runs unconditionally even if the delete below
			// fails, mirroring the file-level deletion branches.
			s.backupLocal(localPath, true)
			if err := s.localFS.DeleteDir(localPath); err != nil {
				s.recordError(localPath, err)
			} else {
				s.stats.IncUpdatedDir()
			}
			if err := sh.DeleteDir(localPath); err != nil {
				s.recordError(localPath, err)
			}
			return
		}
		if s.remoteFS.IsReadOnly() {
			return
		}
		if err := s.remoteFS.MakeDir(remotePath); err != nil {
			s.recordError(remotePath, err)
			return
		}
		if err := sh.CreateDir(localPath); err != nil {
			s.recordError(localPath, err)
			return
		}
		s.stats.IncUpdatedDir()
		isRemoteExist = true
	}

	if !isLocalExist {
		shEntry, shPresent := sh.Get(localPath)
		if shPresent && shEntry.IsDir {
			if !s.remoteFS.IsReadOnly() {
				if err := s.remoteFS.DeleteDir(remotePath); err != nil {
					s.recordError(remotePath, err)
				} else {
					s.stats.IncUpdatedDir()
				}
			}
			if err := sh.DeleteDir(localPath); err != nil {
				s.recordError(localPath, err)
			}
			return
		}
		if s.localFS.IsReadOnly() {
			return
		}
		if err := s.localFS.MakeDir(localPath); err != nil {
			s.recordError(localPath, err)
			return
		}
		if err := sh.CreateDir(localPath); err != nil {
			s.recordError(localPath, err)
			return
		}
		s.stats.IncUpdatedDir()
		isLocalExist = true
	}

	if !isRemoteExist || !isLocalExist {
		// A read-only side blocked the directory's creation above;
		// there's nothing on that side to pair children against.
		return
	}

	remoteChildren, err := s.remoteFS.List(remotePath)
	if err != nil {
		s.recordError(remotePath, err)
		return
	}
	localChildren, err := s.localFS.List(localPath)
	if err != nil {
		s.recordError(localPath, err)
		return
	}

	localByName := make(map[string]vfs.Entry, len(localChildren))
	for _, c := range localChildren {
		localByName[c.Name] = c
	}

	// Pass 1: remote-named children.
	for _, rc := range remoteChildren {
		lc, matched := localByName[rc.Name]
		delete(localByName, rc.Name)

		rChildPath := s.remoteFS.Join(remotePath, rc.Name)
		lChildPath := s.localFS.Join(localPath, rc.Name)

		switch {
		case matched && rc.IsDir && lc.IsDir:
			s.submitDir(rChildPath, lChildPath, true, true, sh)
		case matched && !rc.IsDir && !lc.IsDir:
			s.reconcileFile(rChildPath, lChildPath, true, true, rc, lc, sh)
		case matched:
			s.logWarn("can't sync file and folder", logrus.Fields{"remote": rChildPath, "local": lChildPath})
		case rc.IsDir:
			s.submitDir(rChildPath, lChildPath, true, false, sh)
		default:
			s.reconcileFile(rChildPath, lChildPath, true, false, rc, vfs.Entry{}, sh)
		}
	}

	// Pass 2: the local-only residual, classified with the "iterate on
	// local" orientation so deletions/uploads resolve correctly.
	for name, lc := range localByName {
		rChildPath := s.remoteFS.Join(remotePath, name)
		lChildPath := s.localFS.Join(localPath, name)

		if lc.IsDir {
			s.submitDir(rChildPath, lChildPath, false, true, sh)
		} else {
			s.reconcileFile(rChildPath, lChildPath, false, true, vfs.Entry{}, lc, sh)
		}
	}
}

// submitDir hands a subdirectory off to the worker pool (inline when
// max-workers == 1) on a cloned session, so the cloned filesystem
// handles are never shared across goroutines.
func (s *session) submitDir(remotePath, localPath string, isRemoteExist, isLocalExist bool, sh *shadow.Store) {
	child := s.clone()
	s.pool.Submit(func() {
		child.reconcileDirs(remotePath, localPath, isRemoteExist, isLocalExist, sh)
	})
}
