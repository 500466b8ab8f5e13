package reconciler

import (
	"github.com/dvsync/davsync/internal/shadow"
	"github.com/dvsync/davsync/internal/vfs"
)

// reconcileFile is the three-way compare of remote entry R, local
// entry L and shadow entry S (any but not both of R/L may be absent).
// It always runs inline on the submitting worker — file-level work is
// never itself submitted to the pool.
func (s *session) reconcileFile(remotePath, localPath string, rExists, lExists bool, r, l vfs.Entry, sh *shadow.Store) {
	s.stats.IncProcessedFile()
	s.renderProgress()

	shEntry, shPresent := sh.Get(localPath)

	switch {
	case rExists && lExists:
		s.reconcileFileBothPresent(remotePath, localPath, r, l, shEntry, shPresent, sh)
	case rExists && !lExists:
		s.reconcileFileOnlyRemote(remotePath, localPath, r, shEntry, shPresent, sh)
	case lExists && !rExists:
		s.reconcileFileOnlyLocal(remotePath, localPath, l, shEntry, shPresent, sh)
	}
}

// reconcileFileBothPresent is Case A: the side whose mtime is newer than
// both the other side's and the shadow's stored time overwrites the
// other side. With no shadow entry, or when the newer side has not
// passed the stored time, the file is left untouched.
func (s *session) reconcileFileBothPresent(remotePath, localPath string, r, l vfs.Entry, shEntry shadow.Entry, shPresent bool, sh *shadow.Store) {
	updateLocal := shPresent && r.LastModified.After(l.LastModified) && r.LastModified.After(shEntry.StoredTime)
	updateRemote := !updateLocal && shPresent && l.LastModified.After(r.LastModified) && l.LastModified.After(shEntry.StoredTime)

	switch {
	case updateLocal:
		if s.overSizeLimit(r.Size) {
			s.logIgnored(localPath, r.Size, s.maxFileSize)
			return
		}
		if s.localFS.IsReadOnly() {
			return
		}
		s.backupLocal(localPath, false)
		if err := copyFile(s.remoteFS, s.localFS, remotePath, localPath, r); err != nil {
			s.recordError(localPath, err)
			return
		}
		if err := sh.WriteFile(localPath, r.Size); err != nil {
			s.recordError(localPath, err)
			return
		}
		s.stats.IncUpdatedFile()

	case updateRemote:
		if s.overSizeLimit(l.Size) {
			s.logIgnored(localPath, l.Size, s.maxFileSize)
			return
		}
		if s.remoteFS.IsReadOnly() {
			return
		}
		if err := copyFile(s.localFS, s.remoteFS, localPath, remotePath, l); err != nil {
			s.recordError(localPath, err)
			return
		}
		if err := sh.WriteFile(localPath, l.Size); err != nil {
			s.recordError(localPath, err)
			return
		}
		s.stats.IncUpdatedFile()
	}
}

// reconcileFileOnlyRemote is Case B: the file exists only on the
// remote side.
func (s *session) reconcileFileOnlyRemote(remotePath, localPath string, r vfs.Entry, shEntry shadow.Entry, shPresent bool, sh *shadow.Store) {
	if shPresent {
		// The shadow knew this path: it was deleted locally since the
		// last sync, so the deletion propagates to the remote. The
		// shadow drop runs unconditionally, even if the remote delete
		// below fails — matching the source's behavior of dropping the
		// baseline regardless, at the risk of a re-sync loop if the
		// delete keeps failing.
		if !s.remoteFS.IsReadOnly() {
			if err := s.remoteFS.DeleteFile(remotePath); err != nil {
				s.recordError(remotePath, err)
			} else {
				s.stats.IncUpdatedFile()
			}
		}
		if err := sh.DeleteFile(localPath); err != nil {
			s.recordError(localPath, err)
		}
		return
	}

	if s.overSizeLimit(r.Size) {
		s.logIgnored(localPath, r.Size, s.maxFileSize)
		return
	}
	if s.localFS.IsReadOnly() {
		return
	}
	s.backupLocal(localPath, false)
	if err := copyFile(s.remoteFS, s.localFS, remotePath, localPath, r); err != nil {
		s.recordError(localPath, err)
		return
	}
	if err := sh.WriteFile(localPath, r.Size); err != nil {
		s.recordError(localPath, err)
		return
	}
	s.stats.IncUpdatedFile()
}

// reconcileFileOnlyLocal is Case C: the file exists only on the local
// side, the mirror image of Case B.
func (s *session) reconcileFileOnlyLocal(remotePath, localPath string, l vfs.Entry, shEntry shadow.Entry, shPresent bool, sh *shadow.Store) {
	if shPresent {
		// The shadow knew this path: it was deleted remotely since the
		// last sync, so the deletion propagates to the local side. The
		// shadow drop runs unconditionally, even if the local delete
		// below fails — matching the source's behavior of dropping the
		// baseline regardless, at the risk of a re-sync loop if the
		// delete keeps failing.
		s.backupLocal(localPath, false)
		if !s.localFS.IsReadOnly() {
			if err := s.localFS.DeleteFile(localPath); err != nil {
				s.recordError(localPath, err)
			} else {
				s.stats.IncUpdatedFile()
			}
		}
		if err := sh.DeleteFile(localPath); err != nil {
			s.recordError(localPath, err)
		}
		return
	}

	if s.overSizeLimit(l.Size) {
		s.logIgnored(localPath, l.Size, s.maxFileSize)
		return
	}
	if s.remoteFS.IsReadOnly() {
		return
	}
	if err := copyFile(s.localFS, s.remoteFS, localPath, remotePath, l); err != nil {
		s.recordError(localPath, err)
		return
	}
	if err := sh.WriteFile(localPath, l.Size); err != nil {
		s.recordError(localPath, err)
		return
	}
	s.stats.IncUpdatedFile()
}

// overSizeLimit reports whether size exceeds the configured
// max-file-size-bytes. A limit of 0 means unlimited.
func (s *session) overSizeLimit(size int64) bool {
	return s.maxFileSize > 0 && size > s.maxFileSize
}
