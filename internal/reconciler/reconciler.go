// Package reconciler implements the two-way synchronization core: for
// each configured (remote-root, local-root) pair it walks both trees,
// uses the pair's Shadow Store as the tiebreaker for which side
// changed, and applies the minimal set of copies/deletes/make-dirs
// needed to bring the two sides back into agreement.
package reconciler

import (
	"fmt"
	"sync/atomic"

	"github.com/dvsync/davsync/internal/backup"
	"github.com/dvsync/davsync/internal/progress"
	"github.com/dvsync/davsync/internal/shadow"
	"github.com/dvsync/davsync/internal/synclog"
	"github.com/dvsync/davsync/internal/vfs"
	"github.com/dvsync/davsync/internal/workerpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// pair is one configured (remote-root, local-root) sync pair and its
// shadow store. The backup store, worker pool and error counter of a
// run live in the per-run session instead.
type pair struct {
	remoteRoot string
	localRoot  string
	shadow     *shadow.Store
}

// Reconciler drives synchronization for a set of pairs sharing one
// remote and local filesystem capability, one log, and one settings
// directory.
type Reconciler struct {
	remoteFS    vfs.Capability
	localFS     vfs.Capability
	logPath     string
	settingsDir string
	maxFileSize int64 // bytes; 0 means unlimited
	maxWorkers  int

	pairs []*pair

	Log      *logrus.Logger
	Progress *progress.Indicator
}

// NewReconciler constructs a Reconciler. maxFileKB is converted to
// bytes internally (0 stays unlimited); maxWorkers < 1 is treated as 1.
func NewReconciler(remoteFS, localFS vfs.Capability, logPath, settingsDir string, maxFileKB int64, maxWorkers int) (*Reconciler, error) {
	log, err := synclog.New(logPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sync log")
	}
	maxBytes := int64(0)
	if maxFileKB > 0 {
		maxBytes = maxFileKB * 1024
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Reconciler{
		remoteFS:    remoteFS,
		localFS:     localFS,
		logPath:     logPath,
		settingsDir: settingsDir,
		maxFileSize: maxBytes,
		maxWorkers:  maxWorkers,
		Log:         log,
	}, nil
}

// AddPair registers one sync pair, lazily opening (or creating) its
// shadow store under settingsDir/state.
func (r *Reconciler) AddPair(remoteRoot, localRoot string) error {
	s, err := shadow.Open(r.settingsDir, remoteRoot, localRoot)
	if err != nil {
		return errors.Wrapf(err, "open shadow store for pair %s <-> %s", remoteRoot, localRoot)
	}
	r.pairs = append(r.pairs, &pair{remoteRoot: remoteRoot, localRoot: localRoot, shadow: s})
	return nil
}

// ShadowPaths returns every path currently recorded in the shadow store
// for the pair matching remoteRoot/localRoot, primarily for tests and
// diagnostics that want to inspect the baseline without reaching past
// the package boundary.
func (r *Reconciler) ShadowPaths(remoteRoot, localRoot string) ([]string, error) {
	for _, p := range r.pairs {
		if p.remoteRoot == remoteRoot && p.localRoot == localRoot {
			return p.shadow.AllPaths()
		}
	}
	return nil, errors.Errorf("no such pair: %s <-> %s", remoteRoot, localRoot)
}

// Sync runs every registered pair in turn, returning the combined
// stats. onlyIfRemoteExist/onlyIfLocalExist gate whether a root missing
// on one or both sides is treated as a first-time initial sync; a pair
// the gate does not admit is logged as a warning and skipped.
func (r *Reconciler) Sync(onlyIfRemoteExist, onlyIfLocalExist bool) (*workerpool.Stats, error) {
	combined := &workerpool.Stats{}
	combined.Start()

	for _, p := range r.pairs {
		if err := r.syncPair(p, onlyIfRemoteExist, onlyIfLocalExist, combined); err != nil {
			r.Log.WithField("pair", p.localRoot).Error(err.Error())
		}
	}
	if r.Progress != nil {
		r.Progress.Finish()
	}
	return combined, nil
}

// session bundles the per-pair resources a reconciliation run threads
// through every recursive call: the worker pool, backup store, error
// counter and the two (possibly cloned) filesystem handles.
type session struct {
	pool        *workerpool.Pool
	backupStore *backup.Store
	stats       *workerpool.Stats
	errorCount  *int64 // shared across every clone of this session, atomic

	remoteFS vfs.Capability
	localFS  vfs.Capability

	maxFileSize int64
	log         *logrus.Logger
	progress    *progress.Indicator
}

// clone returns a session for a sub-directory task submitted to the
// pool: the mutable filesystem handles are cloned (providers are not
// assumed thread-safe) while the pool, backup store, stats, log and
// error counter are shared with the parent.
func (s *session) clone() *session {
	return &session{
		pool:        s.pool,
		backupStore: s.backupStore,
		stats:       s.stats,
		errorCount:  s.errorCount,
		remoteFS:    s.remoteFS.Clone(),
		localFS:     s.localFS.Clone(),
		maxFileSize: s.maxFileSize,
		log:         s.log,
		progress:    s.progress,
	}
}

func (r *Reconciler) syncPair(p *pair, onlyIfRemoteExist, onlyIfLocalExist bool, combined *workerpool.Stats) error {
	var errCount int64
	sess := &session{
		pool:        workerpool.New(r.maxWorkers),
		backupStore: backup.New(r.settingsDir + "/backup"),
		stats:       combined,
		errorCount:  &errCount,
		remoteFS:    r.remoteFS,
		localFS:     r.localFS,
		maxFileSize: r.maxFileSize,
		log:         r.Log,
		progress:    r.Progress,
	}

	remoteEntry, remoteExists, err := statEntry(sess.remoteFS, p.remoteRoot)
	if err != nil {
		return errors.Wrap(err, "stat remote root")
	}
	localEntry, localExists, err := statEntry(sess.localFS, p.localRoot)
	if err != nil {
		return errors.Wrap(err, "stat local root")
	}

	switch {
	case remoteExists && localExists:
		sess.reconcileDirs(p.remoteRoot, p.localRoot, true, true, p.shadow)
	case remoteExists == onlyIfRemoteExist && localExists == onlyIfLocalExist:
		sess.initialSync(p.remoteRoot, p.localRoot, remoteExists, localExists, remoteEntry, localEntry, p.shadow)
	default:
		sess.log.WithField("remote", p.remoteRoot).WithField("local", p.localRoot).
			Warn("root folder not exist")
		return nil
	}

	sess.pool.Quiesce()

	if atomic.LoadInt64(sess.errorCount) == 0 {
		if err := gcShadow(sess.localFS, p.shadow); err != nil {
			sess.log.Error(errors.Wrap(err, "shadow garbage collection").Error())
		}
	}
	return nil
}

// recordError increments the pair's path-error counter (shared across
// every cloned sub-session) and writes an "Error: "-prefixed log line
// under the shared lock. The error is swallowed here and never bubbles
// to sibling paths.
func (s *session) recordError(context string, err error) {
	atomic.AddInt64(s.errorCount, 1)
	s.pool.SharedLock.Lock()
	defer s.pool.SharedLock.Unlock()
	s.log.WithField("path", context).Error(err.Error())
}

// renderProgress throttles a status line describing the session's stats
// and current in-flight worker count to the reconciler's progress
// indicator, when one is configured.
func (s *session) renderProgress() {
	if s.progress == nil {
		return
	}
	line := fmt.Sprintf("%s, %d active", s.stats.String(), s.pool.Active())
	s.pool.SharedLock.Lock()
	defer s.pool.SharedLock.Unlock()
	s.progress.Render(line, false)
}

func (s *session) logWarn(msg string, fields logrus.Fields) {
	s.pool.SharedLock.Lock()
	defer s.pool.SharedLock.Unlock()
	s.log.WithFields(fields).Warn(msg)
}

// logIgnored records a size-limit skip: logged, but not counted as a
// path error.
func (s *session) logIgnored(path string, size, max int64) {
	s.logWarn("ignored: file exceeds max-file-size", logrus.Fields{
		"path": path, "size": size, "max": max,
	})
}

// logBackupFailure records a failed backup attempt: logged, but the
// mutation it precedes still proceeds and it is not counted as an
// error — availability of the sync over durability of backups.
func (s *session) logBackupFailure(path string, err error) {
	s.logWarn("backup failed, proceeding with mutation anyway", logrus.Fields{
		"path": path, "error": err.Error(),
	})
}

// backupLocal asks the backup store to snapshot localPath before a
// destructive local change. A missing source or any other failure is
// logged and swallowed: the caller's mutation proceeds regardless.
func (s *session) backupLocal(localPath string, isDir bool) {
	var err error
	s.pool.SharedLock.Lock()
	if isDir {
		_, err = s.backupStore.BackupDir(localPath)
	} else {
		_, err = s.backupStore.BackupFile(localPath)
	}
	s.pool.SharedLock.Unlock()
	if err != nil {
		s.logBackupFailure(localPath, err)
	}
}
