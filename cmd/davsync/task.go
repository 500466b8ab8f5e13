package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dvsync/davsync/internal/clockcheck"
	"github.com/dvsync/davsync/internal/config"
	"github.com/dvsync/davsync/internal/credstore"
	"github.com/dvsync/davsync/internal/progress"
	"github.com/dvsync/davsync/internal/reconciler"
	"github.com/dvsync/davsync/internal/vfs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// connectTimeout bounds a WebDAV side's initial TCP+TLS handshake so a
// stalled server doesn't hang a sync session indefinitely.
const connectTimeout = 10 * time.Second

// buildCapability turns one side of a task into a vfs.Capability: a
// WebDAV client when the side names a server (the obscured config
// password is revealed, then the OS keyring is tried first per
// credstore.Resolve), otherwise a Local capability rooted at the
// filesystem root so its SyncPaths entries can be passed as absolute
// paths. A ReadOnly flag wraps either kind identically.
func buildCapability(side config.Side, store credstore.Store) (vfs.Capability, error) {
	var provider vfs.Capability

	if side.IsWebDAVConfigured() {
		revealed, err := config.Reveal(side.Password)
		if err != nil {
			return nil, errors.Wrap(err, "reveal obscured password")
		}
		password := credstore.Resolve(store, side.Username, side.Server, revealed)

		endpoint := fmt.Sprintf("%s://%s:%d", side.Proto, side.Server, side.Port)
		dav, err := vfs.NewWebDAV(vfs.WebDAVConfig{
			Endpoint:     endpoint,
			Root:         "",
			User:         side.Username,
			Pass:         password,
			PinnedSHA256: side.ServerSha256,
			Locks: vfs.LockConfig{
				Enabled: side.UseLocks,
				Timeout: vfs.DefaultLockTimeout,
			},
			ConnectTimeout: connectTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "build webdav capability")
		}
		provider = dav
	} else {
		provider = vfs.NewLocal("/")
	}

	if side.ReadOnly {
		provider = vfs.Wrap(provider)
	}
	return provider, nil
}

// checkClockSkew warns (but never fails the task) when side names a
// server whose Date header disagrees with the local clock by more than
// clockcheck.MaxAcceptableSkew.
func checkClockSkew(log *logrus.Logger, side config.Side) {
	if !side.IsWebDAVConfigured() {
		return
	}
	endpoint := fmt.Sprintf("%s://%s:%d/", side.Proto, side.Server, side.Port)
	result, err := clockcheck.Check(endpoint)
	if err != nil {
		log.WithField("server", side.Server).Warn("can't get server time: " + err.Error())
		return
	}
	if result.OutOfSync {
		log.WithField("server", side.Server).WithField("skew", result.Skew.String()).
			Warn("local clock disagrees with server by more than the acceptable skew")
	}
}

// buildReconciler wires one task into a Reconciler: one shared remote
// and local capability, one pair added per index of the task's
// SyncPaths, sized by the max of each side's MaxFileSizeKB/MaxThreads.
func buildReconciler(t *config.Task, logPath, settingsDir string, store credstore.Store) (*reconciler.Reconciler, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	remoteFS, err := buildCapability(t.Remote, store)
	if err != nil {
		return nil, errors.Wrapf(err, "task %q: build remote capability", t.Name)
	}
	localFS, err := buildCapability(t.Local, store)
	if err != nil {
		return nil, errors.Wrapf(err, "task %q: build local capability", t.Name)
	}

	maxFileKB := t.Remote.MaxFileSizeKB
	if t.Local.MaxFileSizeKB > maxFileKB {
		maxFileKB = t.Local.MaxFileSizeKB
	}
	maxThreads := t.Remote.MaxThreads
	if t.Local.MaxThreads > maxThreads {
		maxThreads = t.Local.MaxThreads
	}

	r, err := reconciler.NewReconciler(remoteFS, localFS, logPath, settingsDir, maxFileKB, maxThreads)
	if err != nil {
		return nil, errors.Wrapf(err, "task %q: construct reconciler", t.Name)
	}
	r.Progress = progress.New(os.Stdout)

	for i, remotePath := range t.Remote.SyncPaths {
		if err := r.AddPair(remotePath, t.Local.SyncPaths[i]); err != nil {
			return nil, errors.Wrapf(err, "task %q: add sync pair %d", t.Name, i)
		}
	}

	checkClockSkew(r.Log, t.Remote)
	checkClockSkew(r.Log, t.Local)

	return r, nil
}

// runTask runs one task's full sync and logs its summary line.
func runTask(t *config.Task, logPath, settingsDir string, store credstore.Store) error {
	r, err := buildReconciler(t, logPath, settingsDir, store)
	if err != nil {
		return err
	}
	onlyIfRemoteExist := t.Remote.OnlyIfSyncPathExist
	onlyIfLocalExist := t.Local.OnlyIfSyncPathExist

	stats, err := r.Sync(onlyIfRemoteExist, onlyIfLocalExist)
	if err != nil {
		return errors.Wrapf(err, "task %q", t.Name)
	}
	r.Log.Info(stats.String())
	return nil
}
