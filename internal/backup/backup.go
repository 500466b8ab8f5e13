// Package backup implements the append-only sidecar the reconciler
// writes to before any locally-destructive operation. A backup failure
// is logged by the caller but never aborts the mutation it guards.
package backup

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dvsync/davsync/internal/pathutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store copies files and directories into a timestamped, collision-free
// location under Root before the reconciler overwrites or deletes them.
type Store struct {
	Root string
}

// New returns a Store rooted at root. The root is created lazily on
// first use, not here.
func New(root string) *Store {
	return &Store{Root: root}
}

// destName builds "[YYYY-MM-DD HH-MM-SS <rand4>] <basename>", unique
// across concurrent workers by pairing a timestamp with four hex
// characters off a fresh UUIDv4.
func destName(localPath string) string {
	token := uuid.New().String()
	token = token[:4]
	stamp := time.Now().Format("2006-01-02 15-04-05")
	base := pathutil.LastElement(localPath)
	return "[" + stamp + " " + token + "] " + base
}

// BackupFile copies the file at localPath (absolute, on the local
// filesystem) into the backup root. Returns the destination path on
// success.
func (s *Store) BackupFile(localPath string) (string, error) {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup root")
	}
	dst := filepath.Join(s.Root, destName(localPath))

	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "open source for backup")
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "create backup file")
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", errors.Wrap(err, "copy backup contents")
	}
	return dst, nil
}

// BackupDir recursively copies the directory tree rooted at localPath
// into a single timestamped directory under the backup root.
func (s *Store) BackupDir(localPath string) (string, error) {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", errors.Wrap(err, "create backup root")
	}
	dst := filepath.Join(s.Root, destName(localPath))

	err := filepath.Walk(localPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "copy directory tree for backup")
	}
	return dst, nil
}
