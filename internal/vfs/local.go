package vfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local maps the capability surface onto the host filesystem.
type Local struct {
	root string
}

// NewLocal returns a Local capability rooted at root. root is created
// lazily by MakeDir calls, not by NewLocal itself.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

func (l *Local) String() string { return fmt.Sprintf("local root '%s'", l.root) }

func (l *Local) Clone() Capability { return &Local{root: l.root} }

func (l *Local) IsReadOnly() bool { return false }

func (l *Local) Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (l *Local) abs(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// List returns dir's children. A per-entry Lstat failure (permission
// denied, removed mid-scan) does not abort the directory: the entry is
// still surfaced, marked Locked, so the caller can log and skip it
// without losing the rest of the listing.
func (l *Local) List(dir string) ([]Entry, error) {
	abs := l.abs(dir)
	names, err := readdirnames(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		fi, err := os.Lstat(filepath.Join(abs, name))
		if err != nil {
			entries = append(entries, Entry{ParentPath: dir, Name: name, Locked: true})
			continue
		}
		entries = append(entries, entryFromFileInfo(dir, name, fi))
	}
	return entries, nil
}

func readdirnames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// entryFromFileInfo converts an os.FileInfo into an Entry, taking the
// modification time as max(mtime, ctime) so that platforms which only
// bump ctime on some operations (permission changes, renames) don't
// look artificially stale to the reconciler.
func entryFromFileInfo(parent, name string, fi fs.FileInfo) Entry {
	mtime := fi.ModTime().UTC()
	if ctime, ok := changeTime(fi); ok && ctime.After(mtime) {
		mtime = ctime
	}
	return Entry{
		ParentPath:   parent,
		Name:         name,
		IsDir:        fi.IsDir(),
		LastModified: mtime.Truncate(time.Second),
		Size:         fi.Size(),
	}
}

func (l *Local) Stat(path string) (Entry, error) {
	fi, err := os.Lstat(l.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrNotExist
		}
		return Entry{}, err
	}
	parent := ""
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		parent = path[:idx]
	}
	return entryFromFileInfo(parent, filepath.Base(path), fi), nil
}

func (l *Local) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(l.abs(path))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return data, err
}

func (l *Local) OpenRead(path string) (io.ReadCloser, error) {
	f, err := os.Open(l.abs(path))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return f, err
}

func (l *Local) Write(path string, data []byte, modTime time.Time) error {
	abs := l.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o777); err != nil {
		return err
	}
	if err := os.WriteFile(abs, data, 0o666); err != nil {
		return err
	}
	if !modTime.IsZero() {
		_ = os.Chtimes(abs, modTime, modTime)
	}
	return nil
}

func (l *Local) DeleteFile(path string) error {
	err := os.Remove(l.abs(path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) MakeDir(path string) error {
	err := os.MkdirAll(l.abs(path), 0o777)
	if err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

func (l *Local) DeleteDir(path string) error {
	err := os.RemoveAll(l.abs(path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) Exists(path string) bool {
	_, err := os.Lstat(l.abs(path))
	return err == nil
}

func (l *Local) IsFile(path string) bool {
	fi, err := os.Lstat(l.abs(path))
	return err == nil && !fi.IsDir()
}

var _ Capability = (*Local)(nil)
var _ Reader = (*Local)(nil)
