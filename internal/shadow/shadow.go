// Package shadow persists the baseline state the reconciler uses to
// decide which side of a pair changed: a per-pair map from local path
// to the last known (is-dir, size, stored-time) tuple.
package shadow

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dvsync/davsync/internal/pathutil"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("paths")

// Entry is the baseline snapshot recorded for one local path.
type Entry struct {
	Path       string
	IsDir      bool
	Size       int64
	StoredTime time.Time
}

// storedTimeSlack absorbs sub-second mtime rounding across
// heterogeneous filesystems: the stored time of a write recorded "now"
// must still be later than an mtime read moments afterwards, so the
// write never looks like a newer change on the next pass.
const storedTimeSlack = 10 * time.Second

// Store is the persisted baseline for one (remote-root, local-root)
// pair. All mutating operations dump their result to disk immediately;
// a crash mid-write leaves the previous, still-valid version in place,
// which is safe because reconciliation is idempotent against its own
// shadow.
type Store struct {
	mu   sync.Mutex
	db   *bolt.DB
	path string
}

// FileName returns the SHA-224 hex digest of localRoot‖remoteRoot, the
// name under which this pair's shadow file lives on disk.
func FileName(remoteRoot, localRoot string) string {
	h := sha256.New224()
	h.Write([]byte(localRoot))
	h.Write([]byte(remoteRoot))
	return hex.EncodeToString(h.Sum(nil))
}

// Open lazily creates (on first sync of a pair) or reopens the shadow
// store for remoteRoot/localRoot under settingsDir/state. A corrupt
// database is treated as empty: it's removed and recreated rather than
// surfaced as a fatal error, forcing a full initial sync on next run.
func Open(settingsDir, remoteRoot, localRoot string) (*Store, error) {
	stateDir := filepath.Join(settingsDir, "state")
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create shadow state directory")
	}
	path := filepath.Join(stateDir, FileName(remoteRoot, localRoot))

	db, err := openOrRecreate(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func openOrRecreate(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		// corruption or an otherwise unopenable file: recreate empty.
		_ = os.Remove(path)
		db, err = bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
		if err != nil {
			return nil, errors.Wrap(err, "open shadow store")
		}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize shadow bucket")
	}
	return db, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the recorded entry for path, and whether one exists.
func (s *Store) Get(path string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var e Entry
	var found bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(path))
		if v == nil {
			return nil
		}
		if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&e); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return e, found
}

// WriteFile records or updates the entry for a file at path.
func (s *Store) WriteFile(path string, size int64) error {
	return s.put(Entry{
		Path:       path,
		IsDir:      false,
		Size:       size,
		StoredTime: time.Now().Add(storedTimeSlack),
	})
}

// CreateDir records or updates the entry for a directory at path.
func (s *Store) CreateDir(path string) error {
	return s.put(Entry{
		Path:       path,
		IsDir:      true,
		StoredTime: time.Now().Add(storedTimeSlack),
	})
}

func (s *Store) put(e Entry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return errors.Wrap(err, "encode shadow entry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(e.Path), buf.Bytes())
	})
}

// DeleteFile removes the entry for path, if one exists.
func (s *Store) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(path))
	})
}

// DeleteDir removes the entry for path and every entry beneath it.
func (s *Store) DeleteDir(dirPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		var toDelete [][]byte
		err := b.ForEach(func(k, v []byte) error {
			key := string(k)
			if key == dirPath || pathutil.IsSubpath(dirPath, key) {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllPaths returns every path currently recorded in the store, used by
// the reconciler's post-sync shadow garbage collection.
func (s *Store) AllPaths() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	return paths, err
}
