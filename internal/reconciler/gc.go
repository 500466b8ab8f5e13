package reconciler

import (
	"github.com/dvsync/davsync/internal/shadow"
	"github.com/dvsync/davsync/internal/vfs"
	"github.com/pkg/errors"
)

// gcShadow drops shadow entries whose local path no longer exists, so
// that after a clean pair sync every shadow entry corresponds to a path
// present locally. Only called when a pair finished with zero path
// errors, so a path absent here is genuinely gone rather than merely
// unlistable this run.
func gcShadow(localFS vfs.Capability, sh *shadow.Store) error {
	paths, err := sh.AllPaths()
	if err != nil {
		return errors.Wrap(err, "list shadow paths")
	}
	for _, p := range paths {
		if localFS.Exists(p) {
			continue
		}
		if err := sh.DeleteFile(p); err != nil {
			return errors.Wrapf(err, "drop stale shadow entry %s", p)
		}
	}
	return nil
}
