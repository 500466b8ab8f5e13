package reconciler

import (
	"io"

	"github.com/dvsync/davsync/internal/vfs"
	"github.com/pkg/errors"
)

// statEntry stats path on cap, translating vfs.ErrNotExist into
// exists=false rather than an error. Any other failure propagates.
func statEntry(cap vfs.Capability, path string) (vfs.Entry, bool, error) {
	e, err := cap.Stat(path)
	if err == nil {
		return e, true, nil
	}
	if errors.Is(err, vfs.ErrNotExist) {
		return vfs.Entry{}, false, nil
	}
	return vfs.Entry{}, false, err
}

// copyFile copies srcPath from src to dstPath on dst, reading through
// OpenRead when src supports it (WebDAV and Local both do) and through
// Read otherwise. Either way the whole file is held in memory before
// it is written.
func copyFile(src, dst vfs.Capability, srcPath, dstPath string, modTime vfs.Entry) error {
	var data []byte
	var err error
	if r, ok := src.(vfs.Reader); ok {
		rc, openErr := r.OpenRead(srcPath)
		if openErr != nil {
			return errors.Wrapf(openErr, "open %s for read", srcPath)
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
	} else {
		data, err = src.Read(srcPath)
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", srcPath)
	}
	if err := dst.Write(dstPath, data, modTime.LastModified); err != nil {
		return errors.Wrapf(err, "write %s", dstPath)
	}
	return nil
}
