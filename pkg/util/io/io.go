package io

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

func TryGetSize(r io.Reader) (int64, error) {
	switch f := r.(type) {
	case *bytes.Reader:
		return int64(f.Len()), nil
	case *os.File:
		filestat, err := f.Stat()
		if err != nil {
			return 0, err
		}
		return filestat.Size(), nil
	}

	return 0, errors.Errorf("unsupported type of io.Reader: %T", r)
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers never observe a partially written file. Parent directories are
// created as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "atomic write mkdir")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "atomic write create temp")
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return errors.Wrap(err, "atomic write")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(err, "atomic write sync")
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return errors.Wrap(err, "atomic write chmod")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "atomic write close")
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "atomic write rename")
	}

	return nil
}
