package store

import (
	"io/fs"
	"path/filepath"
)

const (
	// TempSuffix is appended to a target path for the intermediate file of an
	// atomic write.
	TempSuffix = ".tmp"

	filePerm fs.FileMode = 0o644
	dirPerm  fs.FileMode = 0o755
)

// AtomicWrite writes data to path+TempSuffix and renames it onto path. On the
// same filesystem the rename is atomic: a reader of path sees either the old
// or the new content, never a partial write. The temp path is fixed, so
// callers must not run two AtomicWrites for the same path concurrently.
func AtomicWrite(fsys FS, path string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return NewStorageError("mkdir", filepath.Dir(path), err)
	}
	tmp := path + TempSuffix
	if err := fsys.WriteFile(tmp, data, filePerm); err != nil {
		_ = fsys.Remove(tmp)
		return NewStorageError("write", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return NewStorageError("rename", path, err)
	}
	return nil
}
