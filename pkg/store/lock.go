package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	// LockSuffix is appended to the document path for the cross-process
	// writer lock.
	LockSuffix = ".lock"
	// StaleLockAge is how old a lock file must be before it is treated as
	// left behind by a crashed process and taken over.
	StaleLockAge = 2 * time.Minute
)

// errLocked reports that another process holds the writer lock.
var errLocked = errors.New("content is locked by another process")

// acquireFileLock creates path+LockSuffix exclusively and returns a release
// func. It never waits: a live lock held by someone else yields errLocked. A
// lock older than StaleLockAge is removed and acquisition retried once.
func acquireFileLock(fsys FS, path string) (func() error, error) {
	lockPath := path + LockSuffix
	stamp := fmt.Sprintf("%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))

	for attempt := 0; ; attempt++ {
		err := fsys.CreateExclusive(lockPath, []byte(stamp), 0o600)
		if err == nil {
			return func() error {
				if err := fsys.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return NewStorageError("unlock", lockPath, err)
				}
				return nil
			}, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			if mkErr := fsys.MkdirAll(filepath.Dir(lockPath), dirPerm); mkErr != nil {
				return nil, NewStorageError("mkdir", filepath.Dir(lockPath), mkErr)
			}
			if attempt == 0 {
				continue
			}
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, NewStorageError("lock", lockPath, err)
		}
		if attempt > 0 {
			return nil, errLocked
		}

		info, statErr := fsys.Stat(lockPath)
		if statErr != nil || time.Since(info.ModTime()) < StaleLockAge {
			return nil, errLocked
		}
		if rmErr := fsys.Remove(lockPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return nil, NewStorageError("remove stale lock", lockPath, rmErr)
		}
	}
}
