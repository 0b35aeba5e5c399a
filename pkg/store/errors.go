package store

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors used for errors.Is checks. The typed errors below unwrap to
// (or match) these.
var (
	ErrNotExist = os.ErrNotExist

	// ErrStorageUnavailable marks filesystem failures the store cannot
	// recover from locally (permissions, disk full, missing volume).
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConcurrentWrite is returned when a write is attempted while another
	// write holds the store.
	ErrConcurrentWrite = errors.New("another write is in progress")

	// ErrVersionNotFound is returned when a named snapshot does not exist.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidVersion is returned when a snapshot cannot be parsed or lacks
	// required sections.
	ErrInvalidVersion = errors.New("invalid version")
)

// StorageError wraps a filesystem failure with the operation and path that
// produced it.
type StorageError struct {
	Op    string // e.g. "read", "rename", "mkdir"
	Path  string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("fs %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// NewStorageError constructs a *StorageError. A nil cause yields nil.
func NewStorageError(op, path string, cause error) error {
	if cause == nil {
		return nil
	}
	var se *StorageError
	if errors.As(cause, &se) {
		return cause
	}
	return &StorageError{Op: op, Path: path, Cause: cause}
}

// ConcurrentWriteError carries the actor whose write was refused.
type ConcurrentWriteError struct {
	Actor string
}

func (e *ConcurrentWriteError) Error() string {
	if e.Actor != "" {
		return fmt.Sprintf("write by %q refused: %v", e.Actor, ErrConcurrentWrite)
	}
	return ErrConcurrentWrite.Error()
}

func (e *ConcurrentWriteError) Unwrap() error { return ErrConcurrentWrite }

// VersionNotFoundError names the snapshot that could not be found.
type VersionNotFoundError struct {
	Filename string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version not found: %q", e.Filename)
}

func (e *VersionNotFoundError) Unwrap() error { return ErrVersionNotFound }

// InvalidVersionError names a snapshot that exists but cannot be used.
type InvalidVersionError struct {
	Filename string
	Cause    error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Filename, e.Cause)
}

func (e *InvalidVersionError) Unwrap() []error { return []error{ErrInvalidVersion, e.Cause} }

// IsConcurrentWrite reports whether err is (or wraps) a refused concurrent write.
func IsConcurrentWrite(err error) bool {
	return errors.Is(err, ErrConcurrentWrite)
}

// IsVersionNotFound reports whether err is (or wraps) a missing snapshot.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsInvalidVersion reports whether err is (or wraps) an unusable snapshot.
func IsInvalidVersion(err error) bool {
	return errors.Is(err, ErrInvalidVersion)
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
