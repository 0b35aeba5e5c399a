package store

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jlrickert/sitedoc/pkg/internal"
)

const (
	// SnapshotPrefix starts every regular snapshot filename.
	SnapshotPrefix = "content-"
	// BeforeRevertPrefix starts the safety snapshot taken before a revert.
	BeforeRevertPrefix = "content-before-revert-"
	// CorruptPrefix starts the copy of an unparseable document kept before
	// the store resets it to the seed.
	CorruptPrefix = "corrupt-"
	// SnapshotExt ends every archive filename.
	SnapshotExt = ".json"
	// TimestampLayout is the sortable, second-resolution UTC stamp embedded in
	// archive filenames.
	TimestampLayout = "20060102T150405Z"

	// DefaultMaxVersions is the retention window used when none is configured.
	DefaultMaxVersions = 15
)

// Version describes one snapshot in the archive.
type Version struct {
	Filename     string    `json:"filename"`
	CreatedAt    time.Time `json:"createdAt"`
	BeforeRevert bool      `json:"beforeRevert,omitempty"`
	Size         int64     `json:"size"`
}

// Archive is a directory of immutable, timestamp-named document snapshots.
type Archive struct {
	Dir   string
	fs    FS
	clock internal.Clock
}

// NewArchive returns an archive rooted at dir. The directory is created on the
// first snapshot.
func NewArchive(dir string, fsys FS, clock internal.Clock) *Archive {
	if fsys == nil {
		fsys = OSFS{}
	}
	if clock == nil {
		clock = internal.RealClock{}
	}
	return &Archive{Dir: dir, fs: fsys, clock: clock}
}

// Snapshot stores data verbatim as content-<timestamp>.json and returns the
// filename. A snapshot taken in the same second as a previous one replaces it.
func (a *Archive) Snapshot(data []byte) (string, error) {
	return a.put(SnapshotPrefix, data)
}

// SnapshotBeforeRevert stores data as content-before-revert-<timestamp>.json.
func (a *Archive) SnapshotBeforeRevert(data []byte) (string, error) {
	return a.put(BeforeRevertPrefix, data)
}

// Preserve keeps a copy of an unparseable document as corrupt-<timestamp>.json.
// Preserved files are neither listed nor pruned.
func (a *Archive) Preserve(data []byte) (string, error) {
	return a.put(CorruptPrefix, data)
}

func (a *Archive) put(prefix string, data []byte) (string, error) {
	now := a.clock.Now().UTC().Truncate(time.Second)
	name := prefix + now.Format(TimestampLayout) + SnapshotExt
	path := filepath.Join(a.Dir, name)
	if err := AtomicWrite(a.fs, path, data); err != nil {
		return "", err
	}
	// Keep mtime in line with the embedded stamp; ListVersions orders by it.
	_ = a.fs.Chtimes(path, now, now)
	return name, nil
}

// ParseSnapshotName extracts the timestamp from a snapshot filename and
// reports whether it is a pre-revert snapshot. ok is false for anything that
// is not a snapshot (including corrupt-document copies).
func ParseSnapshotName(name string) (ts time.Time, beforeRevert bool, ok bool) {
	if filepath.Base(name) != name || !strings.HasSuffix(name, SnapshotExt) {
		return time.Time{}, false, false
	}
	stem := strings.TrimSuffix(name, SnapshotExt)
	switch {
	case strings.HasPrefix(stem, BeforeRevertPrefix):
		stem = strings.TrimPrefix(stem, BeforeRevertPrefix)
		beforeRevert = true
	case strings.HasPrefix(stem, SnapshotPrefix):
		stem = strings.TrimPrefix(stem, SnapshotPrefix)
	default:
		return time.Time{}, false, false
	}
	ts, err := time.Parse(TimestampLayout, stem)
	if err != nil {
		return time.Time{}, false, false
	}
	return ts, beforeRevert, true
}

type archiveEntry struct {
	Version
	stamp time.Time
}

func (a *Archive) entries() ([]archiveEntry, error) {
	dirents, err := a.fs.ReadDir(a.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, NewStorageError("readdir", a.Dir, err)
	}
	out := make([]archiveEntry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		ts, before, ok := ParseSnapshotName(de.Name())
		if !ok {
			continue
		}
		e := archiveEntry{
			Version: Version{Filename: de.Name(), CreatedAt: ts, BeforeRevert: before},
			stamp:   ts,
		}
		if info, err := de.Info(); err == nil {
			e.CreatedAt = info.ModTime()
			e.Size = info.Size()
		}
		out = append(out, e)
	}
	return out, nil
}

// List returns every snapshot, newest first by modification time. A missing
// archive directory yields an empty list.
func (a *Archive) List() ([]Version, error) {
	entries, err := a.entries()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(x, y archiveEntry) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		if c := y.stamp.Compare(x.stamp); c != 0 {
			return c
		}
		return strings.Compare(y.Filename, x.Filename)
	})
	out := make([]Version, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Version)
	}
	return out, nil
}

// Prune keeps the maxKeep newest snapshots by embedded timestamp and deletes
// the rest. It returns the deleted filenames. Deletion stops at the first
// failure. maxKeep <= 0 uses DefaultMaxVersions.
func (a *Archive) Prune(maxKeep int) ([]string, error) {
	if maxKeep <= 0 {
		maxKeep = DefaultMaxVersions
	}
	entries, err := a.entries()
	if err != nil {
		return nil, err
	}
	if len(entries) <= maxKeep {
		return nil, nil
	}
	slices.SortStableFunc(entries, func(x, y archiveEntry) int {
		if c := y.stamp.Compare(x.stamp); c != 0 {
			return c
		}
		return strings.Compare(y.Filename, x.Filename)
	})
	var removed []string
	for _, e := range entries[maxKeep:] {
		path := filepath.Join(a.Dir, e.Filename)
		if err := a.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, NewStorageError("remove", path, err)
		}
		removed = append(removed, e.Filename)
	}
	return removed, nil
}

// Read returns the bytes of a snapshot. Names that are not snapshot
// filenames, including anything with a path component, are reported as not
// found.
func (a *Archive) Read(filename string) ([]byte, error) {
	if _, _, ok := ParseSnapshotName(filename); !ok {
		return nil, &VersionNotFoundError{Filename: filename}
	}
	path := filepath.Join(a.Dir, filename)
	data, err := a.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &VersionNotFoundError{Filename: filename}
		}
		return nil, NewStorageError("read", path, err)
	}
	return data, nil
}
