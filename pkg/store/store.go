package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
)

const (
	// DefaultVersionsDirName is the archive directory created next to the
	// document file when Options.VersionsDir is empty.
	DefaultVersionsDirName = "versions"
	// DefaultJournalName is the history journal created next to the document
	// file when Options.JournalPath is empty.
	DefaultJournalName = "history.jsonl"
)

// Options configures a Store.
type Options struct {
	// Path is the document file. Required.
	Path string
	// VersionsDir holds the snapshots. Defaults to a "versions" directory
	// next to Path.
	VersionsDir string
	// MaxVersions is the retention window. Defaults to DefaultMaxVersions.
	MaxVersions int
	// JournalPath is the history journal. Defaults to history.jsonl next to
	// Path.
	JournalPath string
	// DisableJournal turns the history journal off.
	DisableJournal bool
	// ProcessLock also guards writes with a lock file next to Path, so
	// separate processes sharing the document refuse each other's
	// concurrent writes too.
	ProcessLock bool

	FS    FS
	Clock internal.Clock
}

// WriteOptions carries per-call metadata for Write and RevertTo.
type WriteOptions struct {
	// Actor identifies who made the change. Recorded in logs and the journal.
	Actor string
}

// Store owns the site document file, its snapshot archive and its history
// journal. All methods are safe for concurrent use. At most one write runs at
// a time per Store; a second concurrent writer is refused with a
// ConcurrentWriteError instead of waiting. Reads never block on writes and
// always observe a whole document thanks to AtomicWrite.
type Store struct {
	path        string
	maxVersions int
	processLock bool

	fs      FS
	archive *Archive
	journal *Journal

	// mu is held for the whole of a write: snapshot, persist, prune and
	// journal. Reads only take it opportunistically to persist repairs.
	mu sync.Mutex
}

// New builds a Store from opts. It does not touch the filesystem; call
// Ensure or Read to create the document.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("store: document path is required")
	}
	if opts.FS == nil {
		opts.FS = OSFS{}
	}
	if opts.Clock == nil {
		opts.Clock = internal.RealClock{}
	}
	if opts.MaxVersions <= 0 {
		opts.MaxVersions = DefaultMaxVersions
	}
	dir := filepath.Dir(opts.Path)
	if opts.VersionsDir == "" {
		opts.VersionsDir = filepath.Join(dir, DefaultVersionsDirName)
	}
	if opts.JournalPath == "" {
		opts.JournalPath = filepath.Join(dir, DefaultJournalName)
	}

	s := &Store{
		path:        opts.Path,
		maxVersions: opts.MaxVersions,
		processLock: opts.ProcessLock,
		fs:          opts.FS,
		archive:     NewArchive(opts.VersionsDir, opts.FS, opts.Clock),
	}
	if !opts.DisableJournal {
		s.journal = NewJournal(opts.JournalPath, opts.FS, opts.Clock)
	}
	return s, nil
}

// Path returns the document file path.
func (s *Store) Path() string { return s.path }

// VersionsDir returns the snapshot directory.
func (s *Store) VersionsDir() string { return s.archive.Dir }

// MaxVersions returns the retention window.
func (s *Store) MaxVersions() int { return s.maxVersions }

// Ensure creates the document from the seed when the file does not exist.
// It never overwrites an existing file.
func (s *Store) Ensure(ctx context.Context) error {
	exists, err := s.exists()
	if err != nil || exists {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx)
}

// ensureLocked creates the document from the seed unless it already exists.
// Caller must hold s.mu.
func (s *Store) ensureLocked(ctx context.Context) error {
	// Another caller may have created it while we waited.
	if exists, err := s.exists(); err != nil || exists {
		return err
	}
	if err := AtomicWrite(s.fs, s.path, document.SeedBytes()); err != nil {
		return err
	}
	log.FromContext(ctx).Info("content file created from seed", "path", s.path)
	s.record(ctx, JournalEntry{Action: ActionCreate})
	return nil
}

func (s *Store) exists() (bool, error) {
	_, err := s.fs.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, NewStorageError("stat", s.path, err)
}

// Read returns the current document, creating it from the seed if needed.
//
// A file that is not a JSON object is copied into the archive as
// corrupt-<timestamp>.json and replaced by the seed, which is returned. A
// document with missing or malformed required sections is repaired from the
// seed and the repaired version is persisted, so the repair happens once.
// Persisting only happens when no write is in flight; otherwise the repaired
// document is returned and the next read tries again. Read never waits on a
// write: a missing file seen during a write yields the seed without creating
// the file.
func (s *Store) Read(ctx context.Context) (*document.Document, error) {
	lg := log.FromContext(ctx)

	data, err := s.fs.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if !s.mu.TryLock() {
			lg.Debug("write in progress, serving seed for missing content", "path", s.path)
			return document.Seed(), nil
		}
		err = s.ensureLocked(ctx)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		data, err = s.fs.ReadFile(s.path)
	}
	if err != nil {
		return nil, NewStorageError("read", s.path, err)
	}

	doc, err := document.Parse(data)
	if err != nil {
		lg.Error("content file is corrupt, resetting to seed", "path", s.path, "err", err)
		s.resetCorrupt(ctx, data)
		return document.Seed(), nil
	}

	res := document.Repair(doc)
	if res.Modified {
		lg.Warn("content repaired from seed",
			"path", s.path,
			"missing", res.Missing,
			"malformed", res.Malformed)
		s.persistRepair(ctx, data, res)
	}
	return res.Document, nil
}

// resetCorrupt preserves the unparseable bytes and writes the seed, unless a
// write holds the store or the file changed since it was read.
func (s *Store) resetCorrupt(ctx context.Context, seen []byte) {
	lg := log.FromContext(ctx)
	if !s.mu.TryLock() {
		lg.Debug("write in progress, skipping corrupt reset", "path", s.path)
		return
	}
	defer s.mu.Unlock()
	release, err := s.lockProcess(ctx, "")
	if err != nil {
		return
	}
	defer release()

	if !s.unchanged(seen) {
		return
	}
	preserved, err := s.archive.Preserve(seen)
	if err != nil {
		lg.Error("unable to preserve corrupt content", "path", s.path, "err", err)
	} else {
		lg.Warn("corrupt content preserved", "path", s.path, "copy", preserved)
	}
	if err := AtomicWrite(s.fs, s.path, document.SeedBytes()); err != nil {
		lg.Error("unable to reset content to seed", "path", s.path, "err", err)
		return
	}
	s.record(ctx, JournalEntry{Action: ActionReset, Snapshot: preserved, Detail: "corrupt document"})
}

// persistRepair writes a repaired document back, unless a write holds the
// store or the file changed since it was read. Failures are logged; the
// caller still gets the repaired document.
func (s *Store) persistRepair(ctx context.Context, seen []byte, res document.RepairResult) {
	lg := log.FromContext(ctx)
	if !s.mu.TryLock() {
		lg.Debug("write in progress, repair not persisted", "path", s.path)
		return
	}
	defer s.mu.Unlock()
	release, err := s.lockProcess(ctx, "")
	if err != nil {
		return
	}
	defer release()

	if !s.unchanged(seen) {
		return
	}
	data, err := res.Document.Bytes()
	if err != nil {
		lg.Error("unable to encode repaired content", "err", err)
		return
	}
	if err := AtomicWrite(s.fs, s.path, data); err != nil {
		lg.Error("unable to persist repaired content", "path", s.path, "err", err)
		return
	}
	s.record(ctx, JournalEntry{
		Action: ActionRepair,
		Detail: fmt.Sprintf("sections: %v", res.Sections()),
	})
}

// lockProcess takes the cross-process lock when enabled. Caller must hold
// s.mu. A lock held elsewhere is reported as a ConcurrentWriteError.
func (s *Store) lockProcess(ctx context.Context, actor string) (func(), error) {
	if !s.processLock {
		return func() {}, nil
	}
	lg := log.FromContext(ctx)
	release, err := acquireFileLock(s.fs, s.path)
	if errors.Is(err, errLocked) {
		lg.Warn("write refused, content locked by another process", "actor", actor, "lock", s.path+LockSuffix)
		return nil, &ConcurrentWriteError{Actor: actor}
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			lg.Warn("unable to release lock", "err", err)
		}
	}, nil
}

func (s *Store) unchanged(seen []byte) bool {
	current, err := s.fs.ReadFile(s.path)
	return err == nil && bytes.Equal(current, seen)
}

// Write repairs doc, snapshots the current file, replaces the document and
// prunes the archive. It fails with a ConcurrentWriteError when another write
// is in flight. Snapshot and prune failures are logged, not returned.
//
// When the new document cannot be persisted the original error is returned.
// If the file on disk is then missing or unparseable it is reset to the seed;
// an intact previous document is kept as is.
func (s *Store) Write(ctx context.Context, doc *document.Document, opts WriteOptions) error {
	if !s.mu.TryLock() {
		log.FromContext(ctx).Warn("write refused, another write in progress", "actor", opts.Actor)
		return &ConcurrentWriteError{Actor: opts.Actor}
	}
	defer s.mu.Unlock()
	release, err := s.lockProcess(ctx, opts.Actor)
	if err != nil {
		return err
	}
	defer release()
	return s.write(ctx, doc, opts, JournalEntry{Action: ActionWrite})
}

// write does the work of Write. Caller must hold s.mu.
func (s *Store) write(ctx context.Context, doc *document.Document, opts WriteOptions, entry JournalEntry) error {
	lg := log.FromContext(ctx).With("actor", opts.Actor)
	if doc == nil {
		return fmt.Errorf("write: nil document")
	}

	res := document.Repair(doc)
	if res.Modified {
		lg.Warn("incoming content repaired from seed",
			"missing", res.Missing,
			"malformed", res.Malformed)
	}
	data, err := res.Document.Bytes()
	if err != nil {
		return fmt.Errorf("write: encode document: %w", err)
	}

	snapshot := s.snapshotCurrent(ctx, lg)

	if err := AtomicWrite(s.fs, s.path, data); err != nil {
		lg.Error("unable to persist content", "path", s.path, "err", err)
		s.recover(ctx, lg)
		return err
	}

	s.prune(lg)

	entry.Actor = opts.Actor
	entry.Snapshot = snapshot
	s.record(ctx, entry)
	lg.Info("content written", "path", s.path, "snapshot", snapshot, "action", entry.Action)
	return nil
}

// snapshotCurrent archives the on-disk document. Returns "" when there is
// nothing to archive or archiving failed.
func (s *Store) snapshotCurrent(ctx context.Context, lg *slog.Logger) string {
	current, err := s.fs.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			lg.Warn("unable to read content for snapshot", "path", s.path, "err", err)
		}
		return ""
	}
	name, err := s.archive.Snapshot(current)
	if err != nil {
		lg.Warn("snapshot failed", "dir", s.archive.Dir, "err", err)
		return ""
	}
	lg.Debug("snapshot taken", "snapshot", name)
	return name
}

func (s *Store) prune(lg *slog.Logger) {
	removed, err := s.archive.Prune(s.maxVersions)
	if err != nil {
		lg.Warn("prune failed", "dir", s.archive.Dir, "err", err)
	}
	if len(removed) > 0 {
		lg.Debug("pruned snapshots", "removed", removed)
	}
}

// recover is the last resort after a failed persist: when the document file
// is missing or no longer parses, it is reset to the seed so the site keeps
// serving something valid. An intact file is left alone.
func (s *Store) recover(ctx context.Context, lg *slog.Logger) {
	preserved := ""
	current, err := s.fs.ReadFile(s.path)
	if err == nil {
		if _, perr := document.Parse(current); perr == nil {
			return
		}
		if preserved, err = s.archive.Preserve(current); err != nil {
			lg.Error("unable to preserve corrupt content", "path", s.path, "err", err)
		}
	}
	if err := AtomicWrite(s.fs, s.path, document.SeedBytes()); err != nil {
		lg.Error("recovery to seed failed", "path", s.path, "err", err)
		return
	}
	lg.Warn("content reset to seed after failed write", "path", s.path)
	s.record(ctx, JournalEntry{Action: ActionReset, Snapshot: preserved, Detail: "failed write"})
}

// ListVersions returns the snapshots, newest first. It never fails: listing
// errors are logged and yield an empty list.
func (s *Store) ListVersions(ctx context.Context) []Version {
	versions, err := s.archive.List()
	if err != nil {
		log.FromContext(ctx).Warn("unable to list versions", "dir", s.archive.Dir, "err", err)
		return []Version{}
	}
	return versions
}

// ReadVersion returns the parsed content of a snapshot without restoring it.
func (s *Store) ReadVersion(ctx context.Context, filename string) (*document.Document, error) {
	doc, _, err := s.loadVersion(filename)
	return doc, err
}

func (s *Store) loadVersion(filename string) (*document.Document, []byte, error) {
	data, err := s.archive.Read(filename)
	if err != nil {
		return nil, nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, nil, &InvalidVersionError{Filename: filename, Cause: err}
	}
	if err := document.Validate(doc); err != nil {
		return nil, nil, &InvalidVersionError{Filename: filename, Cause: err}
	}
	return doc, data, nil
}

// RevertTo restores the named snapshot. The current document is archived as a
// content-before-revert snapshot first, then the snapshot is written like any
// other document. Snapshots that do not parse or lack required sections are
// rejected with an InvalidVersionError and leave the document untouched.
func (s *Store) RevertTo(ctx context.Context, filename string, opts WriteOptions) error {
	lg := log.FromContext(ctx).With("actor", opts.Actor, "version", filename)
	if !s.mu.TryLock() {
		lg.Warn("revert refused, another write in progress")
		return &ConcurrentWriteError{Actor: opts.Actor}
	}
	defer s.mu.Unlock()
	release, err := s.lockProcess(ctx, opts.Actor)
	if err != nil {
		return err
	}
	defer release()

	doc, _, err := s.loadVersion(filename)
	if err != nil {
		lg.Warn("revert rejected", "err", err)
		return err
	}

	if current, err := s.fs.ReadFile(s.path); err == nil {
		if name, err := s.archive.SnapshotBeforeRevert(current); err != nil {
			lg.Warn("pre-revert snapshot failed", "err", err)
		} else {
			lg.Debug("pre-revert snapshot taken", "snapshot", name)
		}
	}

	return s.write(ctx, doc, opts, JournalEntry{Action: ActionRevert, Target: filename})
}

// History returns up to limit journal entries, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]JournalEntry, error) {
	if s.journal == nil {
		return []JournalEntry{}, nil
	}
	return s.journal.Entries(limit)
}

func (s *Store) record(ctx context.Context, e JournalEntry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Append(e); err != nil {
		log.FromContext(ctx).Warn("unable to append history", "path", s.journal.Path, "err", err)
	}
}
