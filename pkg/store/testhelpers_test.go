package store_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/stretchr/testify/require"
)

// faultFS wraps the real filesystem and lets a test intercept writes and
// renames.
type faultFS struct {
	store.OSFS

	mu          sync.Mutex
	onRename    func(oldpath, newpath string) error
	onWriteFile func(name string) error
}

func (f *faultFS) SetRenameHook(h func(oldpath, newpath string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRename = h
}

func (f *faultFS) SetWriteFileHook(h func(name string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onWriteFile = h
}

func (f *faultFS) Rename(oldpath, newpath string) error {
	f.mu.Lock()
	h := f.onRename
	f.mu.Unlock()
	if h != nil {
		if err := h(oldpath, newpath); err != nil {
			return err
		}
	}
	return f.OSFS.Rename(oldpath, newpath)
}

func (f *faultFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f.mu.Lock()
	h := f.onWriteFile
	f.mu.Unlock()
	if h != nil {
		if err := h(name); err != nil {
			return err
		}
	}
	return f.OSFS.WriteFile(name, data, perm)
}

// Fixture bundles common test setup: ctx with a capturing logger, a temp
// data dir, a stepping clock and a store over a fault-injecting filesystem.
type Fixture struct {
	t *testing.T

	ctx   context.Context
	logs  *log.TestHandler
	clock *internal.StepClock
	fs    *faultFS

	Dir   string
	Path  string
	Store *store.Store
}

// FixtureOption modifies the store options before the store is built.
type FixtureOption func(o *store.Options)

func NewFixture(t *testing.T, opts ...FixtureOption) *Fixture {
	t.Helper()

	dir := t.TempDir()
	lg, handler := log.NewTestLogger(t)
	clock := internal.NewStepClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Second)
	fsys := &faultFS{}

	o := store.Options{
		Path:  filepath.Join(dir, "data", "content.json"),
		FS:    fsys,
		Clock: clock,
	}
	for _, opt := range opts {
		opt(&o)
	}
	st, err := store.New(o)
	require.NoError(t, err)

	return &Fixture{
		t:     t,
		ctx:   log.WithLogger(context.Background(), lg),
		logs:  handler,
		clock: clock,
		fs:    fsys,
		Dir:   dir,
		Path:  o.Path,
		Store: st,
	}
}

// ReadRaw returns the document file bytes.
func (f *Fixture) ReadRaw() []byte {
	f.t.Helper()
	b, err := os.ReadFile(f.Path)
	require.NoError(f.t, err)
	return b
}

// WriteRaw replaces the document file bytes, bypassing the store.
func (f *Fixture) WriteRaw(data []byte) {
	f.t.Helper()
	require.NoError(f.t, os.MkdirAll(filepath.Dir(f.Path), 0o755))
	require.NoError(f.t, os.WriteFile(f.Path, data, 0o644))
}

// ReadRawDoc parses the document file as stored on disk.
func (f *Fixture) ReadRawDoc() *document.Document {
	f.t.Helper()
	d, err := document.Parse(f.ReadRaw())
	require.NoError(f.t, err)
	return d
}

// Logged reports whether a log entry with msg was captured.
func (f *Fixture) Logged(msg string) bool {
	return len(log.FindEntries(f.logs, log.WithMessage(msg))) > 0
}

// docWithTitle returns a complete document whose hero title is title.
func docWithTitle(t *testing.T, title string) *document.Document {
	t.Helper()
	d := document.Seed()
	require.NoError(t, d.SetSection(document.SectionHome, map[string]any{
		"hero": map[string]any{"title": title},
	}))
	return d
}

func heroTitle(t *testing.T, d *document.Document) string {
	t.Helper()
	h, err := d.Home()
	require.NoError(t, err)
	return h.Hero.Title
}

// BlockNextRename makes the next rename onto the document wait until release
// is closed, then fail with failWith. A nil failWith lets the rename happen.
// Later renames are not affected.
func (f *Fixture) BlockNextRename(failWith error) (entered, release chan struct{}) {
	entered = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	f.fs.SetRenameHook(func(_, newpath string) error {
		if newpath != f.Path {
			return nil
		}
		var err error
		once.Do(func() {
			close(entered)
			<-release
			err = failWith
		})
		return err
	})
	return entered, release
}
