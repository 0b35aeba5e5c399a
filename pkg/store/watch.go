package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/log"
)

// WatchDebounce is how long the document file must stay quiet before a change
// is delivered.
const WatchDebounce = 120 * time.Millisecond

// Watch calls onChange with the freshly read document every time the
// document file changes on disk, whoever changed it. Bursts of events are
// debounced and identical content is delivered once. Watch blocks until ctx
// is done and then returns ctx.Err().
func (s *Store) Watch(ctx context.Context, onChange func(*document.Document)) error {
	if onChange == nil {
		return fmt.Errorf("watch: change callback is required")
	}
	lg := log.FromContext(ctx)

	if err := s.Ensure(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch content file: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Watch the directory: atomic writes replace the file, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch content directory: %w", err)
	}
	base := filepath.Base(s.path)

	var (
		hasHash  bool
		lastHash [sha256.Size]byte
	)
	if initial, err := s.fs.ReadFile(s.path); err == nil {
		lastHash = sha256.Sum256(initial)
		hasHash = true
	}

	process := func() {
		raw, err := s.fs.ReadFile(s.path)
		if err != nil {
			return
		}
		sum := sha256.Sum256(raw)
		if hasHash && sum == lastHash {
			return
		}
		lastHash = sum
		hasHash = true

		doc, err := s.Read(ctx)
		if err != nil {
			lg.Warn("unable to read changed content", "path", s.path, "err", err)
			return
		}
		// Read may have healed the file; its rewrite is not a new change.
		if healed, err := s.fs.ReadFile(s.path); err == nil {
			lastHash = sha256.Sum256(healed)
		}
		onChange(doc)
	}

	var (
		pending     bool
		pendingFrom time.Time
	)
	ticker := time.NewTicker(WatchDebounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pending && time.Since(pendingFrom) >= WatchDebounce {
				pending = false
				process()
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending = true
				pendingFrom = time.Now()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			lg.Warn("content watcher error", "err", watchErr)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
