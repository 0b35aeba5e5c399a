package cli

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const editDebounce = 120 * time.Millisecond

// editWithLiveSaves runs editor on path and invokes onSave whenever the file
// is saved with changed content. Save errors are reported on streams.Err and
// editing continues; the last one is returned if no save ever succeeded.
func editWithLiveSaves(ctx context.Context, editor string, env []string, streams Streams, path string, onSave func([]byte) error) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty filepath")
	}
	if onSave == nil {
		return fmt.Errorf("save callback is required")
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("invalid editor command %q", editor)
	}

	cmd := exec.CommandContext(ctx, parts[0], append(parts[1:], path)...)
	cmd.Stdin = streams.In
	cmd.Stdout = streams.Out
	cmd.Stderr = streams.Err
	cmd.Env = env

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch edit file: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch edit directory: %w", err)
	}
	base := filepath.Base(path)

	var (
		hasHash      bool
		lastHash     [sha256.Size]byte
		attempted    bool
		applied      bool
		lastApplyErr error
	)

	if initial, err := os.ReadFile(path); err == nil {
		lastHash = sha256.Sum256(initial)
		hasHash = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read edit file: %w", err)
	}

	process := func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			attempted = true
			lastApplyErr = fmt.Errorf("unable to read edited file: %w", err)
			_, _ = fmt.Fprintf(streams.Err, "Warning: %v\n", lastApplyErr)
			return
		}

		sum := sha256.Sum256(raw)
		if hasHash && sum == lastHash {
			return
		}
		lastHash = sum
		hasHash = true
		attempted = true

		if err := onSave(raw); err != nil {
			lastApplyErr = err
			_, _ = fmt.Fprintf(streams.Err, "Warning: %v\n", err)
			return
		}
		applied = true
		lastApplyErr = nil
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("running editor %q: %w", editor, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var (
		pending     bool
		pendingFrom time.Time
	)
	ticker := time.NewTicker(editDebounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if pending && time.Since(pendingFrom) >= editDebounce {
				process()
				pending = false
			}
		case event, ok := <-watcher.Events:
			if !ok {
				continue
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod|fsnotify.Remove) != 0 {
				pending = true
				pendingFrom = time.Now()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				continue
			}
			_, _ = fmt.Fprintf(streams.Err, "Warning: editor file watcher error: %v\n", watchErr)
		case err := <-done:
			process()
			if err != nil {
				return fmt.Errorf("running editor %q: %w", editor, err)
			}
			if attempted && !applied && lastApplyErr != nil {
				return lastApplyErr
			}
			return nil
		case <-ctx.Done():
			err := <-done
			if err != nil {
				return fmt.Errorf("running editor %q: %w", editor, err)
			}
			return ctx.Err()
		}
	}
}
