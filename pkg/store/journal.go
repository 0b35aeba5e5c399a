package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jlrickert/sitedoc/pkg/internal"
)

// Journal actions.
const (
	ActionCreate = "create" // file created from the seed
	ActionWrite  = "write"
	ActionRevert = "revert"
	ActionRepair = "repair" // healed document persisted by a read
	ActionReset  = "reset"  // corrupt or lost document replaced by the seed
)

// JournalEntry is one line of the history journal.
type JournalEntry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	Actor    string    `json:"actor,omitempty"`
	Snapshot string    `json:"snapshot,omitempty"` // snapshot taken before the change
	Target   string    `json:"target,omitempty"`   // snapshot reverted to
	Detail   string    `json:"detail,omitempty"`
}

// Journal is an append-only JSON-lines log of every change to the document.
type Journal struct {
	Path  string
	fs    FS
	clock internal.Clock
}

// NewJournal returns a journal stored at path.
func NewJournal(path string, fsys FS, clock internal.Clock) *Journal {
	if fsys == nil {
		fsys = OSFS{}
	}
	if clock == nil {
		clock = internal.RealClock{}
	}
	return &Journal{Path: path, fs: fsys, clock: clock}
}

// Append stamps e with a fresh id and the current time and appends it.
func (j *Journal) Append(e JournalEntry) (JournalEntry, error) {
	e.ID = uuid.NewString()
	e.Time = j.clock.Now().UTC()
	line, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	line = append(line, '\n')
	if err := j.fs.MkdirAll(filepath.Dir(j.Path), dirPerm); err != nil {
		return e, NewStorageError("mkdir", filepath.Dir(j.Path), err)
	}
	if err := j.fs.AppendFile(j.Path, line, filePerm); err != nil {
		return e, NewStorageError("append", j.Path, err)
	}
	return e, nil
}

// Entries returns up to limit entries, newest first. limit <= 0 returns all.
// Lines that do not decode are skipped; a missing journal is empty.
func (j *Journal) Entries(limit int) ([]JournalEntry, error) {
	data, err := j.fs.ReadFile(j.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []JournalEntry{}, nil
		}
		return nil, NewStorageError("read", j.Path, err)
	}

	out := []JournalEntry{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
