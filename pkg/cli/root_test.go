package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesSeed(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)

	out := sb.MustRun("", "init")
	require.Equal(t, sb.ContentPath, strings.TrimSpace(out))
	require.True(t, sb.Content().Equal(document.Seed()))

	// Running again leaves the file alone.
	require.NoError(t, os.WriteFile(sb.ContentPath, []byte(titled(t, "Mine")), 0o644))
	sb.MustRun("", "init")
	require.Equal(t, "Mine", heroTitle(t, sb.Content()))
}

func TestCat(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)

	out := sb.MustRun("", "cat")
	d, err := document.Parse([]byte(out))
	require.NoError(t, err)
	require.True(t, d.Equal(document.Seed()))

	out = sb.MustRun("", "cat", "--section", "nav")
	var nav document.Nav
	require.NoError(t, json.Unmarshal([]byte(out), &nav))
	require.NotEmpty(t, nav.Items)

	res := sb.Run("", "cat", "--section", "nope")
	require.Error(t, res.Err)
	require.Equal(t, 1, res.Code)
	require.Contains(t, res.Stderr, `section "nope" not found`)
}

func TestWrite_FromFileAndStdin(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)

	src := filepath.Join(sb.Dir, "next.json")
	require.NoError(t, os.WriteFile(src, []byte(titled(t, "From file")), 0o644))
	sb.MustRun("", "write", src)
	require.Equal(t, "From file", heroTitle(t, sb.Content()))

	sb.MustRun(titled(t, "From stdin"), "write", "-", "--actor", "ci")
	require.Equal(t, "From stdin", heroTitle(t, sb.Content()))
	require.NotEmpty(t, log.FindEntries(sb.Logs, log.WithMessage("content written")))

	out := sb.MustRun("", "history", "--json")
	var entries []store.JournalEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "ci", entries[0].Actor)
	require.Equal(t, "testuser", entries[1].Actor)
}

func TestWrite_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	res := sb.Run(`{"home": `, "write")
	require.Error(t, res.Err)
	require.True(t, sb.Content().Equal(document.Seed()))
}

func TestVersionsShowRevert(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)

	sb.MustRun("", "init")
	sb.MustRun(titled(t, "A"), "write")
	sb.MustRun(titled(t, "B"), "write")

	out := sb.MustRun("", "versions", "--json")
	var versions []store.Version
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 2)

	table := sb.MustRun("", "versions")
	require.Contains(t, table, versions[0].Filename)

	shown := sb.MustRun("", "show", versions[0].Filename)
	d, err := document.Parse([]byte(shown))
	require.NoError(t, err)
	require.Equal(t, "A", heroTitle(t, d))

	out = sb.MustRun("", "revert", versions[0].Filename)
	require.Contains(t, out, versions[0].Filename)
	require.Equal(t, "A", heroTitle(t, sb.Content()))

	out = sb.MustRun("", "versions", "--json")
	versions = nil
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	found := false
	for _, v := range versions {
		found = found || v.BeforeRevert
	}
	require.True(t, found, "revert keeps the replaced content")

	hist := sb.MustRun("", "history", "-n", "1")
	require.Contains(t, hist, "revert")
}

func TestRevert_UnknownVersion(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	res := sb.Run("", "revert", "content-19990101T000000Z.json")
	require.Error(t, res.Err)
	require.True(t, store.IsVersionNotFound(res.Err))
	require.Contains(t, res.Stderr, "sitedoc versions")
}

func TestRetentionFromConfig(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	for _, title := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		sb.MustRun(titled(t, title), "write")
	}
	out := sb.MustRun("", "versions", "--json")
	var versions []store.Version
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 5)
}

func TestContentFlagOverridesConfig(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)
	other := filepath.Join(sb.Dir, "other", "content.json")

	sb.MustRun("", "--content", other, "init")
	require.FileExists(t, other)
	require.NoFileExists(t, sb.ContentPath)
}

func TestEdit_AppliesSaves(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("editor script requires a POSIX shell")
	}
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	replacement := filepath.Join(sb.Dir, "edited.json")
	require.NoError(t, os.WriteFile(replacement, []byte(titled(t, "Edited")), 0o644))
	script := filepath.Join(sb.Dir, "fake-editor.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncp '"+replacement+"' \"$1\"\n"), 0o755))
	sb.Env["EDITOR"] = script

	out := sb.MustRun("", "edit")
	require.Contains(t, out, "applied 1 save(s)")
	require.Equal(t, "Edited", heroTitle(t, sb.Content()))
}

func TestEdit_NoChanges(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("editor script requires a POSIX shell")
	}
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	sb.Env["VISUAL"] = "true"
	out := sb.MustRun("", "edit")
	require.Contains(t, out, "no changes")
}

func TestWrite_RefusedWhileLocked(t *testing.T) {
	t.Parallel()
	sb := NewSandbox(t)
	sb.MustRun("", "init")

	lock := sb.ContentPath + store.LockSuffix
	require.NoError(t, os.WriteFile(lock, []byte("1 serve\n"), 0o600))

	res := sb.Run(titled(t, "Blocked"), "write")
	require.Error(t, res.Err)
	require.True(t, store.IsConcurrentWrite(res.Err))
	require.Contains(t, res.Stderr, "another write is in progress")
	require.True(t, sb.Content().Equal(document.Seed()))

	require.NoError(t, os.Remove(lock))
	sb.MustRun(titled(t, "Unblocked"), "write")
	require.Equal(t, "Unblocked", heroTitle(t, sb.Content()))
}
