package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlrickert/sitedoc/pkg/cli"
	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/stretchr/testify/require"
)

// Sandbox is an isolated sitedoc setup: a temp data dir, a config file
// pointing at it and a fake environment.
type Sandbox struct {
	t *testing.T

	Dir         string
	ContentPath string
	ConfigPath  string
	Env         map[string]string
	Logs        *log.TestHandler

	clock *internal.StepClock
}

func NewSandbox(t *testing.T) *Sandbox {
	t.Helper()
	dir := t.TempDir()
	content := filepath.Join(dir, "site", "content.json")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("contentPath: "+content+"\nmaxVersions: 5\n"), 0o644))

	return &Sandbox{
		t:           t,
		Dir:         dir,
		ContentPath: content,
		ConfigPath:  cfgPath,
		Env:         map[string]string{"USER": "testuser"},
		clock:       internal.NewStepClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), time.Second),
	}
}

// Result captures one command invocation.
type Result struct {
	Code   int
	Err    error
	Stdout string
	Stderr string
}

// Run executes sitedoc with args, feeding stdin.
func (s *Sandbox) Run(stdin string, args ...string) Result {
	s.t.Helper()
	var out, errb bytes.Buffer
	lg, th := log.NewTestLogger(s.t)
	s.Logs = th

	deps := &cli.Deps{
		Streams: cli.Streams{In: strings.NewReader(stdin), Out: &out, Err: &errb},
		Getenv:  func(k string) string { return s.Env[k] },
		Logger:  lg,
		Clock:   s.clock,
	}
	code, err := cli.Run(context.Background(), deps, append([]string{"--config", s.ConfigPath}, args...))
	return Result{Code: code, Err: err, Stdout: out.String(), Stderr: errb.String()}
}

// MustRun is Run that fails the test on error.
func (s *Sandbox) MustRun(stdin string, args ...string) string {
	s.t.Helper()
	res := s.Run(stdin, args...)
	require.NoError(s.t, res.Err, "stderr: %s", res.Stderr)
	require.Equal(s.t, 0, res.Code)
	return res.Stdout
}

// Content parses the document file on disk.
func (s *Sandbox) Content() *document.Document {
	s.t.Helper()
	raw, err := os.ReadFile(s.ContentPath)
	require.NoError(s.t, err)
	d, err := document.Parse(raw)
	require.NoError(s.t, err)
	return d
}

func titled(t *testing.T, title string) string {
	t.Helper()
	d := document.Seed()
	require.NoError(t, d.SetSection(document.SectionHome, map[string]any{
		"hero": map[string]any{"title": title},
	}))
	b, err := d.Bytes()
	require.NoError(t, err)
	return string(b)
}

func heroTitle(t *testing.T, d *document.Document) string {
	t.Helper()
	h, err := d.Home()
	require.NoError(t, err)
	return h.Hero.Title
}
