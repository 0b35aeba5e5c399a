package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlrickert/sitedoc/pkg/api"
	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/internal"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	store  *store.Store
	server *httptest.Server
	logs   *log.TestHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(store.Options{
		Path:  filepath.Join(t.TempDir(), "content.json"),
		Clock: internal.NewStepClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Second),
	})
	require.NoError(t, err)

	lg, th := log.NewTestLogger(t)
	srv := httptest.NewServer(api.New(st, api.Options{Logger: lg, RequestTimeout: 5 * time.Second}).Handler())
	t.Cleanup(srv.Close)
	return &fixture{t: t, store: st, server: srv, logs: th}
}

func (f *fixture) do(method, path, body string, header map[string]string) (int, []byte) {
	f.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(f.t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp.StatusCode, out
}

func titled(t *testing.T, title string) string {
	t.Helper()
	d := document.Seed()
	require.NoError(t, d.SetSection(document.SectionHome, map[string]any{
		"hero": map[string]any{"title": title},
	}))
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func titleOf(t *testing.T, body []byte) string {
	t.Helper()
	d, err := document.Parse(body)
	require.NoError(t, err)
	h, err := d.Home()
	require.NoError(t, err)
	return h.Hero.Title
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGetContent_Seeded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/api/content", "", nil)
	require.Equal(t, http.StatusOK, status)
	d, err := document.Parse(body)
	require.NoError(t, err)
	require.True(t, d.Equal(document.Seed()))
	require.NotEmpty(t, log.FindEntries(f.logs, log.WithMessage("http request")))
}

func TestGetSection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/api/content/nav", "", nil)
	require.Equal(t, http.StatusOK, status)
	var nav document.Nav
	require.NoError(t, json.Unmarshal(body, &nav))
	require.NotEmpty(t, nav.Items)

	status, _ = f.do(http.MethodGet, "/api/content/nope", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestPutContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodPut, "/api/content", titled(t, "From API"), map[string]string{api.ActorHeader: "carol"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "From API", titleOf(t, body))

	history, err := f.store.History(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "carol", history[0].Actor)
}

func TestPutContent_DefaultActor(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, _ := f.do(http.MethodPut, "/api/content", titled(t, "anon"), nil)
	require.Equal(t, http.StatusOK, status)

	history, err := f.store.History(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, api.DefaultActor, history[0].Actor)
}

func TestPutContent_RejectsNonDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, body := range []string{`[1,2]`, `{"home":`, `"text"`} {
		status, _ := f.do(http.MethodPut, "/api/content", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, status, body)
	}
}

func TestVersionsAndRevert(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/api/versions", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `[]`, string(body))

	status, _ = f.do(http.MethodGet, "/api/content", "", nil)
	require.Equal(t, http.StatusOK, status)
	for _, title := range []string{"A", "B"} {
		status, _ = f.do(http.MethodPut, "/api/content", titled(t, title), nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body = f.do(http.MethodGet, "/api/versions", "", nil)
	require.Equal(t, http.StatusOK, status)
	var versions []store.Version
	require.NoError(t, json.Unmarshal(body, &versions))
	require.Len(t, versions, 2)

	// Newest snapshot holds A, the content replaced by B.
	status, body = f.do(http.MethodGet, "/api/versions/"+versions[0].Filename, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "A", titleOf(t, body))

	status, body = f.do(http.MethodPost, "/api/versions/"+versions[0].Filename+"/revert", "", map[string]string{api.ActorHeader: "dave"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "A", titleOf(t, body))

	status, body = f.do(http.MethodGet, "/api/history?limit=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	var history []store.JournalEntry
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	require.Equal(t, store.ActionRevert, history[0].Action)
	require.Equal(t, "dave", history[0].Actor)
}

func TestRevert_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.do(http.MethodPost, "/api/versions/content-20000101T000000Z.json/revert", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, string(body), "version not found")

	status, _ = f.do(http.MethodGet, "/api/versions/whatever.txt", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestHistory_BadLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, _ := f.do(http.MethodGet, "/api/history?limit=-3", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "concurrent", err: &store.ConcurrentWriteError{Actor: "x"}, want: http.StatusConflict},
		{name: "not found", err: &store.VersionNotFoundError{Filename: "x"}, want: http.StatusNotFound},
		{name: "invalid", err: &store.InvalidVersionError{Filename: "x", Cause: errors.New("bad")}, want: http.StatusUnprocessableEntity},
		{name: "not object", err: document.ErrNotObject, want: http.StatusUnprocessableEntity},
		{name: "storage", err: store.NewStorageError("rename", "/x", errors.New("eio")), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, api.StatusFor(tt.err))
		})
	}
}
