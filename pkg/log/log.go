package log

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jlrickert/cli-toolkit/mylog"
)

///////////////////////////////////////////////////////////////////////////////
// Context helpers
///////////////////////////////////////////////////////////////////////////////

// WithLogger stores lg on ctx.
func WithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	return mylog.WithLogger(ctx, lg)
}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg := mylog.LoggerFromContext(ctx); lg != nil {
		return lg
	}
	return slog.Default()
}

// nopHandler is a tiny no-op slog.Handler.
type nopHandler struct{}

func (n *nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (n *nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (n *nopHandler) WithAttrs(attrs []slog.Attr) slog.Handler  { return n }
func (n *nopHandler) WithGroup(name string) slog.Handler        { return n }

// NewNopLogger returns a logger that discards all log events.
func NewNopLogger() *slog.Logger {
	return slog.New(&nopHandler{})
}

var _ slog.Handler = (*nopHandler)(nil)

///////////////////////////////////////////////////////////////////////////////
// Test handler (simple, thread-safe)
///////////////////////////////////////////////////////////////////////////////

type LoggedEntry struct {
	Level slog.Level
	Msg   string
	Attrs map[string]any
}

// testingT is a tiny subset of *testing.T used for optional logging.
type testingT interface {
	Logf(format string, args ...any)
}

type entries struct {
	mu   sync.Mutex
	list []LoggedEntry
}

// TestHandler captures structured entries for assertions. Handlers derived
// with WithAttrs share the same entry list.
type TestHandler struct {
	store *entries
	attrs []slog.Attr
	T     testingT
}

func NewTestHandler(t testingT) *TestHandler {
	return &TestHandler{store: &entries{}, T: t}
}

func (h *TestHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *TestHandler) Handle(_ context.Context, r slog.Record) error {
	e := LoggedEntry{
		Level: r.Level,
		Msg:   r.Message,
		Attrs: map[string]any{},
	}
	for _, a := range h.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.list = append(h.store.list, e)
	h.store.mu.Unlock()

	if h.T != nil {
		h.T.Logf("LOG %s %v %v", e.Msg, e.Level, e.Attrs)
	}
	return nil
}

func (h *TestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *TestHandler) WithGroup(_ string) slog.Handler { return h }

// Entries returns a copy of everything captured so far.
func (h *TestHandler) Entries() []LoggedEntry {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LoggedEntry(nil), h.store.list...)
}

// NewTestLogger returns a logger that writes to a TestHandler (and the handler).
func NewTestLogger(t testingT) (*slog.Logger, *TestHandler) {
	th := NewTestHandler(t)
	return slog.New(th), th
}

var _ slog.Handler = (*TestHandler)(nil)

// FindEntries copies entries that match pred.
func FindEntries(th *TestHandler, pred func(LoggedEntry) bool) []LoggedEntry {
	out := make([]LoggedEntry, 0)
	for _, e := range th.Entries() {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// WithMessage matches entries by exact message.
func WithMessage(msg string) func(LoggedEntry) bool {
	return func(e LoggedEntry) bool { return e.Msg == msg }
}
