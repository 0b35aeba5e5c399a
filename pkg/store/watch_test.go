package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestWatch_RequiresCallback(t *testing.T) {
	t.Parallel()
	fx := NewFixture(t)
	require.Error(t, fx.Store.Watch(fx.ctx, nil))
}

func TestWatch_DeliversExternalChanges(t *testing.T) {
	t.Parallel()
	fx := NewFixture(t)
	require.NoError(t, fx.Store.Ensure(fx.ctx))

	ctx, cancel := context.WithCancel(fx.ctx)
	defer cancel()

	changes := make(chan *document.Document, 16)
	done := make(chan error, 1)
	go func() {
		done <- fx.Store.Watch(ctx, func(d *document.Document) {
			changes <- d
		})
	}()

	// The watcher may not be registered yet; keep writing until a change
	// makes it through.
	var got *document.Document
	deadline := time.After(5 * time.Second)
	for i := 0; got == nil; i++ {
		raw, err := docWithTitle(t, "watched").Bytes()
		require.NoError(t, err)
		fx.WriteRaw(append(raw, []byte(" ")[:i%2]...))

		select {
		case got = <-changes:
		case <-time.After(4 * store.WatchDebounce):
		case <-deadline:
			t.Fatal("no change delivered")
		}
	}
	require.Equal(t, "watched", heroTitle(t, got))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_HealedDocumentDeliveredOnce(t *testing.T) {
	t.Parallel()
	fx := NewFixture(t)
	require.NoError(t, fx.Store.Ensure(fx.ctx))

	ctx, cancel := context.WithCancel(fx.ctx)
	defer cancel()

	changes := make(chan *document.Document, 16)
	go func() {
		_ = fx.Store.Watch(ctx, func(d *document.Document) {
			changes <- d
		})
	}()

	partial := docWithTitle(t, "partial")
	partial.Delete(document.SectionBlog)
	raw, err := partial.Bytes()
	require.NoError(t, err)

	var got *document.Document
	deadline := time.After(5 * time.Second)
	for i := 0; got == nil; i++ {
		fx.WriteRaw(append(raw, []byte(" ")[:i%2]...))

		select {
		case got = <-changes:
		case <-time.After(4 * store.WatchDebounce):
		case <-deadline:
			t.Fatal("no change delivered")
		}
	}
	require.True(t, got.Has(document.SectionBlog))
	require.True(t, fx.ReadRawDoc().Has(document.SectionBlog), "read heals the file")

	// The heal rewrites the file; that rewrite is not a new change.
	select {
	case d := <-changes:
		t.Fatalf("healed document delivered twice (title %q)", heroTitle(t, d))
	case <-time.After(8 * store.WatchDebounce):
	}
}
