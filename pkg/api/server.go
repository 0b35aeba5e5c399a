// Package api serves the site document over HTTP for admin tooling.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
)

const (
	// ActorHeader names the caller recorded with writes and reverts.
	ActorHeader = "X-Actor"
	// DefaultActor is used when ActorHeader is absent.
	DefaultActor = "api"

	// MaxBodyBytes bounds PUT /api/content payloads.
	MaxBodyBytes = 4 << 20

	shutdownGrace = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// RequestTimeout cancels handlers that run longer. Zero disables it.
	RequestTimeout time.Duration
}

// Server exposes a Store through a chi router.
type Server struct {
	store   *store.Store
	logger  *slog.Logger
	timeout time.Duration
}

// New returns a Server for st.
func New(st *store.Store, opts Options) *Server {
	lg := opts.Logger
	if lg == nil {
		lg = log.NewNopLogger()
	}
	return &Server{store: st, logger: lg, timeout: opts.RequestTimeout}
}

// Handler returns the full router with middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the API endpoints on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/content", s.handleGetContent)
		r.Put("/content", s.handlePutContent)
		r.Get("/content/{section}", s.handleGetSection)

		r.Get("/versions", s.handleListVersions)
		r.Get("/versions/{filename}", s.handleGetVersion)
		r.Post("/versions/{filename}/revert", s.handleRevert)

		r.Get("/history", s.handleHistory)
	})
}

// requestLogger puts a request-scoped logger on the context so store logs
// carry the request id, then logs the outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lg := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ctx := log.WithLogger(r.Context(), lg)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		lg.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves Handler on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("http server shutting down", "addr", addr)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
