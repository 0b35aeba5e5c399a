package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// GET /api/content
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Read(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GET /api/content/{section}
func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	doc, err := s.store.Read(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	raw, ok := doc.Section(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("section %q not found", name)})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// PUT /api/content
func (s *Server) handlePutContent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
		return
	}
	doc, err := document.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: fmt.Sprintf("invalid document: %v", err)})
		return
	}

	ctx := r.Context()
	if err := s.store.Write(ctx, doc, store.WriteOptions{Actor: actor(r)}); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondCurrent(w, r)
}

// GET /api/versions
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListVersions(r.Context()))
}

// GET /api/versions/{filename}
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.ReadVersion(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// POST /api/versions/{filename}/revert
func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := s.store.RevertTo(r.Context(), filename, store.WriteOptions{Actor: actor(r)}); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondCurrent(w, r)
}

// GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}
	entries, err := s.store.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) respondCurrent(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Read(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func actor(r *http.Request) string {
	if a := strings.TrimSpace(r.Header.Get(ActorHeader)); a != "" {
		return a
	}
	return DefaultActor
}

// StatusFor maps store errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case store.IsConcurrentWrite(err):
		return http.StatusConflict
	case store.IsVersionNotFound(err):
		return http.StatusNotFound
	case store.IsInvalidVersion(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrNotObject):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
