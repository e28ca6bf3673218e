// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the search pipeline over HTTP.
//
//	POST /api/papers       search (alias POST /search)
//	GET  /api/papers/{id}  single paper (alias GET /papers/{id})
//	GET  /api/health       liveness (alias GET /health)
//
// Every route answers CORS preflight requests.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/matsearch/internal/index"
	"github.com/pdiddy/matsearch/internal/query"
	"github.com/pdiddy/matsearch/internal/search"
	"github.com/pdiddy/matsearch/pkg/types"
)

// Defaults for ServerConfig fields left empty.
const (
	DefaultAddr          = ":8080"
	DefaultReadTimeout   = 15 * time.Second
	DefaultWriteTimeout  = 60 * time.Second
	DefaultAllowedOrigin = "*"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Client-facing error messages.
const (
	msgInvalid   = "request invalid"
	msgNoResults = "No results found"
	msgNotFound  = "Paper not found"
	msgInternal  = "internal error"
	msgMethod    = "method not allowed"
	msgHealthy   = "Success"
)

// Searcher is the pipeline the server fronts.
type Searcher interface {
	Search(ctx context.Context, raw query.RawRequest) (types.SearchResult, error)
	Paper(ctx context.Context, id string) (types.PaperRecord, error)
}

var _ Searcher = (*search.Service)(nil)

// Server serves the HTTP API.
type Server struct {
	svc    Searcher
	cfg    types.ServerConfig
	logger *slog.Logger
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server for svc.
func New(svc Searcher, cfg types.ServerConfig, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = DefaultAllowedOrigin
	}

	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: slog.Default().With("component", "server"),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, prefix := range []string{"/api", ""} {
		papers := "/papers"
		if prefix == "" {
			papers = "/search"
		}
		s.mux.HandleFunc("POST "+prefix+papers, s.handleSearch)
		s.mux.HandleFunc(prefix+papers, s.handleSearchMethod)
		s.mux.HandleFunc("GET "+prefix+"/papers/{id...}", s.handlePaper)
		s.mux.HandleFunc("GET "+prefix+"/health", s.handleHealth)
	}
	return s
}

// Handler returns the root handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var raw query.RawRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Debug("reading request body", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalid)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			s.logger.Debug("decoding request body", "err", err)
			writeError(w, http.StatusBadRequest, msgInvalid)
			return
		}
	}

	result, err := s.svc.Search(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, query.ErrInvalidRequest):
		s.logger.Debug("invalid search request", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalid)
	case errors.Is(err, search.ErrNoResults):
		writeError(w, http.StatusNotFound, msgNoResults)
	default:
		s.logger.Error("search failed", "err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// handleSearchMethod answers non-POST requests on the search route. It
// also keeps ServeMux from redirecting GET to the paper subtree.
func (s *Server) handleSearchMethod(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	writeError(w, http.StatusMethodNotAllowed, msgMethod)
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Paper(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, index.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		s.logger.Error("paper lookup failed", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msgHealthy})
}

// cors adds the allow headers to every response and answers preflight
// requests directly.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
