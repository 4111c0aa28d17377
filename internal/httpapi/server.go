// Package httpapi serves the analyses over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/panbanda/insight/pkg/chunker"
	"github.com/rs/zerolog/log"
)

// RequestTimeout bounds a single request, including remote clones.
const RequestTimeout = 10 * time.Minute

// Server represents the API server
type Server struct {
	svc    *analysis.Service
	router *chi.Mux
}

// NewServer creates a new API server
func NewServer(svc *analysis.Service) *Server {
	s := &Server{
		svc:    svc,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.healthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/capabilities", s.capabilities)
		r.Post("/analyze", s.analyze)
		r.Post("/focus", s.focus)
		r.Post("/chunks", s.chunks)
	})
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"capabilities": s.svc.Capabilities().Describe(),
		"analyses":     s.svc.EnabledKinds(),
	})
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Path     string   `json:"path"`
	Analyses []string `json:"analyses"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}

	kinds := s.svc.EnabledKinds()
	if len(req.Analyses) > 0 {
		parsed, err := analysis.ParseKinds(req.Analyses)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kinds = parsed
	}

	files, _, err := s.svc.LoadPath(r.Context(), req.Path, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.svc.Run(r.Context(), files, kinds)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FocusRequest is the body of POST /api/focus.
type FocusRequest struct {
	Path  string `json:"path"`
	Focus string `json:"focus"`
}

func (s *Server) focus(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Focus == "" {
		writeError(w, http.StatusBadRequest, "focus is required")
		return
	}

	files, _, err := s.svc.LoadPath(r.Context(), req.Path, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.FocusedContext(r.Context(), files, req.Focus)
	switch {
	case errors.Is(err, analysis.ErrAmbiguousMatch):
		writeJSON(w, http.StatusConflict, result)
	case errors.Is(err, analysis.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// ChunksRequest is the body of POST /api/chunks.
type ChunksRequest struct {
	Path string `json:"path"`
}

func (s *Server) chunks(w http.ResponseWriter, r *http.Request) {
	var req ChunksRequest
	if !decode(w, r, &req) {
		return
	}

	files, _, err := s.svc.LoadPath(r.Context(), req.Path, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.svc.Config().Chunker
	chunks := chunker.New(cfg.ChunkSize, cfg.OverlapLines).ChunkFiles(files)
	writeJSON(w, http.StatusOK, map[string]any{
		"chunks": chunks,
		"total":  len(chunks),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
