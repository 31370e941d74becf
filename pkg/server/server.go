// Package server exposes the render pipeline and the artifact cache over
// HTTP.
//
// Routes:
//
//	GET  /healthz               liveness probe
//	GET  /version               boxdeck and cache versions
//	GET  /artifacts             cached entries with kind and size
//	GET  /artifacts/{name}      one cached file
//	POST /render?format=pdf,svg render a JSON deck description
//
// Renders are serialized because every run reads and rewrites the query
// index of the shared cache directory.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/boxdeck/pkg/buildinfo"
	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	bdio "github.com/matzehuels/boxdeck/pkg/io"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
)

// MaxBodySize bounds deck descriptions accepted by /render.
const MaxBodySize = 8 << 20

// shutdownTimeout is how long in-flight requests get after the context ends.
const shutdownTimeout = 5 * time.Second

var contentTypes = map[string]string{
	pipeline.FormatSVG: "image/svg+xml",
	pipeline.FormatPDF: "application/pdf",
	pipeline.FormatPNG: "image/png",
	pipeline.FormatPS:  "application/postscript",
	pipeline.FormatEPS: "application/postscript",
}

// Server serves one artifact cache.
type Server struct {
	runner *pipeline.Runner
	base   deck.Options
	logger *log.Logger

	mu sync.Mutex // serializes renders
}

// New creates a server over runner. base supplies deck defaults for
// descriptions that omit them.
func New(runner *pipeline.Runner, base deck.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, base: base, logger: logger}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/version", s.handleVersion)
	r.Route("/artifacts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{name}", s.handleArtifact)
	})
	r.Post("/render", s.handleRender)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving artifacts", "addr", addr, "cache", s.runner.Artifacts.Dir())
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

// =============================================================================
// Handlers
// =============================================================================

type versionResponse struct {
	Version      string `json:"version"`
	CacheVersion string `json:"cache_version"`
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Version:      buildinfo.Version,
		CacheVersion: s.runner.Artifacts.Version(),
	})
}

type entry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	names := s.runner.Artifacts.Entries()
	out := make([]entry, 0, len(names))
	for _, name := range names {
		e := entry{Name: name, Kind: kindOf(name), URL: artifactURL(name)}
		if info, err := os.Stat(filepath.Join(s.runner.Artifacts.Dir(), name)); err == nil {
			e.Size = info.Size()
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := s.runner.Artifacts.Lookup(name)
	if stderrors.Is(err, cache.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "artifact not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ct, ok := contentTypes[kindOf(name)]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type renderUnit struct {
	Slide     int               `json:"slide"`
	Step      int               `json:"step"`
	Name      string            `json:"name,omitempty"`
	Artifacts map[string]string `json:"artifacts"`
}

type renderResponse struct {
	RunID   string       `json:"run_id"`
	Units   []renderUnit `json:"units"`
	Removed int          `json:"removed,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.Options{Logger: s.logger}
	if f := r.URL.Query().Get("format"); f != "" {
		opts.Formats = strings.Split(f, ",")
	}
	if sel := r.URL.Query().Get("select"); sel != "" {
		opts.Select = strings.Split(sel, ",")
	}
	opts.Debug = r.URL.Query().Get("debug") == "true"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := bdio.ReadJSON(http.MaxBytesReader(w, r.Body, MaxBodySize), s.base)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	result, err := s.runner.Execute(r.Context(), d, opts)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, statusFor(err), errors.UserMessage(err))
		return
	}

	resp := renderResponse{RunID: result.RunID, Units: make([]renderUnit, len(result.Units)), Removed: len(result.Removed)}
	for i, u := range result.Units {
		ru := renderUnit{Slide: u.Slide, Step: u.Step, Name: u.Name, Artifacts: make(map[string]string)}
		for format, paths := range result.Artifacts {
			ru.Artifacts[format] = artifactURL(filepath.Base(paths[i]))
		}
		resp.Units[i] = ru
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsUsage(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, errors.ErrCodeOracleMissing), errors.Is(err, errors.ErrCodeCacheUnavailable):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func kindOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

func artifactURL(name string) string {
	return "/artifacts/" + name
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
