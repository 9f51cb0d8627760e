// Package httpserver provides the HTTP REST API for the search aggregator.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/observability"
	"github.com/okarvonen/scholarscout/internal/search"
	"github.com/okarvonen/scholarscout/internal/sources"
	"github.com/okarvonen/scholarscout/internal/store"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// RequestBudget bounds one search request end to end; past it the
	// handler answers with a partial response and HTTP 408.
	RequestBudget time.Duration

	// InitialPageSize is the page size of POST /api/search.
	InitialPageSize int

	// MorePageSize caps the page size of POST /api/search/more.
	MorePageSize int

	// MetricsEnabled exposes Prometheus metrics at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// Server is the HTTP REST API server.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server

	processor    *search.Processor
	resultStore  *store.ResultStore
	projectStore *store.ProjectStore
	blobs        blobstore.Store
	source       sources.BibSource
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
// metrics may be nil.
func NewServer(
	cfg Config,
	processor *search.Processor,
	resultStore *store.ResultStore,
	projectStore *store.ProjectStore,
	blobs blobstore.Store,
	source sources.BibSource,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.RequestBudget == 0 {
		cfg.RequestBudget = 8 * time.Second
	}
	if cfg.InitialPageSize == 0 {
		cfg.InitialPageSize = 10
	}
	if cfg.MorePageSize == 0 {
		cfg.MorePageSize = 10
	}

	s := &Server{
		cfg:          cfg,
		processor:    processor,
		resultStore:  resultStore,
		projectStore: projectStore,
		blobs:        blobs,
		source:       source,
		metrics:      metrics,
		logger:       logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.cfg.MetricsEnabled {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api/search", func(r chi.Router) {
		r.Post("/", s.startSearch)
		r.Post("/more", s.moreResults)
		r.Get("/health", s.searchHealth)
	})

	r.Route("/api/history", func(r chi.Router) {
		r.Get("/", s.listHistory)
		// Snapshot keys contain slashes ("searches/<name>_<ts>"), so the
		// id is a wildcard rather than a single path segment.
		r.Get("/*", s.historyByID)
		r.Delete("/*", s.deleteHistory)
	})

	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)
		r.Get("/{projectID}", s.getProject)
		r.Delete("/{projectID}", s.deleteProject)
		r.Post("/{projectID}/sections", s.addSection)
		r.Delete("/{projectID}/sections/{sectionID}", s.deleteSection)
		r.Get("/{projectID}/sections/{sectionID}/articles", s.listArticles)
		r.Post("/{projectID}/sections/{sectionID}/articles", s.addArticle)
		r.Delete("/{projectID}/sections/{sectionID}/articles/{articleID}", s.deleteArticle)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness including blob store connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.blobs.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":     "not_ready",
			"blob_store": "error",
			"error":      err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ready",
		"blob_store": "connected",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
