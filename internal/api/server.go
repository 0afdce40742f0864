// Package api serves the HTTP query surface: natural-language search
// over the vector store, the shipped-PR ledger, and the per-engineer
// metrics read from the mart.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/whattherepo/whattherepo/internal/handlers"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// Server exposes the read-side HTTP API.
type Server struct {
	services *handlers.Services
	store    *vectorstore.Store
	mart     *mart.Mart
	logger   *slog.Logger
}

// NewServer creates the API server over the query services, the vector
// store, and the mart.
func NewServer(services *handlers.Services, store *vectorstore.Store, m *mart.Mart) *Server {
	return &Server{
		services: services,
		store:    store,
		mart:     m,
		logger:   logging.Component("api"),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/repositories", s.handleRepositories)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/pr-details", s.handlePRDetails)
	r.Get("/api/what-shipped-data", s.handleWhatShippedData)
	r.Get("/api/what-shipped-summary", s.handleWhatShippedSummary)
	r.Get("/api/what-shipped-authors", s.handleWhatShippedAuthors)
	r.Get("/api/engineers", s.handleEngineers)
	r.Get("/api/engineer-metrics", s.handleEngineerMetrics)
	return r
}

// ListenAndServe runs the server on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestID tags every request with a uuid for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"store_connected": s.store != nil,
		"mart_connected":  s.mart != nil,
	})
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.store.ListRepositories(r.Context())
	if err != nil {
		s.logger.Error("repository listing failed", "error", err)
		s.writeJSON(w, http.StatusOK, []string{})
		return
	}
	if repos == nil {
		repos = []string{}
	}
	s.writeJSON(w, http.StatusOK, repos)
}
