// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/indexer-snapshots/internal/logging"
	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/service"
	"github.com/indexer-snapshots/internal/types"
)

// IndexerServiceInterface defines the service operations the API exposes
type IndexerServiceInterface interface {
	ApplyEvent(ctx context.Context, input *service.EventInput) (*service.EventResult, error)
	GetIndexer(ctx context.Context, indexer string) (*models.Indexer, error)
	GetSnapshot(ctx context.Context, indexer string, dayIndex int64) (*models.IndexerSnapshot, error)
	GetSnapshotAt(ctx context.Context, indexer string, timestamp int64) (*models.IndexerSnapshot, error)
	ListSnapshots(ctx context.Context, indexer string, fromDay, toDay int64) ([]*models.IndexerSnapshot, error)
	RollingRewards(ctx context.Context, indexer string, timestamp int64) (*types.RollingRewards, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	service    IndexerServiceInterface
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, svc IndexerServiceInterface, logger *logging.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: svc,
		logger:  logger,
		config:  config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Request id first so every later middleware logs with it
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/indexers/{indexer}", s.handleGetIndexer).Methods("GET")
	api.HandleFunc("/indexers/{indexer}/events", s.handleApplyEvent).Methods("POST")
	api.HandleFunc("/indexers/{indexer}/snapshots", s.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/indexers/{indexer}/snapshots/{day:-?[0-9]+}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/indexers/{indexer}/rolling-rewards", s.handleRollingRewards).Methods("GET")
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "indexer-snapshots",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
