// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/auction-indexer/internal/config"
	"github.com/auction-indexer/internal/scanner"
	"github.com/gorilla/mux"
)

// ScanRunner defines the interface for triggering an indexing run
type ScanRunner interface {
	Run(ctx context.Context) (*scanner.RunSummary, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	runner     ScanRunner
	db         HealthChecker
	cache      HealthChecker
	secret     string
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
}

// DefaultServerConfig returns server defaults suitable for the scan trigger,
// whose write timeout must cover a full indexing run.
func DefaultServerConfig(cfg *config.ServerConfig) *ServerConfig {
	return &ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    120 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	runner ScanRunner,
	db HealthChecker,
	cache HealthChecker,
	sharedSecret string,
) *Server {
	s := &Server{
		router: mux.NewRouter(),
		runner: runner,
		db:     db,
		cache:  cache,
		secret: sharedSecret,
		config: config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
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
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Internal endpoints guarded by the shared secret
	internal := s.router.PathPrefix("/internal").Subrouter()
	internal.HandleFunc("/scan", s.handleScan).Methods("POST")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying handler for testing.
func (s *Server) Router() http.Handler {
	return s.router
}
