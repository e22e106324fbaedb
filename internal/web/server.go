package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/tracelens/internal/analysis"
	"github.com/kozaktomas/tracelens/internal/config"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/web/middleware"
	"github.com/rs/zerolog/log"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	service    *analysis.Service
	index      *database.FingerprintIndex
	version    string
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server around a shared fingerprint index.
func NewServer(cfg *config.Config, service *analysis.Service, index *database.FingerprintIndex, version string, port int, host string) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:  cfg,
		service: service,
		index:   index,
		version: version,
		router:  r,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and releases the index.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down web server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return fmt.Errorf("closing fingerprint index: %w", err)
		}
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
