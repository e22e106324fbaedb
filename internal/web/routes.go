package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/tracelens/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	analyzeHandler := handlers.NewAnalyzeHandler(s.service, s.config.Upload.MaxFileSize)
	hashesHandler := handlers.NewHashesHandler(s.index, s.config.Index.DuplicateThresholdBits)
	configHandler := handlers.NewConfigHandler(s.config, s.service.ExternalSearchEnabled())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck(s.version))

		r.Post("/analyze", analyzeHandler.Analyze)

		// Fingerprint index
		r.Get("/hashes", hashesHandler.Count)
		r.Delete("/hashes", hashesHandler.Reset)
		r.Post("/hashes/duplicates", hashesHandler.Duplicates)

		r.Get("/config", configHandler.Get)
	})
}
