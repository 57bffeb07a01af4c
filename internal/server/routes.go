package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/observability"
	"github.com/aptoseidon/aptoseidon/internal/server/handlers"
)

// registerRoutes mounts probes, version, metrics, the analysis API when a
// service is configured, and the optional admin endpoint.
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Method(http.MethodGet, "/version", s.version)

	// Prometheus scrape, proxied from the exporter port
	s.router.Get("/metrics", s.metrics.ServeHTTP)

	if s.analysis != nil {
		s.router.Post("/analyze", s.analysis.Analyze)
		s.router.Post("/reputation/rate", s.analysis.Rate)
		s.router.Get("/reputation/rate/{jobId}", s.analysis.Votes)
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts POST /admin/signal when an admin token is
// configured. Requests are bearer-authenticated and limited to 10/min.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (server.admin_token not set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.adminToken,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep this port off the public internet",
			zap.String("path", "/admin/signal"))
	}
}
