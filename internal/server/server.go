package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/aptoseidon/aptoseidon/internal/errors"
	"github.com/aptoseidon/aptoseidon/internal/observability"
	"github.com/aptoseidon/aptoseidon/internal/server/handlers"
	servermw "github.com/aptoseidon/aptoseidon/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	host     string
	port     int
	analysis *handlers.AnalysisHandlers
	version  handlers.VersionHandler
	metrics  *metricsProxy
	timeouts Timeouts

	adminToken string
}

// Timeouts bounds connection phases; zero values select the defaults.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithAnalysis mounts the analysis and reputation endpoints backed by svc.
func WithAnalysis(svc handlers.AnalysisService, maxBodyBytes int64) Option {
	return func(s *Server) {
		if svc != nil {
			s.analysis = handlers.NewAnalysisHandlers(svc, maxBodyBytes)
		}
	}
}

// WithVersion sets the identity and feature summary reported by /version.
func WithVersion(v handlers.VersionHandler) Option {
	return func(s *Server) { s.version = v }
}

// WithAdminToken enables the admin signal endpoint.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = strings.TrimSpace(token) }
}

// WithTimeouts overrides the HTTP server timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) { s.timeouts = t }
}

// New creates a new HTTP server instance
func New(host string, port int, opts ...Option) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Request ID first for correlation; Recovery inside metrics so a panic
	// is still counted as a 500.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:   r,
		host:     host,
		port:     port,
		metrics:  newMetricsProxy(),
		timeouts: Timeouts{Read: 30 * time.Second, Write: 90 * time.Second, Idle: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	// Register routes
	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
