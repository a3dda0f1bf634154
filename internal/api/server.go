package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sentinelstack/sentinel-analysis/internal/config"
	"github.com/sentinelstack/sentinel-analysis/internal/services"
)

// Server wraps the HTTP server and lifecycle helpers.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	listener   net.Listener
}

// NewServer constructs an HTTP server bound to the configured address.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, service *services.AnalysisService) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	httpServer := &http.Server{
		Handler:           NewRouter(cfg, logger, service),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:        cfg,
		httpServer: httpServer,
		listener:   lis,
	}, nil
}

// NewRouter assembles the route tree. Exposed separately so tests can drive
// the handlers through httptest without a listener.
func NewRouter(cfg config.ServerConfig, logger *slog.Logger, service *services.AnalysisService) http.Handler {
	h := NewHandlers(logger, service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Edge devices call from anywhere; the API is anonymous by contract.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.IngestPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.IngestPerMinute, time.Minute))
			}
			r.Post("/telemetry/upload", h.UploadTelemetry)
		})

		r.Group(func(r chi.Router) {
			if cfg.RequestsPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
			}
			r.Post("/analysis/request", h.RequestAnalysis)
			r.Get("/threat-intel/global", h.GlobalThreatIntel)
			r.Post("/threat-intel/report", h.ReportThreat)
			r.Post("/forensics/generate-report", h.GenerateForensicReport)
		})
	})

	return r
}

// Start serves incoming requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.httpServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown attempts a graceful shutdown, forcing a close after the context
// expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
