package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/app"
	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/handlers"
	"github.com/bobmcallan/markmentum-portal/internal/metrics"
)

// Server manages the HTTP server and routes.
type Server struct {
	app         *app.App
	router      *http.ServeMux
	server      *http.Server
	logger      *common.Logger
	metrics     *metrics.Metrics
	packLimiter *RateLimiter
	deepDiveURL string
	frameOrigin string
}

// New creates a new HTTP server with the given app.
func New(application *app.App) *Server {
	cfg := application.Config
	s := &Server{
		app:         application,
		logger:      application.Logger,
		metrics:     application.Metrics,
		deepDiveURL: cfg.Report.DeepDiveURL,
		frameOrigin: origin(cfg.Auth.HomeURL),
	}

	s.packLimiter = NewRateLimiter(cfg.Report.RatePerMinute, cfg.Report.Burst, application.Logger)
	if s.metrics != nil {
		s.packLimiter.OnLimit(func() { s.metrics.ObservePack(handlers.PackLimited) })
	}
	application.AddSweep("pack_limiter", s.packLimiter.Cleanup)

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // 5 min: Research Pack assembly can print through a browser
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// origin returns scheme://host of raw, or "" when raw is not absolute.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Str("url", fmt.Sprintf("http://%s", s.server.Addr)).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
