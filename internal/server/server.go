// Package server exposes extraction and metrics over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/monitoring"
)

// Extractor runs one extraction job. Satisfied by *extract.Service.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (extract.Result, error)
}

// Server wires the extraction service and monitor behind a chi router.
type Server struct {
	name           string
	maxUploadBytes int64
	extractor      Extractor
	monitor        *monitoring.Monitor
	logger         *zap.Logger
	http           *http.Server
}

// New builds a Server from the loaded configuration.
func New(cfg *common.Config, extractor Extractor, monitor *monitoring.Monitor, logger *zap.Logger) *Server {
	s := &Server{
		name:           cfg.Server.Name,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		extractor:      extractor,
		monitor:        monitor,
		logger:         logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router assembles the route tree. Exposed so tests can drive handlers
// through httptest without binding a port.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleLiveness)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/ocr", s.handleOCR)
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
