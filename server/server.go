// Package server serves the autoscaler's /metrics and /health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/queue"
	"github.com/forseti-judge/autoscaler/replica"
)

const (
	defaultHealthTimeout = 5 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// Server exposes the metrics registry and a health check of the backends.
type Server struct {
	Address    string
	Gatherer   prometheus.Gatherer
	Source     queue.Source
	Controller replica.Controller
	// HealthTimeout bounds the backend probes made by /health.
	HealthTimeout time.Duration
	Log           *logger.Logger
}

type healthResponse struct {
	Status string `json:"status"`
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(disableCache)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", s.health)
	return r
}

// health probes the queue and the orchestrator concurrently. Any probe
// failure makes the autoscaler unhealthy.
func (s *Server) health(w http.ResponseWriter, req *http.Request) {
	timeout := s.HealthTimeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Source.Probe(ctx) })
	g.Go(func() error { return s.Controller.Probe(ctx) })

	status, code := "healthy", http.StatusOK
	if err := g.Wait(); err != nil {
		s.log().Warn("Health check failed", "error", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: status}); err != nil {
		s.log().Error("Writing health response", err)
	}
}

// Serve listens on Address and serves until ctx is canceled, then shuts
// the HTTP server down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Address)
	if err != nil {
		return err
	}
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.Serve(lis)
	}()
	s.log().Info("HTTP server listening", "address", lis.Addr().String())

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) log() *logger.Logger {
	if s.Log == nil {
		return logger.NewSubLogger("server")
	}
	return s.Log
}

// Set a cache-control header that disables response caching
// and pass through to the next handler.
func disableCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		resp.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(resp, req)
	})
}
