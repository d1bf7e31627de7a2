// Package http serves health checks and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"musebot/internal/core"
)

const (
	serviceName     = "musebot"
	shutdownTimeout = 10 * time.Second
)

// ReadinessCheck returns nil when the named dependency can serve requests.
type ReadinessCheck func() error

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	metrics  *Metrics
	registry *prometheus.Registry
	checks   *readiness
}

// NewServer builds the server with its own registry so several servers can
// coexist in one process.
func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checks := &readiness{checks: make(map[string]ReadinessCheck)}
	mux := setupRoutes(logger, registry, checks)

	return &Server{
		config:   config,
		logger:   logger,
		server:   createHTTPServer(config, mux),
		metrics:  newMetrics(registry),
		registry: registry,
		checks:   checks,
	}
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, gatherer prometheus.Gatherer, checks *readiness) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(logger))
	mux.HandleFunc("/readyz", readyHandler(logger, checks))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", homeHandler(logger))
	return mux
}

// AddReadinessCheck registers a dependency /readyz waits for.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks.add(name, check)
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// GetMetrics returns the recorder handed to the core and the Discord front end.
func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

type readiness struct {
	mutex  sync.RWMutex
	checks map[string]ReadinessCheck
}

func (r *readiness) add(name string, check ReadinessCheck) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.checks[name] = check
}

// failing returns the reason of every failing check by name.
func (r *readiness) failing() map[string]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	failed := make(map[string]string)
	for name, check := range r.checks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

type statusResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Failing map[string]string `json:"failing,omitempty"`
}

func healthHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, statusResponse{Status: "ok", Service: serviceName})
	}
}

func readyHandler(logger *zap.Logger, checks *readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if failed := checks.failing(); len(failed) > 0 {
			writeJSON(w, logger, http.StatusServiceUnavailable,
				statusResponse{Status: "unavailable", Service: serviceName, Failing: failed})
			return
		}
		writeJSON(w, logger, http.StatusOK, statusResponse{Status: "ready", Service: serviceName})
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>musebot</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 musebot</h1>
    <p>Discord music bot playing YouTube and Spotify links through Lavalink</p>

    <h2>Endpoints</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`
