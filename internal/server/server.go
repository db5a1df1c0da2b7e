// Package server serves saved workspaces from a data directory over HTTP:
// a file listing, per-file summaries, heat-map pages, line-profile images
// and the process metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/mdspace/internal/monitoring"
)

var logf = monitoring.Component("[Server] ")

// FileExtension marks workspace files in the data directory.
const FileExtension = ".mdspace"

// Config contains configuration options for the server.
type Config struct {
	Address string
	// DataDir is the only directory files are served from.
	DataDir string
	// Registry receives the request counters and backs /metrics. A new
	// registry is created when nil.
	Registry *prometheus.Registry
	// ShutdownTimeout bounds the graceful shutdown in Start. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Server handles the HTTP interface.
type Server struct {
	address         string
	dataDir         string
	shutdownTimeout time.Duration
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	server          *http.Server
}

// New checks the data directory and builds the routes.
func New(cfg Config) (*Server, error) {
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", cfg.DataDir)
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		address:         cfg.Address,
		dataDir:         cfg.DataDir,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        reg,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdspace", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "code"}),
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 5 * time.Second
	}
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.counted("health", s.handleHealth))
	mux.HandleFunc("/api/files", s.counted("files", s.handleFiles))
	mux.HandleFunc("/api/info", s.counted("info", s.handleInfo))
	mux.HandleFunc("/chart/heatmap", s.counted("heatmap", s.handleHeatMap))
	mux.HandleFunc("/chart/line", s.counted("line", s.handleLine))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start serves on the configured address until ctx is cancelled, then
// shuts down gracefully. A listen failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logf("serving %s on %s", s.dataDir, ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	return <-errCh
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.requests.WithLabelValues(route, fmt.Sprintf("%dxx", rec.status/100)).Inc()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
