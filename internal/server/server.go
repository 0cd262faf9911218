// Package server wires the HTTP surface of the proxy: the normalizing
// /v1/responses route, buffered and streaming forwarding, and opaque
// passthrough for everything else.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/prefixproxy/internal/capture"
	"github.com/openclaw/prefixproxy/internal/config"
	"github.com/openclaw/prefixproxy/internal/metrics"
	"github.com/openclaw/prefixproxy/internal/normalize"
	"github.com/openclaw/prefixproxy/internal/upstream"
)

// maxBodyBytes limits the size of incoming request bodies.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Server is the main HTTP server.
type Server struct {
	cfg        *config.Config
	rules      normalize.Rules
	backend    *upstream.Client
	metrics    *metrics.Collector
	capture    *capture.Writer // nil when capture is disabled
	httpServer *http.Server
}

// New creates a server with all routes registered. The caller must Shutdown
// it to release the capture log.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg: cfg,
		rules: normalize.Rules{
			Timestamps: cfg.StripTimestamps,
			MessageIDs: cfg.StripMessageIDs,
		},
		backend: upstream.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.RequestTimeout, cfg.Verbose),
		metrics: metrics.NewCollector(),
	}

	if cfg.CaptureLog != "" {
		w, err := capture.OpenWriter(cfg.CaptureLog)
		if err != nil {
			return nil, err
		}
		s.capture = w
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/responses", s.handleResponses)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("OPTIONS /", s.handleOptions)
	mux.HandleFunc("/", s.handlePassthrough)

	handler := corsMiddleware(s.requestMiddleware(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server and closes the capture log.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.capture != nil {
		if cerr := s.capture.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}
