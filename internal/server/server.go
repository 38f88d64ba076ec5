// Package server exposes a shard engine over HTTP.
//
// The coordinator's fan-out reaches each engine through
// PUT /_db/{db}/_internal/traverser/edge; edges are loaded through the
// /_db/{db}/_api/edge endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/kektorgraph/pkg/catalog"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

// Server holds the HTTP interface and the underlying shard engine.
type Server struct {
	Engine  *shard.Engine
	Catalog *catalog.Catalog

	httpServer *http.Server
	authToken  string
	logger     *slog.Logger
}

// NewServer wires the HTTP handlers around an open engine.
// The engine is not closed by Shutdown; the caller owns its lifecycle.
func NewServer(eng *shard.Engine, cat *catalog.Catalog, httpAddr string, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Engine:    eng,
		Catalog:   cat,
		authToken: authToken,
		logger:    logger,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery -> Logging -> Auth -> Mux
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("/", handler)
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Run starts the HTTP server and blocks until it is shut down.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr, "database", s.Engine.Database())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, at most 5s.
func (s *Server) Shutdown() error {
	s.logger.Info("Starting graceful shutdown of HTTP Server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
