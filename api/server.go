// Package api provides the HTTP REST API for paperspeak.
//
// This package exposes document upload, ingestion status, message history
// and streaming chat over HTTP.
//
// Endpoints:
//
//	GET    /health                          → liveness probe
//	GET    /ready                           → readiness probe (pings DB)
//	POST   /api/auth/callback               → upsert the authenticated user
//	POST   /api/files                       → register an uploaded document
//	GET    /api/files                       → list the caller's documents
//	GET    /api/files/{id}/status           → ingestion status polling
//	DELETE /api/files/{id}                  → delete a document and its vectors
//	GET    /api/files/{id}/messages         → cursor-paginated history
//	POST   /api/files/{id}/messages/stream  → streaming chat turn (SSE)
//
// Identity: the X-User-ID header set by the auth proxy in front of this
// service. requireUser is the seam where a real token check would go.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (identity, logging, recovery)
//   - health.go: Health check endpoints (/health, /ready)
//   - users.go: Auth callback endpoint
//   - files.go: Document management endpoints
//   - chat.go: Streaming chat endpoint (SSE)
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = ":8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generous because chat completions stream for a while.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for paperspeak's REST API.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	// Handlers
	health *HealthHandler
	users  *UserHandler
	files  *FileHandler
	chat   *ChatHandler
}

// Config carries the server's dependencies.
type Config struct {
	Health *HealthHandler
	Users  *UserHandler
	Files  *FileHandler
	Chat   *ChatHandler
	Logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		health: cfg.Health,
		users:  cfg.Users,
		files:  cfg.Files,
		chat:   cfg.Chat,
	}

	s.health.RegisterRoutes(s.mux)
	s.users.RegisterRoutes(s.mux)
	s.files.RegisterRoutes(s.mux)
	s.chat.RegisterRoutes(s.mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, loggingMiddleware)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
