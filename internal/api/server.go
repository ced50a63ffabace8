package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/docchat-server/internal/chatbot"
)

// DefaultMaxUploadBytes bounds a single multipart upload.
const DefaultMaxUploadBytes = 32 << 20

// maxJSONBytes bounds JSON request bodies.
const maxJSONBytes = 1 << 20

// Config holds server dependencies.
type Config struct {
	Service        *chatbot.Service
	Health         HealthChecker // Optional vector index check
	MCP            http.Handler  // Optional, mounted at /mcp
	MaxUploadBytes int64
	CORSOrigins    []string
	Logger         *slog.Logger
}

// Server routes HTTP requests to the chat service.
type Server struct {
	svc            *chatbot.Service
	health         HealthChecker
	maxUploadBytes int64
	logger         *slog.Logger
	handler        http.Handler
}

// NewServer builds the router and middleware chain.
func NewServer(cfg *Config) *Server {
	s := &Server{
		svc:            cfg.Service,
		health:         cfg.Health,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         cfg.Logger,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/sessions", s.handleSessions)
	mux.HandleFunc("DELETE /chat/{session}", s.handleResetChat)
	mux.HandleFunc("POST /smallchat", s.handleSmallChat)
	mux.HandleFunc("POST /suggestions", s.handleSuggestions)

	mux.HandleFunc("POST /uploadPdf", s.handleUpload)
	mux.HandleFunc("POST /queryPdf", s.handleQuery)
	mux.HandleFunc("POST /summarizePdf", s.handleSummarize)
	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("GET /documents/{id}", s.handleDocument)

	if cfg.MCP != nil {
		mux.Handle("/mcp", cfg.MCP)
	}

	s.handler = corsMiddleware(cfg.CORSOrigins, loggingMiddleware(s.logger, recoverMiddleware(s.logger, mux)))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
