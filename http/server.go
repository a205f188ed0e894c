// Package http exposes the prediction service to form-based front ends.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
	log    *zap.Logger
}

// ServerConfig server settings
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DefaultServerConfig default server settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   64 << 10,
	}
}

// NewServer wires handlers and middleware around the predictor
func NewServer(config ServerConfig, predictor Predictor, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	h := NewHandlers(predictor, log, config.AllowedOrigins)
	h.Register(mux)

	// websocket connections bypass the timeout middleware
	root := http.NewServeMux()
	root.Handle("GET /api/ws/predict", Chain(
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
	)(http.HandlerFunc(h.handlePredictSocket)))
	root.Handle("/", Chain(
		RecoveryMiddleware(log),                    // 1. recover from panics first
		LoggerMiddleware(log),                      // 2. access log + request id
		SecurityHeadersMiddleware,                  // 3. security headers
		CORSMiddleware(config.AllowedOrigins),      // 4. CORS
		RequestSizeMiddleware(config.MaxBodyBytes), // 5. body limit
		TimeoutMiddleware(config.Timeout),          // 6. timeout
	)(mux))

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      root,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		log:    log,
	}
}

// Start blocks serving until Stop is called
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
