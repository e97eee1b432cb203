// Package backend ties the bridge services into an HTTP server with the
// standard middleware chain.
package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vertex-home/assist-bridge/pkg/assist"
	"github.com/vertex-home/assist-bridge/pkg/backend/handlers"
	"github.com/vertex-home/assist-bridge/pkg/backend/middleware"
	"github.com/vertex-home/assist-bridge/pkg/config"
	"github.com/vertex-home/assist-bridge/pkg/types"
)

// Services are the bridge operations the server exposes. Nil services
// leave their endpoints answering 503.
type Services struct {
	Conversation *assist.Conversation
	TTS          *assist.TTS
	STT          *assist.STT
	Task         *assist.Task

	// Providers are probed by the status endpoint
	Providers map[string]types.Provider
}

// Server is the bridge HTTP server.
type Server struct {
	config     *config.Config
	services   Services
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a server over the given configuration and services.
func NewServer(cfg *config.Config, services Services) *Server {
	s := &Server{
		config:   cfg,
		services: services,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.services.Providers, s.config.Server.Version)
	assistHandler := handlers.NewAssistHandler(
		s.services.Conversation,
		s.services.TTS,
		s.services.STT,
		s.services.Task,
	)

	s.mux.HandleFunc("/health", healthHandler.Health)
	s.mux.HandleFunc("/status", healthHandler.Status)
	s.mux.HandleFunc("/version", healthHandler.Version)

	s.mux.HandleFunc("/api/converse", assistHandler.Converse)
	s.mux.HandleFunc("/api/tts", assistHandler.TTS)
	s.mux.HandleFunc("/api/stt", assistHandler.STT)
	s.mux.HandleFunc("/api/task", assistHandler.Task)
	s.mux.HandleFunc("/api/tools", assistHandler.Tools)
}

// Handler returns the full handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.mux)
}

// Start begins listening for requests. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	log.Printf("Starting bridge on %s (version: %s)", addr, s.config.Server.Version)
	for name := range s.services.Providers {
		log.Printf("  provider: %s", name)
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	log.Println("Server shutdown complete")
	return nil
}

// ListenAndServeWithGracefulShutdown starts the server and shuts it down
// when the signal channel fires, bounded by the configured timeout.
func (s *Server) ListenAndServeWithGracefulShutdown(shutdownSignal <-chan struct{}) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-shutdownSignal:
		timeout := s.config.Server.ShutdownTimeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(ctx)
	}
}

// applyMiddleware builds the middleware chain. Middleware is applied in
// reverse order, so execution runs Recovery, Logging, RequestID, CORS,
// Auth, then the handler.
func (s *Server) applyMiddleware(h http.Handler) http.Handler {
	if s.config.Auth.Enabled {
		h = middleware.Auth(middleware.AuthConfig{
			APIPassword: s.config.Auth.APIPassword,
			APIKeyEnv:   s.config.Auth.APIKeyEnv,
			PublicPaths: s.config.Auth.PublicPaths,
		})(h)
	}

	if s.config.CORS.Enabled {
		h = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: s.config.CORS.AllowedOrigins,
			AllowedMethods: s.config.CORS.AllowedMethods,
			AllowedHeaders: s.config.CORS.AllowedHeaders,
		})(h)
	}

	h = middleware.RequestID(h)
	h = middleware.Logging(h)
	h = middleware.Recovery(h)
	return h
}
