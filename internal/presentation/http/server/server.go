// Package server provides HTTP server initialization and management
// for the offline gateway.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/medicarepro/medicare-offline-go/internal/application/container"
	"github.com/medicarepro/medicare-offline-go/internal/presentation/http/routes"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Server wraps the HTTP server with configuration and dependency injection
type Server struct {
	httpServer *http.Server
	container  *container.Container
}

// New creates a new HTTP server instance with dependency injection.
// The router serves the offline and admin APIs and falls through to
// the interception worker for everything else.
func New(port string, container *container.Container) *Server {
	router := routes.SetupRoutes(container)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		container:  container,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	log.Printf("Offline gateway listening on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Println("Shutting down offline gateway...")
	return s.httpServer.Shutdown(ctx)
}
