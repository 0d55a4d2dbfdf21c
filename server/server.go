// Package server exposes the Pacer HTTP surface: the pass trigger, schedule
// management, and pass history.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pacerhq/pacer/errors"
	"github.com/pacerhq/pacer/scheduler"
)

// timeNow is swapped out in tests
var timeNow = time.Now

// Server is the Pacer HTTP server. It also implements
// scheduler.EventBroadcaster, streaming pass events to WebSocket clients.
type Server struct {
	orchestrator *scheduler.Orchestrator
	logger       *zap.SugaredLogger
	httpServer   *http.Server
	port         int

	clientsMu sync.Mutex
	clients   map[*wsClient]bool
}

// New creates a server around an orchestrator
func New(orchestrator *scheduler.Orchestrator, port int, logger *zap.SugaredLogger) *Server {
	s := &Server{
		orchestrator: orchestrator,
		logger:       logger.Named("server"),
		port:         port,
		clients:      make(map[*wsClient]bool),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // A triggered pass can run long
	}
	return s
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Infow("HTTP server starting", "port", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, disconnects streaming clients,
// and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("HTTP server shutting down")
	s.closeClients()
	return s.httpServer.Shutdown(ctx)
}
