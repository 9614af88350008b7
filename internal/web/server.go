// Package web serves the generated data artifacts over HTTP. The server is
// read-only: it exposes exactly what the pipeline wrote to the data
// directory and imposes no behaviour on it.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

// Config holds the web server settings.
type Config struct {
	Host    string
	Port    int
	DataDir string
}

// Server serves pipeline output artifacts.
type Server struct {
	config     Config
	logger     *slog.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance over an existing data
// directory.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if _, err := os.Stat(config.DataDir); err != nil {
		return nil, fmt.Errorf("data directory not readable: %w", err)
	}

	server := &Server{config: config, logger: logger}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", s.getSummary).Methods("GET")
	api.HandleFunc("/districts/{code}/trend", s.getTrend).Methods("GET")
	api.HandleFunc("/districts/{code}/sales", s.getSales).Methods("GET")
	api.HandleFunc("/stats", s.getStats).Methods("GET")

	s.router.Use(corsMiddleware())
	s.router.Use(requestLogging(s.logger))
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr, "data", s.config.DataDir)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
