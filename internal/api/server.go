package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"identarr/internal/api/handlers"
	"identarr/internal/api/middleware"
	"identarr/internal/config"
	"identarr/internal/models"
	"identarr/internal/scheduler"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	db     *models.Database
	queue  *scheduler.Queue
	logger *logrus.Logger
}

// NewServer creates a new HTTP server. registry may be nil, in which case
// no metrics endpoint is exposed.
func NewServer(cfg *config.Config, db *models.Database, queue *scheduler.Queue, registry *prometheus.Registry, logger *logrus.Logger) *Server {
	s := &Server{
		db:     db,
		queue:  queue,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux, registry)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux, registry *prometheus.Registry) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.Handle("GET /health", healthHandler)

	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.Handle("GET /status", statusHandler)

	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	tasksHandler := handlers.NewTasksHandler(s.db, s.queue, s.logger)
	mux.HandleFunc("POST /api/tasks", tasksHandler.Create)
	mux.HandleFunc("GET /api/tasks", tasksHandler.List)
	mux.HandleFunc("GET /api/tasks/{id}", tasksHandler.Get)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", tasksHandler.Cancel)
	mux.HandleFunc("POST /api/tasks/{id}/retry", tasksHandler.Retry)
	mux.HandleFunc("DELETE /api/tasks/{id}", tasksHandler.Delete)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
