// Package webserver hosts the evaluation REST API.
package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/levelapp/levelgo/internal/export"
	"github.com/levelapp/levelgo/internal/projectconfig"
	"github.com/levelapp/levelgo/internal/webapi"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port           int
	ResultsDir     string
	AllowedOrigins []string
	Project        *projectconfig.ProjectConfig
	Logger         *slog.Logger
}

// Server wraps the HTTP server with configuration.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger *slog.Logger
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Project == nil {
		cfg.Project = projectconfig.New()
	}
	if cfg.Port == 0 {
		cfg.Port = cfg.Project.Server.Port
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = cfg.Project.Paths.Results
	}

	store := webapi.NewFileStore(cfg.ResultsDir)
	service := webapi.NewService(cfg.Project, export.NewExporter(cfg.ResultsDir), store)

	mux := http.NewServeMux()
	webapi.RegisterRoutes(mux, store, service)

	var handler http.Handler = mux
	if len(cfg.AllowedOrigins) > 0 {
		handler = webapi.CORSMiddleware(mux, cfg.AllowedOrigins...)
	}

	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Info("HTTP server starting", "address", s.srv.Addr)
	fmt.Printf("levelgo evaluation API: http://localhost:%d\n", s.cfg.Port)

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
