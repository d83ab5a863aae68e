package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/kozaktomas/face-login/internal/metrics"
	"github.com/kozaktomas/face-login/internal/web/middleware"
	"go.uber.org/zap"
)

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	registry       *gallery.Registry
	messages       database.MessageStore
	sessionManager *middleware.SessionManager
	logger         *zap.Logger
}

// NewServer creates a new web server. sessionRepo may be nil for in-memory sessions.
func NewServer(
	cfg *config.Config,
	registry *gallery.Registry,
	messages database.MessageStore,
	sessionRepo middleware.SessionRepository,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// Create session manager with optional persistence
	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret, sessionRepo)
	sessionManager.SetLogger(logger.Named("session"))

	s := &Server{
		config:         cfg,
		router:         r,
		registry:       registry,
		messages:       messages,
		sessionManager: sessionManager,
		logger:         logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	// Stop the session cleanup goroutine
	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
