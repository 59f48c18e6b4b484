// Package api exposes the assessment service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/middleware"
	"github.com/TJerry3s/SCI-90test/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       *service.AssessmentService
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	checks        map[string]HealthCheck
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithHealthCheck registers a named dependency probe for /health.
func WithHealthCheck(name string, check HealthCheck) ServerOption {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	svc *service.AssessmentService,
	logger *logrus.Logger,
	opts ...ServerOption,
) (*Server, error) {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowOrigins))

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("creating rate limiter: %w", err)
		}
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		service:       svc,
		logger:        logger,
		router:        router,
		checks:        make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/questions", s.handleQuestions)
		v1.GET("/factors", s.handleFactors)
		v1.GET("/factors/:name/interpretation", s.handleInterpretation)
		v1.POST("/score", s.handleScore)

		sessions := v1.Group("/sessions/:token")
		{
			sessions.GET("", s.handleGetSession)
			sessions.POST("/device", s.handleBindDevice)
			sessions.PUT("/progress", s.handleSaveProgress)
			sessions.POST("/submit", s.handleSubmit)
			sessions.GET("/result", s.handleResult)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(s.configManager.GetConfig().Admin.Password))
		{
			admin.POST("/tokens", s.handleIssueTokens)
			admin.GET("/sessions", s.handleListSessions)
			admin.DELETE("/sessions/:token", s.handleDeleteSession)
			admin.GET("/stats", s.handleStats)
			admin.GET("/export", s.handleExport)
			admin.POST("/import", s.handleImport)
		}
	}
}

// handleHealth runs the registered dependency probes.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"version":    Version,
		"components": components,
	})
}
