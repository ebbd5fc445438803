package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pft-analyzer-server/internal/domain"
	"github.com/pft-analyzer-server/internal/middleware"
	"github.com/pft-analyzer-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	analyzer      *service.Analyzer
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, analyzer *service.Analyzer, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit, logger).Middleware())
	}

	server := &Server{
		configManager: configManager,
		analyzer:      analyzer,
		logger:        logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler serving the API.
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
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	cfg := s.configManager.GetServerConfig()

	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")

	// The live channel stays open for the whole editing session, so it is
	// registered outside the request timeout.
	v1.GET("/sessions/:id/live", s.handleLive)

	timed := v1.Group("", middleware.RequestTimeout(cfg.RequestTimeout))
	{
		timed.GET("/health", s.handleHealth)
		timed.POST("/interpret", s.handleInterpret)
		timed.GET("/severity", s.handleSeverity)

		timed.POST("/sessions", s.handleCreateSession)
		timed.GET("/sessions/:id", s.handleGetSession)
		timed.DELETE("/sessions/:id", s.handleDeleteSession)
		timed.POST("/sessions/:id/reset", s.handleResetSession)
		timed.PATCH("/sessions/:id/measurement", s.handleEditMeasurement)
		timed.PUT("/sessions/:id/measurement", s.handleReplaceMeasurement)
		timed.POST("/sessions/:id/extract", s.handleExtract)
		timed.GET("/sessions/:id/interpretation", s.handleGetInterpretation)
		timed.GET("/sessions/:id/report", s.handleGetReport)
		timed.POST("/sessions/:id/opinion", s.handleOpinion)
	}
}
