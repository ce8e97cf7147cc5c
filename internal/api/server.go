// Package api exposes risk assessment and assessment history over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/middleware"
	"github.com/neuro-risk-client/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	stack         *service.Stack
	logger        *logrus.Logger
	gatherer      prometheus.Gatherer
	router        *gin.Engine
	server        *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the given registry on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, stack *service.Stack, opts ...Option) *Server {
	server := &Server{
		configManager: configManager,
		stack:         stack,
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.logger == nil {
		server.logger = logrus.New()
	}

	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(server.logger))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server.router = router
	server.setupRoutes()

	return server
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
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
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	if s.configManager.GetServerConfig().EnableMetrics && s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/assessments/:condition", s.handleAssess)
		v1.POST("/assessments/:condition/local", s.handleScoreLocally)

		v1.GET("/history", s.handleListHistory)
		v1.GET("/history/export", s.handleExportHistory)
		v1.GET("/history/:id", s.handleGetHistory)
		v1.DELETE("/history/:id", s.handleDeleteHistory)
	}
}

// handleHealth reports liveness. With ?deep=true the prediction endpoints
// are probed as well; an unreachable endpoint degrades but does not fail the
// check since the local heuristic still answers.
func (s *Server) handleHealth(c *gin.Context) {
	cfg := s.configManager.GetConfig()
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"history":   cfg.History.Backend,
		"heuristic": cfg.Heuristic.Enabled,
	}

	if c.Query("deep") == "true" {
		statuses := s.stack.ProbeEndpoints(c.Request.Context())
		for _, st := range statuses {
			if !st.Healthy && cfg.Prediction.Endpoints.URL(st.Condition) != "" {
				body["status"] = "degraded"
			}
		}
		body["endpoints"] = statuses
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) historyStore() history.Store {
	return s.stack.Recorder.Store()
}
