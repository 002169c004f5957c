// Package ops serves the operational endpoints: health, readiness,
// liveness and Prometheus metrics, on a port separate from the web app.
package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/http/middleware"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/pkg/healthcheck"
)

// Server is the ops HTTP server
type Server struct {
	logger *zap.Logger
	engine *gin.Engine
	server *http.Server
}

// NewServer wires the health endpoints and, when metrics is set, /metrics
func NewServer(cfg *config.Config, logger *zap.Logger, health *healthcheck.HealthCheck, metrics *monitoring.MetricsCollector) *Server {
	logger = logger.Named("ops")
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.GinRequestID())
	engine.Use(middleware.GinLogger(logger, "/health", "/ready", "/live", "/metrics"))
	engine.Use(middleware.GinRecovery(logger))

	engine.GET("/health", health.Handler())
	engine.GET("/ready", health.ReadinessHandler())
	engine.GET("/live", health.LivenessHandler())
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		logger: logger,
		engine: engine,
		server: &http.Server{
			Addr:              cfg.OpsAddr(),
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting ops server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
