package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/pkg/healthcheck"
)

func newTestServer(dbErr error) *Server {
	gin.SetMode(gin.TestMode)
	health := healthcheck.New("test", zap.NewNop())
	health.Register("database", healthcheck.NewPingChecker(func(context.Context) error { return dbErr }))

	metrics := monitoring.NewMetricsCollector(zap.NewNop())
	metrics.Login("success")

	return NewServer(&config.Config{App: config.AppConfig{Debug: true}}, zap.NewNop(), health, metrics)
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Endpoints(t *testing.T) {
	s := newTestServer(nil)

	assert.Equal(t, http.StatusOK, serve(s, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(s, "/ready").Code)
	assert.Equal(t, http.StatusOK, serve(s, "/live").Code)

	metrics := serve(s, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "macromojo_logins_total")
}

func TestServer_DatabaseDown_ShouldNotBeReady(t *testing.T) {
	s := newTestServer(errors.New("connection refused"))

	assert.Equal(t, http.StatusServiceUnavailable, serve(s, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, "/ready").Code)
	assert.Equal(t, http.StatusOK, serve(s, "/live").Code)
}

func TestServer_ShouldTagRequestID(t *testing.T) {
	s := newTestServer(nil)

	w := serve(s, "/live")

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
