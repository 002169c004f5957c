package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection.
// A nil collector is valid and records nothing.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	usersRegisteredTotal prometheus.Counter
	loginsTotal          *prometheus.CounterVec
	entriesLoggedTotal   prometheus.Counter
	aiRequestsTotal      *prometheus.CounterVec
	aiRequestDuration    *prometheus.HistogramVec

	// System metrics
	dbQueryDuration *prometheus.HistogramVec
	dbErrorsTotal   *prometheus.CounterVec
	cacheOperations *prometheus.CounterVec
}

// NewMetricsCollector creates a collector backed by its own registry
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger,
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		usersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "macromojo_users_registered_total",
			Help: "Total number of accounts created",
		}),
		loginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macromojo_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		entriesLoggedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "macromojo_nutrition_entries_logged_total",
			Help: "Total number of nutrition entries added",
		}),
		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of assistant model requests",
			},
			[]string{"provider", "route", "status"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "Assistant model request duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		dbErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_errors_total",
				Help: "Database operations that returned an error",
			},
			[]string{"operation"},
		),
		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Cache operations by backend and result",
			},
			[]string{"operation", "backend", "status"},
		),
	}
}

// HTTPMiddleware records request counts and latency per chi route pattern
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// UserRegistered counts a new account
func (m *MetricsCollector) UserRegistered() {
	if m == nil {
		return
	}
	m.usersRegisteredTotal.Inc()
}

// Login counts a login attempt; outcome is success, failure or throttled
func (m *MetricsCollector) Login(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// EntryLogged counts a new nutrition entry
func (m *MetricsCollector) EntryLogged() {
	if m == nil {
		return
	}
	m.entriesLoggedTotal.Inc()
}

// AIRequest records one assistant model call
func (m *MetricsCollector) AIRequest(provider, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.aiRequestsTotal.WithLabelValues(provider, route, status).Inc()
	m.aiRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// DBQuery records one gateway operation
func (m *MetricsCollector) DBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.dbErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// CacheOperation counts one cache call
func (m *MetricsCollector) CacheOperation(operation, backend, status string) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(operation, backend, status).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
