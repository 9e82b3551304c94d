package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal      *prometheus.CounterVec
	CrossTenantAttemptsTotal *prometheus.CounterVec
	InvariantViolationsTotal prometheus.Counter
	SecurityEventsTotal      *prometheus.CounterVec

	// Login metrics
	LoginAttemptsTotal *prometheus.CounterVec
	LoginLockoutsTotal prometheus.Counter
	TokensMintedTotal  *prometheus.CounterVec
	ForcedRefreshTotal prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "requisify_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Authorization metrics
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"resource", "operation", "outcome"},
		),
		CrossTenantAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_cross_tenant_attempts_total",
				Help: "Total number of blocked cross-tenant attempts",
			},
			[]string{"kind"},
		),
		InvariantViolationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "requisify_invariant_violations_total",
				Help: "Total number of tenant invariant violations",
			},
		),
		SecurityEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_security_events_total",
				Help: "Total number of recorded security events",
			},
			[]string{"type", "severity"},
		),

		// Login metrics
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"outcome"},
		),
		LoginLockoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "requisify_login_lockouts_total",
				Help: "Total number of login lockouts",
			},
		),
		TokensMintedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requisify_tokens_minted_total",
				Help: "Total number of access tokens minted",
			},
			[]string{"reason"},
		),
		ForcedRefreshTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "requisify_forced_refresh_total",
				Help: "Total number of forced token refreshes",
			},
		),

		// Session metrics
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "requisify_sessions_active",
				Help: "Number of active sessions",
			},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "requisify_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "requisify_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "requisify_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.CrossTenantAttemptsTotal,
		m.InvariantViolationsTotal,
		m.SecurityEventsTotal,
		m.LoginAttemptsTotal,
		m.LoginLockoutsTotal,
		m.TokensMintedTotal,
		m.ForcedRefreshTotal,
		m.SessionsActive,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisConnectionsActive,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
