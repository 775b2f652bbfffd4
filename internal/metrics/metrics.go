package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Stationhouse server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics, labeled by operation (signup, signin, verify, reset...).
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Code rate limiter rejections, labeled by operation.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Email dispatch failures, labeled by kind (verification, reset).
	EmailFailuresTotal *prometheus.CounterVec

	// Expired sessions removed by the periodic sweep.
	SessionsSweptTotal prometheus.Counter

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationhouse_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stationhouse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationhouse_auth_failures_total",
			Help: "Total number of failed auth operations.",
		}, []string{"operation"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationhouse_auth_successes_total",
			Help: "Total number of successful auth operations.",
		}, []string{"operation"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationhouse_ratelimit_rejections_total",
			Help: "Total number of code rate limit rejections.",
		}, []string{"operation"}),

		EmailFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationhouse_email_failures_total",
			Help: "Total number of failed email dispatches.",
		}, []string{"kind"}),

		SessionsSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationhouse_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweeper.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationhouse_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.RateLimitRejectionsTotal,
		m.EmailFailuresTotal,
		m.SessionsSweptTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncAuthSuccess increments the auth success counter for the operation.
func (m *Metrics) IncAuthSuccess(operation string) {
	if m == nil {
		return
	}
	m.AuthSuccessesTotal.WithLabelValues(operation).Inc()
}

// IncAuthFailure increments the auth failure counter for the operation.
func (m *Metrics) IncAuthFailure(operation string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.WithLabelValues(operation).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(operation string) {
	if m == nil {
		return
	}
	m.RateLimitRejectionsTotal.WithLabelValues(operation).Inc()
}

// IncEmailFailure increments the email dispatch failure counter for the kind.
func (m *Metrics) IncEmailFailure(kind string) {
	if m == nil {
		return
	}
	m.EmailFailuresTotal.WithLabelValues(kind).Inc()
}

// AddSessionsSwept records expired sessions removed by the sweeper.
func (m *Metrics) AddSessionsSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSweptTotal.Add(float64(n))
}
