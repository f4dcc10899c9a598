package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
	authFailureTotal prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	rateLimitedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter per endpoint",
	}, []string{"endpoint"})

	authFailureTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Requests rejected by the session validator",
	})

	registry.MustRegister(requestDuration, requestTotal, rateLimitedTotal, authFailureTotal)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		rateLimitedTotal: rateLimitedTotal,
		authFailureTotal: authFailureTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func (s *MetricsService) ObserveRateLimited(endpoint string) {
	if s == nil {
		return
	}
	s.rateLimitedTotal.WithLabelValues(endpoint).Inc()
}

// ObserveAuthFailure counts a request rejected by the session validator.
func (s *MetricsService) ObserveAuthFailure() {
	if s == nil {
		return
	}
	s.authFailureTotal.Inc()
}
