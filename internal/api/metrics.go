package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	submissionsTotal  *prometheus.CounterVec
	duplicateHits     *prometheus.CounterVec
	breakerOpen       prometheus.Gauge
	callbacksTotal    *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artshield_gateway_requests_total",
			Help: "Total HTTP requests handled by the gateway.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artshield_gateway_request_duration_seconds",
			Help:    "Gateway request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artshield_gateway_submissions_total",
			Help: "Total protection submissions by outcome.",
		}, []string{"outcome"}),
		duplicateHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artshield_gateway_duplicate_hits_total",
			Help: "Total submissions short-circuited by an existing artifact.",
		}, []string{"strategy"}),
		breakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artshield_gateway_breaker_open",
			Help: "Whether the processor circuit breaker is currently open.",
		}),
		callbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artshield_gateway_callbacks_total",
			Help: "Total processor callbacks by kind and result.",
		}, []string{"kind", "result"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artshield_gateway_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		}, []string{"route"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.submissionsTotal,
		m.duplicateHits,
		m.breakerOpen,
		m.callbacksTotal,
		m.rateLimitRejected,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := routeLabel(r.URL.Path)
		status := strconv.Itoa(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/artworks/") && strings.Contains(path, "/download/"):
		return "/v1/artworks/{id}/download/{variant}"
	case strings.HasPrefix(path, "/v1/artworks/") && strings.HasSuffix(path, "/status"):
		return "/v1/artworks/{id}/status"
	case strings.HasPrefix(path, "/v1/artworks/") && strings.HasSuffix(path, "/result"):
		return "/v1/artworks/{id}/result"
	case strings.HasPrefix(path, "/v1/artworks"):
		return "/v1/artworks"
	case strings.HasPrefix(path, "/v1/callbacks"):
		return path
	case strings.HasPrefix(path, "/healthz"):
		return "/healthz"
	case strings.HasPrefix(path, "/metrics"):
		return "/metrics"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
