// ABOUTME: Prometheus instrumentation for gateway routes and backend forwarding
// ABOUTME: Records request counts, latencies, in-flight gauge and backend failures

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	gatherer        prometheus.Gatherer
	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		backendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_backend_failures_total",
				Help: "Forwarded requests that produced no backend response.",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.inFlight, m.requestsTotal, m.requestDuration, m.backendFailures)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument measures requests by route pattern so wildcard paths do not
// explode label cardinality.
func (m *Metrics) Instrument(next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()

		sw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(sw, r)

		status := strconv.Itoa(sw.statusCode)
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, route, status).Inc()
	}
}

// BackendFailure counts a forward that ended without a backend response.
func (m *Metrics) BackendFailure(reason string) {
	if m == nil {
		return
	}
	m.backendFailures.WithLabelValues(reason).Inc()
}
