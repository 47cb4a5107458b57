// Package monitoring provides gateway metrics and request tracing.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alchemorsel_client"

// GatewayMetrics collects Prometheus metrics for outbound API calls
type GatewayMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
	evictionsTotal  prometheus.Counter
}

// NewGatewayMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by method and status code",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		transportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_transport_errors_total",
				Help:      "API requests that produced no response, by kind",
			},
			[]string{"kind"},
		),
		evictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_evictions_total",
				Help:      "Sessions ended because the API answered 401",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.transportErrors, m.evictionsTotal)
	}
	return m
}

// RecordRequest records a completed request
func (m *GatewayMetrics) RecordRequest(method string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTransportError records a request that never got a response
func (m *GatewayMetrics) RecordTransportError(method, kind string, duration time.Duration) {
	m.transportErrors.WithLabelValues(kind).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordEviction records a 401 eviction
func (m *GatewayMetrics) RecordEviction() {
	m.evictionsTotal.Inc()
}
