package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "coffee_shop"

// Metrics holds the service collectors on a private registry.
// All record methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	authDecisions   *prometheus.CounterVec
	jwksFetches     *prometheus.CounterVec
	jwksFetchTime   prometheus.Histogram
	drinkOperations *prometheus.CounterVec
	managementCalls *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_decisions_total",
				Help:      "Authorization gate decisions by result code.",
			}, []string{"code"},
		),
		jwksFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jwks_fetches_total",
				Help:      "Signing key set loads by source and result.",
			}, []string{"source", "result"},
		),
		jwksFetchTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "jwks_fetch_duration_seconds",
				Help:      "Time spent fetching the signing key set from the identity provider.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		drinkOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "drink_operations_total",
				Help:      "Drink service operations by operation and result.",
			}, []string{"operation", "result"},
		),
		managementCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "management_api_calls_total",
				Help:      "Management API calls by operation and HTTP status class.",
			}, []string{"operation", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authDecisions,
		m.jwksFetches,
		m.jwksFetchTime,
		m.drinkOperations,
		m.managementCalls,
	)
	return m
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAuthDecision counts one gate decision. code is "ok" on success.
func (m *Metrics) RecordAuthDecision(code string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(code).Inc()
}

// RecordJWKSFetch counts a key set load. source is "network" or "shared".
// The duration is only observed for network loads.
func (m *Metrics) RecordJWKSFetch(source string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jwksFetches.WithLabelValues(source, resultLabel(err)).Inc()
	if source == "network" {
		m.jwksFetchTime.Observe(elapsed.Seconds())
	}
}

// RecordDrinkOperation counts one drink service call.
func (m *Metrics) RecordDrinkOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.drinkOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordManagementCall counts one management API round trip.
func (m *Metrics) RecordManagementCall(operation string, statusCode int) {
	if m == nil {
		return
	}
	m.managementCalls.WithLabelValues(operation, statusClass(statusCode)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "transport_error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
