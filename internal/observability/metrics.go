// Package observability holds the Prometheus metrics and OpenTelemetry
// tracer setup for the server.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/diyassist/internal/domain/conversation"
)

const namespace = "diyassist"

// Metrics is the server's metric set.
type Metrics struct {
	gatherer prometheus.Gatherer

	// httpRequests counts handled requests.
	// Labels: method, route (the registered pattern), code
	httpRequests *prometheus.CounterVec

	// httpDuration measures request latency.
	// Labels: method, route
	httpDuration *prometheus.HistogramVec

	// turns counts chat turns by outcome.
	// Labels: agent, status (resulting status, empty on failure), outcome
	turns *prometheus.CounterVec

	// turnDuration measures a whole turn including the agent call.
	// Labels: agent
	turnDuration *prometheus.HistogramVec

	// rateLimited counts requests rejected by the limiter.
	rateLimited prometheus.Counter
}

// NewMetrics registers the metric set on reg. Pass prometheus.NewRegistry()
// in tests to keep registrations isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total chat turns by outcome",
		}, []string{"agent", "status", "outcome"}),
		turnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turn_duration_seconds",
			Help:      "Chat turn latency in seconds, agent call included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"agent"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-tenant rate limiter",
		}),
	}
}

// ObserveTurn implements conversation.TurnObserver.
func (m *Metrics) ObserveTurn(agent conversation.AgentKind, status conversation.Status, outcome string, seconds float64) {
	m.turns.WithLabelValues(string(agent), string(status), outcome).Inc()
	m.turnDuration.WithLabelValues(string(agent)).Observe(seconds)
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, seconds float64) {
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// RateLimited records one rejected request.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
