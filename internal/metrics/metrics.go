// Package metrics exposes Prometheus collectors for the session subsystem.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

type Metrics struct {
	flights        *prometheus.CounterVec
	flightDuration *prometheus.HistogramVec
	guardDecisions *prometheus.CounterVec
	proxyRequests  *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		flights: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_flights_total",
			Help:      "Identity resolving remote calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		flightDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_flight_duration_seconds",
			Help:      "Duration of identity resolving remote calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		guardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by guard and decision.",
		}, []string{"guard", "decision"}),
		proxyRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_requests_total",
			Help:      "Auth proxy requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
}

func (m *Metrics) ObserveFlight(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.flights.WithLabelValues(op, outcome).Inc()
	m.flightDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) GuardDecision(guard, decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(guard, decision).Inc()
}

func (m *Metrics) ProxyRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(endpoint, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
