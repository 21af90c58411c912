package authority

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by Metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds the authority's Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	Occupants      *prometheus.GaugeVec
	Resets         prometheus.Counter
}

// NewMetrics creates the metric set under the given namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of participant requests handled",
		},
		[]string{"kind", "outcome"},
	)

	requestSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to apply a request and broadcast its snapshot",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	occupants := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "area_occupants",
			Help:      "Current number of players in each area",
		},
		[]string{"area"},
	)

	resets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "area_resets_total",
			Help:      "Times an area's notes were discarded after its last occupant left",
		},
	)

	registry.MustRegister(requests, requestSeconds, occupants, resets)

	return &Metrics{
		registry:       registry,
		Requests:       requests,
		RequestSeconds: requestSeconds,
		Occupants:      occupants,
		Resets:         resets,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
