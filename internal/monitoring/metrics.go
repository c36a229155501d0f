package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the enricher. Each instance
// owns its registry so tests and parallel runners never collide.
type Metrics struct {
	registry *prometheus.Registry

	ProviderCalls *prometheus.CounterVec
	PollAttempts  *prometheus.HistogramVec
	Leads         *prometheus.CounterVec
}

// NewMetrics registers the enricher collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_provider_calls_total",
			Help: "Provider capability calls by outcome.",
		}, []string{"provider", "operation", "outcome"}), // outcome: found, not_found, error, disabled, circuit_open
		PollAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enricher_poll_attempts",
			Help:    "Status checks used by finished async tasks.",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}, []string{"outcome"}),
		Leads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_leads_total",
			Help: "Leads processed by the batch runner by outcome.",
		}, []string{"outcome"}), // outcome: high_value, partial, failed, skipped, store_error
	}
}

// ObserveProviderCall counts one provider call.
func (m *Metrics) ObserveProviderCall(provider, operation, outcome string) {
	m.ProviderCalls.WithLabelValues(provider, operation, outcome).Inc()
}

// ObservePoll records how many checks a finished task used.
func (m *Metrics) ObservePoll(outcome string, attempts int) {
	m.PollAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}

// IncLead counts one processed lead.
func (m *Metrics) IncLead(outcome string) {
	m.Leads.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
