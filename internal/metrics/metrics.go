// Package metrics exposes request and history metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements the lifecycle Recorder and history Observer interfaces.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	persistFailures *prometheus.CounterVec
	historyRecords  *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lexdesk",
				Name:      "requests_total",
				Help:      "Inference requests by feature and outcome.",
			},
			[]string{"feature", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lexdesk",
				Name:      "request_duration_seconds",
				Help:      "Time spent waiting for the inference API.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"feature"},
		),
		persistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lexdesk",
				Name:      "persist_failures_total",
				Help:      "History mutations that could not be saved.",
			},
			[]string{"feature", "op"},
		),
		historyRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "lexdesk",
				Name:      "history_records",
				Help:      "Records currently held per feature history.",
			},
			[]string{"feature"},
		),
	}
}

// ObserveRequest records a settled request.
func (m *Metrics) ObserveRequest(feature, outcome string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(feature, outcome).Inc()
	m.requestDuration.WithLabelValues(feature).Observe(elapsed.Seconds())
}

// PersistFailed counts a failed save or clear.
func (m *Metrics) PersistFailed(feature, op string) {
	m.persistFailures.WithLabelValues(feature, op).Inc()
}

// HistorySize sets the record gauge.
func (m *Metrics) HistorySize(feature string, n int) {
	m.historyRecords.WithLabelValues(feature).Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
