// Package metrics defines the Prometheus collectors for the publish endpoint
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Publish outcomes used as the "outcome" label
const (
	OutcomeWritten          = "written"
	OutcomeSkipped          = "skipped"
	OutcomeBadRequest       = "bad_request"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeError            = "error"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	PublishRequestsTotal *prometheus.CounterVec
	PublishDuration      *prometheus.HistogramVec
	BytesWrittenTotal    prometheus.Counter
	NotificationsTotal   prometheus.Counter
}

// New creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PublishRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summary_publish_requests_total",
				Help: "Total publish requests by outcome.",
			},
			[]string{"outcome"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "summary_publish_duration_seconds",
				Help:    "Publish handling latency in seconds, by outcome.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		BytesWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "summary_publish_bytes_written_total",
				Help: "Total bytes of summary blobs written to the object store.",
			},
		),
		NotificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "summary_publish_notifications_total",
				Help: "Operator notifications attempted.",
			},
		),
	}

	m.registry.MustRegister(
		m.PublishRequestsTotal,
		m.PublishDuration,
		m.BytesWrittenTotal,
		m.NotificationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObservePublish records one finished request. Safe on a nil receiver.
func (m *Metrics) ObservePublish(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PublishRequestsTotal.WithLabelValues(outcome).Inc()
	m.PublishDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddBytesWritten counts bytes persisted by a write. Safe on a nil receiver.
func (m *Metrics) AddBytesWritten(n int64) {
	if m == nil {
		return
	}
	m.BytesWrittenTotal.Add(float64(n))
}

// IncNotifications counts an operator alert. Safe on a nil receiver.
func (m *Metrics) IncNotifications() {
	if m == nil {
		return
	}
	m.NotificationsTotal.Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
