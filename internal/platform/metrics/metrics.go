// Package metrics holds all Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared across components.
type Metrics struct {
	LiveConnections  prometheus.Gauge
	EventsEmitted    *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	StorageRetries   prometheus.Counter
	AuthRejections   *prometheus.CounterVec
	RequestLatencies *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pitchside_live_connections",
			Help: "Number of currently connected live event subscribers",
		}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchside_events_emitted_total",
			Help: "Total domain events fanned out, by event name",
		}, []string{"event"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchside_events_dropped_total",
			Help: "Total per-subscriber event deliveries dropped due to full buffers",
		}),
		StorageRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "pitchside_storage_retries_total",
			Help: "Total retry attempts made against transient storage failures",
		}),
		AuthRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchside_auth_rejections_total",
			Help: "Total authentication and authorization rejections, by reason",
		}, []string{"reason"}),
		RequestLatencies: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchside_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// NewDefault registers against the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
