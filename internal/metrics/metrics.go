// Package metrics registers prometheus instrumentation for the uplink.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the upload path records into. Each Metrics
// instance owns its own registry so tests can construct one per test
// without collector name collisions.
type Metrics struct {
	registry *prometheus.Registry

	UploadsAccepted prometheus.Counter
	UploadsRejected *prometheus.CounterVec
	StorageFailures prometheus.Counter
	UploadBytes     prometheus.Histogram
	UploadRows      prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.UploadsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uplink_uploads_accepted_total",
		Help: "Uploads validated and durably stored.",
	})
	m.UploadsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uplink_uploads_rejected_total",
		Help: "Uploads rejected before storage, by reason.",
	}, []string{"reason"})
	m.StorageFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uplink_storage_failures_total",
		Help: "Valid uploads lost to storage put failures.",
	})
	m.UploadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "uplink_upload_bytes",
		Help:    "Size of accepted payloads in bytes.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
	m.UploadRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "uplink_upload_rows",
		Help:    "Data rows per accepted payload.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	m.registry.MustRegister(
		m.UploadsAccepted,
		m.UploadsRejected,
		m.StorageFailures,
		m.UploadBytes,
		m.UploadRows,
	)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
