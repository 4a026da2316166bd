// Package metrics exposes Prometheus instrumentation for duplication runs and
// the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/performance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service collectors.
type Metrics struct {
	Duplications        *prometheus.CounterVec
	DuplicationDuration *prometheus.HistogramVec
	MediaCopies         *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	OplogEntries        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Duplications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postdup_duplications_total",
			Help: "Post duplications by mode (cross_tenant, single) and outcome",
		}, []string{"mode", "outcome"}),
		DuplicationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postdup_duplication_duration_seconds",
			Help:    "Wall time of one post duplication",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		MediaCopies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postdup_media_copies_total",
			Help: "Media replications by outcome (copied, deduplicated, failed)",
		}, []string{"outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postdup_operation_duration_seconds",
			Help:    "Duration of tracked pipeline operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "success"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postdup_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postdup_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OplogEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "postdup_oplog_entries_total",
			Help: "Operation log appends by entry type",
		}, []string{"type"}),
		gatherer: reg,
	}
}

// ObserveMarker feeds completed performance markers into the operation
// histogram. Register it with performance.Tracker.Observe.
func (m *Metrics) ObserveMarker(marker *performance.Marker) {
	success := "true"
	if !marker.Success {
		success = "false"
	}
	m.OperationDuration.WithLabelValues(marker.Operation, success).Observe(marker.Duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordDuplication counts one duplication outcome. Safe on a nil *Metrics.
func (m *Metrics) RecordDuplication(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Duplications.WithLabelValues(mode, outcome).Inc()
	m.DuplicationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordMediaCopy counts one media replication outcome. Safe on a nil *Metrics.
func (m *Metrics) RecordMediaCopy(outcome string) {
	if m == nil {
		return
	}
	m.MediaCopies.WithLabelValues(outcome).Inc()
}

// RecordOplog counts one operation log append. Safe on a nil *Metrics.
func (m *Metrics) RecordOplog(entryType string) {
	if m == nil {
		return
	}
	m.OplogEntries.WithLabelValues(entryType).Inc()
}
