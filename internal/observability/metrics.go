// Package observability holds the Prometheus collectors of the service.
// Collectors are package-level and registered with the default registry,
// which cmd/api serves on /metrics.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fix decisions recorded by RecordFix.
const (
	FixAccepted           = "accepted"
	FixRejectedWorse      = "rejected_worse"
	FixRejectedOutOfOrder = "rejected_out_of_order"
)

var (
	fixesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbook",
		Subsystem: "recorder",
		Name:      "fixes_total",
		Help:      "Number of submitted fixes, labeled by arbiter decision.",
	}, []string{"decision"})

	activeTracksGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trackbook",
		Subsystem: "recorder",
		Name:      "active_tracks",
		Help:      "Number of tracks currently recording.",
	})

	exportsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbook",
		Subsystem: "export",
		Name:      "exports_total",
		Help:      "Number of track exports, labeled by format and result.",
	}, []string{"format", "result"})

	exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trackbook",
		Subsystem: "export",
		Name:      "duration_seconds",
		Help:      "Time spent rendering and writing exports.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"format"})

	prunedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trackbook",
		Subsystem: "export",
		Name:      "files_pruned_total",
		Help:      "Number of expired export files removed.",
	})

	publishFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbook",
		Subsystem: "events",
		Name:      "publish_failed_total",
		Help:      "Number of recording events a sink failed to publish, labeled by sink.",
	}, []string{"sink"})

	requestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trackbook",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests, labeled by method, route pattern and status.",
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(fixesCounter, activeTracksGauge, exportsCounter, exportDuration,
		prunedCounter, publishFailedCounter, requestsCounter)
}

// RecordFix counts one arbiter decision.
func RecordFix(decision string) {
	fixesCounter.WithLabelValues(decision).Inc()
}

// SetActiveTracks sets the number of recording tracks.
func SetActiveTracks(n int) {
	activeTracksGauge.Set(float64(n))
}

// RecordExport counts one export and observes its duration.
// result is "ok" or "error".
func RecordExport(format, result string, d time.Duration) {
	exportsCounter.WithLabelValues(format, result).Inc()
	exportDuration.WithLabelValues(format).Observe(d.Seconds())
}

// RecordPruned adds n removed export files.
func RecordPruned(n int) {
	if n <= 0 {
		return
	}
	prunedCounter.Add(float64(n))
}

// RecordPublishFailure counts one event the named sink failed to publish.
func RecordPublishFailure(sink string) {
	publishFailedCounter.WithLabelValues(sink).Inc()
}

// RecordRequest counts one served request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordRequest(method, route string, status int) {
	requestsCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
