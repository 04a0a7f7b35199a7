// Package metrics exposes conflict scan and resolution activity as
// Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shift_scheduler"

// Recorder implements application.MetricsRecorder on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	conflicts        prometheus.Gauge
	scans            prometheus.Counter
	scanDuration     prometheus.Histogram
	resolvePasses    prometheus.Counter
	resolveDuration  prometheus.Histogram
	adjusted         prometheus.Counter
	resolved         prometheus.Counter
	snapshotsApplied prometheus.Counter
}

// NewRecorder registers the scheduler collectors together with the Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		conflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflicts",
			Help:      "Entries flagged as conflicting after the last scan or resolution pass.",
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Full snapshot scans run.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning the snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		resolvePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_passes_total",
			Help:      "Resolution passes run.",
		}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent in one resolution pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		adjusted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_adjusted_total",
			Help:      "Snapshot entries whose interval was moved by the resolver.",
		}),
		resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_resolved_total",
			Help:      "Conflicted entries cleared by the resolver.",
		}),
		snapshotsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_applied_total",
			Help:      "Snapshots committed to the live schedule.",
		}),
	}

	r.registry.MustRegister(
		r.conflicts,
		r.scans,
		r.scanDuration,
		r.resolvePasses,
		r.resolveDuration,
		r.adjusted,
		r.resolved,
		r.snapshotsApplied,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ScanCompleted records a full scan that left conflicts entries flagged.
func (r *Recorder) ScanCompleted(conflicts int, elapsed time.Duration) {
	r.scans.Inc()
	r.scanDuration.Observe(elapsed.Seconds())
	r.conflicts.Set(float64(conflicts))
}

// ResolveCompleted records one resolution pass.
func (r *Recorder) ResolveCompleted(adjusted, resolved, remaining int, elapsed time.Duration) {
	r.resolvePasses.Inc()
	r.resolveDuration.Observe(elapsed.Seconds())
	r.adjusted.Add(float64(adjusted))
	r.resolved.Add(float64(resolved))
	r.conflicts.Set(float64(remaining))
}

// SnapshotApplied records a snapshot commit.
func (r *Recorder) SnapshotApplied() {
	r.snapshotsApplied.Inc()
}

// ConflictsTracked records the number of entries currently flagged outside a
// scan or resolution pass.
func (r *Recorder) ConflictsTracked(conflicts int) {
	r.conflicts.Set(float64(conflicts))
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
