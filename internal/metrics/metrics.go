// Public domain.

// Package metrics counts the work done by a batch run.  Counters can be
// written to a node exporter textfile at the end of the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use through a nil pointer, which counts nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsIngested  prometheus.Counter
	FilesFailed      prometheus.Counter
	ContainersMerged prometheus.Counter
	ZonesReconciled  prometheus.Counter
	ZonesDeferred    prometheus.Counter
	ZonesFailed      prometheus.Counter
	LockWait         prometheus.Histogram
}

// New registers the counters on a new registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_records_ingested_total",
			Help: "Records appended to raw zone files.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_files_failed_total",
			Help: "Input files skipped because they could not be parsed.",
		}),
		ContainersMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_containers_merged_total",
			Help: "Containers merged into another container.",
		}),
		ZonesReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_zones_reconciled_total",
			Help: "Primary zones processed by reconciliation.",
		}),
		ZonesDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_zones_deferred_total",
			Help: "Adjacent zones skipped because they had no data yet.",
		}),
		ZonesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apass_zones_failed_total",
			Help: "Zone units of work that failed.",
		}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apass_lock_wait_seconds",
			Help:    "Time spent waiting for zone locks.",
			Buckets: prometheus.ExponentialBuckets(.001, 4, 9),
		}),
	}
	m.Registry.MustRegister(m.RecordsIngested, m.FilesFailed, m.ContainersMerged,
		m.ZonesReconciled, m.ZonesDeferred, m.ZonesFailed, m.LockWait)
	return m
}

func (m *Metrics) AddIngested(n int) {
	if m != nil {
		m.RecordsIngested.Add(float64(n))
	}
}

func (m *Metrics) FileFailed() {
	if m != nil {
		m.FilesFailed.Inc()
	}
}

func (m *Metrics) AddMerged(n int) {
	if m != nil {
		m.ContainersMerged.Add(float64(n))
	}
}

func (m *Metrics) Reconciled() {
	if m != nil {
		m.ZonesReconciled.Inc()
	}
}

func (m *Metrics) Deferred() {
	if m != nil {
		m.ZonesDeferred.Inc()
	}
}

func (m *Metrics) Failed() {
	if m != nil {
		m.ZonesFailed.Inc()
	}
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}

// WriteFile writes all counters in the text exposition format.
func (m *Metrics) WriteFile(fn string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(fn, m.Registry)
}
