// Package metrics exposes Prometheus collectors for the command queue, the
// core thread executor and the core object manager.
//
// A nil *Metrics is valid and records nothing, so components take it as an
// optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "splitcore"

// Metrics groups every collector the runtime updates.
type Metrics struct {
	CommandsQueued   *prometheus.CounterVec
	CommandsExecuted prometheus.Counter
	CommandsCanceled prometheus.Counter
	Flushes          *prometheus.CounterVec
	BuffersReused    prometheus.Counter
	PlaybackDuration prometheus.Histogram
	Submissions      *prometheus.CounterVec
	ObjectsSynced    prometheus.Counter
	LiveObjects      prometheus.Gauge
	DirtyObjects     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid global registry conflicts.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CommandsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "commands_queued_total",
			Help:      "Commands appended to a queue by synchronization policy",
		}, []string{"policy"}),
		CommandsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "commands_executed_total",
			Help:      "Commands executed during playback",
		}),
		CommandsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "commands_canceled_total",
			Help:      "Commands discarded by CancelAll before flush",
		}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "flushes_total",
			Help:      "Queue flushes by synchronization policy",
		}, []string{"policy"}),
		BuffersReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "buffers_reused_total",
			Help:      "Flushes served from the free list instead of a new allocation",
		}),
		PlaybackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "playback_duration_seconds",
			Help:      "Time spent executing one buffer",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corethread",
			Name:      "submissions_total",
			Help:      "Accessor buffers handed to the core thread",
		}, []string{"blocking"}),
		ObjectsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coreobject",
			Name:      "synced_total",
			Help:      "Dirty core objects synchronized to their core counterpart",
		}),
		LiveObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coreobject",
			Name:      "live",
			Help:      "Registered core objects",
		}),
		DirtyObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coreobject",
			Name:      "dirty",
			Help:      "Core objects waiting for the next sync pass",
		}),
	}

	collectors := []prometheus.Collector{
		m.CommandsQueued, m.CommandsExecuted, m.CommandsCanceled, m.Flushes,
		m.BuffersReused, m.PlaybackDuration, m.Submissions, m.ObjectsSynced,
		m.LiveObjects, m.DirtyObjects,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Queued records one command appended under policy.
func (m *Metrics) Queued(policy string) {
	if m == nil {
		return
	}
	m.CommandsQueued.WithLabelValues(policy).Inc()
}

// Canceled records n commands dropped by CancelAll.
func (m *Metrics) Canceled(n int) {
	if m == nil || n == 0 {
		return
	}
	m.CommandsCanceled.Add(float64(n))
}

// Flushed records a flush and whether its replacement buffer was reused.
func (m *Metrics) Flushed(policy string, reused bool) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(policy).Inc()
	if reused {
		m.BuffersReused.Inc()
	}
}

// Played records one executed buffer.
func (m *Metrics) Played(commands int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandsExecuted.Add(float64(commands))
	m.PlaybackDuration.Observe(elapsed.Seconds())
}

// Submitted records an accessor submission.
func (m *Metrics) Submitted(blocking bool) {
	if m == nil {
		return
	}
	label := "false"
	if blocking {
		label = "true"
	}
	m.Submissions.WithLabelValues(label).Inc()
}

// Synced records objects synchronized in one pass.
func (m *Metrics) Synced(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ObjectsSynced.Add(float64(n))
}

// SetObjects updates the live and dirty object gauges.
func (m *Metrics) SetObjects(live, dirty int) {
	if m == nil {
		return
	}
	m.LiveObjects.Set(float64(live))
	m.DirtyObjects.Set(float64(dirty))
}
