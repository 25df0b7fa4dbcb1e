// Package metrics exposes Prometheus instrumentation for discovery and the
// task pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wspsr"

type Metrics struct {
	registry *prometheus.Registry

	rescans          prometheus.Counter
	observations     *prometheus.CounterVec
	inspectFailures  *prometheus.CounterVec
	tracksRegistered prometheus.Counter
	transitions      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	commands         *prometheus.CounterVec
	tasksInFlight    prometheus.Gauge
}

// New builds a registry holding the wspsr collectors plus the Go runtime and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		rescans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "rescans_total",
			Help:      "Snapshot rescans of the watched directory.",
		}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "observations_total",
			Help:      "Observations emitted by the inspection worker by kind.",
		}, []string{"kind"}),
		inspectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "inspect_failures_total",
			Help:      "Paths skipped by the inspection worker by reason.",
		}, []string{"reason"}),
		tracksRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "tracks_registered_total",
			Help:      "Tracks added to the session registry.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "status_transitions_total",
			Help:      "Task status changes by target status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages by stage and result.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"stage", "result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "commands_total",
			Help:      "External commands run by program and result.",
		}, []string{"program", "result"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tasks_in_flight",
			Help:      "Tasks currently progressing through the pipeline.",
		}),
	}

	registry.MustRegister(
		m.rescans,
		m.observations,
		m.inspectFailures,
		m.tracksRegistered,
		m.transitions,
		m.stageDuration,
		m.commands,
		m.tasksInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Rescan() {
	if m == nil {
		return
	}
	m.rescans.Inc()
}

// Observation counts one emitted observation; kind is "file" or "member".
func (m *Metrics) Observation(kind string) {
	if m == nil {
		return
	}
	m.observations.WithLabelValues(kind).Inc()
}

func (m *Metrics) InspectFailure(reason string) {
	if m == nil {
		return
	}
	m.inspectFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) TrackRegistered() {
	if m == nil {
		return
	}
	m.tracksRegistered.Inc()
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// StageFinished records how long a stage ran; result is "ok" or "failed".
func (m *Metrics) StageFinished(stage, result string, elapsed time.Duration) {
	if m == nil || elapsed < 0 {
		return
	}
	m.stageDuration.WithLabelValues(stage, result).Observe(elapsed.Seconds())
}

func (m *Metrics) Command(program string, exitCode int) {
	if m == nil {
		return
	}
	result := "ok"
	if exitCode != 0 {
		result = "failed"
	}
	m.commands.WithLabelValues(program, result).Inc()
}

// TaskStarted and TaskFinished bracket one track's pipeline run.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
}
