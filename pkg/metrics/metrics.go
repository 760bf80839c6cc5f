// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics provides Prometheus instrumentation for the ambient
// stack's observability surface: background task outcomes, simulation
// lifecycle transitions, report-writing progress, and IPC round-trips.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls whether metrics are collected and how they are labeled.
type Config struct {
	// Enabled turns on metrics collection.
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the path to expose metrics on.
	// Default: "/metrics"
	Endpoint string `yaml:"endpoint,omitempty"`

	// Namespace prefixes all metric names.
	// Default: "socialsim"
	Namespace string `yaml:"namespace,omitempty"`
}

// SetDefaults applies default values to Config.
func (c *Config) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "socialsim"
	}
}

// Metrics holds every Prometheus collector the process exposes. A nil
// *Metrics is valid and every Record/Set/Observe method becomes a no-op, so
// callers never need to guard on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	// Task registry.
	tasksEnqueued *prometheus.CounterVec
	tasksByStatus *prometheus.GaugeVec
	taskDuration  *prometheus.HistogramVec

	// Simulation lifecycle.
	simulationTransitions *prometheus.CounterVec
	simulationsRunning    prometheus.Gauge

	// Graph memory updater.
	memoryBatchesSent   *prometheus.CounterVec
	memoryEntriesQueued prometheus.Counter
	memoryEntitiesSaved *prometheus.CounterVec

	// Report agent.
	reportSectionsWritten *prometheus.CounterVec
	reportSectionDuration *prometheus.HistogramVec

	// IPC.
	ipcRoundTrip *prometheus.HistogramVec
	ipcTimeouts  *prometheus.CounterVec
}

// New creates a Metrics instance. Returns nil when cfg is nil or
// disabled; a nil Metrics is a no-op.
func New(cfg *Config) *Metrics {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	cfg.SetDefaults()

	m := &Metrics{registry: prometheus.NewRegistry()}
	m.initTaskMetrics(cfg.Namespace)
	m.initSimulationMetrics(cfg.Namespace)
	m.initMemoryMetrics(cfg.Namespace)
	m.initReportMetrics(cfg.Namespace)
	m.initIPCMetrics(cfg.Namespace)
	return m
}

func (m *Metrics) initTaskMetrics(ns string) {
	m.tasksEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "task", Name: "enqueued_total",
		Help: "Total number of background tasks enqueued.",
	}, []string{"task_type"})

	m.tasksByStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "task", Name: "by_status",
		Help: "Current number of tasks in each status.",
	}, []string{"status"})

	m.taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "task", Name: "duration_seconds",
		Help:    "Task execution duration from running to terminal status.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~13min
	}, []string{"task_type", "status"})

	m.registry.MustRegister(m.tasksEnqueued, m.tasksByStatus, m.taskDuration)
}

func (m *Metrics) initSimulationMetrics(ns string) {
	m.simulationTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "simulation", Name: "transitions_total",
		Help: "Total number of simulation status transitions.",
	}, []string{"from", "to"})

	m.simulationsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "simulation", Name: "running",
		Help: "Number of simulations currently running.",
	})

	m.registry.MustRegister(m.simulationTransitions, m.simulationsRunning)
}

func (m *Metrics) initMemoryMetrics(ns string) {
	m.memoryBatchesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "memory", Name: "batches_sent_total",
		Help: "Total number of activity batches sent to the graph.",
	}, []string{"outcome"})

	m.memoryEntriesQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "memory", Name: "entries_queued_total",
		Help: "Total number of agent activities enqueued for graph memory.",
	})

	m.memoryEntitiesSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "memory", Name: "entities_saved_total",
		Help: "Total number of entities upserted into the knowledge graph.",
	}, []string{"kind"})

	m.registry.MustRegister(m.memoryBatchesSent, m.memoryEntriesQueued, m.memoryEntitiesSaved)
}

func (m *Metrics) initReportMetrics(ns string) {
	m.reportSectionsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "report", Name: "sections_written_total",
		Help: "Total number of report sections written.",
	}, []string{"forced"})

	m.reportSectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "report", Name: "section_duration_seconds",
		Help:    "Duration of the ReACT loop for one section.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"section"})

	m.registry.MustRegister(m.reportSectionsWritten, m.reportSectionDuration)
}

func (m *Metrics) initIPCMetrics(ns string) {
	m.ipcRoundTrip = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "ipc", Name: "round_trip_seconds",
		Help:    "Round-trip latency of an IPC command/response exchange.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
	}, []string{"command"})

	m.ipcTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "ipc", Name: "timeouts_total",
		Help: "Total number of IPC commands that timed out waiting for a response.",
	}, []string{"command"})

	m.registry.MustRegister(m.ipcRoundTrip, m.ipcTimeouts)
}

// RecordTaskEnqueued records a task being added to the registry.
func (m *Metrics) RecordTaskEnqueued(taskType string) {
	if m == nil {
		return
	}
	m.tasksEnqueued.WithLabelValues(taskType).Inc()
}

// SetTasksByStatus reflects the current count of tasks in a given status.
func (m *Metrics) SetTasksByStatus(status string, count int) {
	if m == nil {
		return
	}
	m.tasksByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordTaskDuration records how long a task spent running before reaching
// a terminal status.
func (m *Metrics) RecordTaskDuration(taskType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(taskType, status).Observe(d.Seconds())
}

// RecordSimulationTransition records a status transition and keeps the
// running gauge in sync.
func (m *Metrics) RecordSimulationTransition(from, to string) {
	if m == nil {
		return
	}
	m.simulationTransitions.WithLabelValues(from, to).Inc()
	switch to {
	case "running":
		m.simulationsRunning.Inc()
	case "completed", "failed", "stopped":
		if from == "running" {
			m.simulationsRunning.Dec()
		}
	}
}

// RecordMemoryBatch records the outcome of one graph-memory batch send.
func (m *Metrics) RecordMemoryBatch(outcome string) {
	if m == nil {
		return
	}
	m.memoryBatchesSent.WithLabelValues(outcome).Inc()
}

// RecordMemoryEntryQueued records one agent activity entering the pipeline.
func (m *Metrics) RecordMemoryEntryQueued() {
	if m == nil {
		return
	}
	m.memoryEntriesQueued.Inc()
}

// RecordMemoryEntitySaved records one entity or relationship upsert.
func (m *Metrics) RecordMemoryEntitySaved(kind string) {
	if m == nil {
		return
	}
	m.memoryEntitiesSaved.WithLabelValues(kind).Inc()
}

// RecordReportSection records one completed report section.
func (m *Metrics) RecordReportSection(section string, forced bool, d time.Duration) {
	if m == nil {
		return
	}
	forcedLabel := "false"
	if forced {
		forcedLabel = "true"
	}
	m.reportSectionsWritten.WithLabelValues(forcedLabel).Inc()
	m.reportSectionDuration.WithLabelValues(section).Observe(d.Seconds())
}

// RecordIPCRoundTrip records the latency of one IPC exchange.
func (m *Metrics) RecordIPCRoundTrip(command string, d time.Duration) {
	if m == nil {
		return
	}
	m.ipcRoundTrip.WithLabelValues(command).Observe(d.Seconds())
}

// RecordIPCTimeout records an IPC command that never received a response.
func (m *Metrics) RecordIPCTimeout(command string) {
	if m == nil {
		return
	}
	m.ipcTimeouts.WithLabelValues(command).Inc()
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint. A nil
// Metrics serves 503 so the route can be mounted unconditionally.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
