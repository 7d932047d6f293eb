// Package telemetry provides Prometheus metrics for the companion
// daemon: package-level promauto counters, gauges, and histograms
// covering the pipeline/daemon/broadcast domain described in §5 and §9.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Pipeline ───────────────────────────────────────────────────────────

// TickDuration tracks per-tick pipeline latency of each stage.
var TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "aura",
	Name:      "tick_duration_seconds",
	Help:      "Visualization loop stage duration in seconds.",
	Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
}, []string{"stage"})

// SlowTicks counts ticks that exceeded the slow-frame threshold.
var SlowTicks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "slow_ticks_total",
	Help:      "Total ticks whose duration exceeded the slow-frame threshold.",
})

// TicksTotal counts every completed tick.
var TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "ticks_total",
	Help:      "Total completed visualization loop ticks.",
})

// ─── Daemons ────────────────────────────────────────────────────────────

// DaemonState tracks each daemon's current lifecycle state (1 on the
// current state's label, 0 on states the daemon has left).
var DaemonState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "aura",
	Name:      "daemon_state",
	Help:      "Daemon lifecycle state (1=current state, 0=previous state) by daemon id and state.",
}, []string{"daemon", "state"})

// DaemonRestarts counts restart attempts per daemon.
var DaemonRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "daemon_restarts_total",
	Help:      "Total restart attempts per daemon.",
}, []string{"daemon"})

// ─── Event bus ──────────────────────────────────────────────────────────

// EventBusPublished counts published events by category.
var EventBusPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "eventbus_published_total",
	Help:      "Total events published by category.",
}, []string{"category"})

// EventBusDropped counts events dropped due to a slow subscriber.
var EventBusDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "eventbus_dropped_total",
	Help:      "Total events dropped by subscriber id because the subscriber's queue was full.",
}, []string{"subscriber"})

// ─── Inference ──────────────────────────────────────────────────────────

// InferenceState tracks the engine's current state (1=active).
var InferenceState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "aura",
	Name:      "inference_state",
	Help:      "Inference engine state (1=active) by state name.",
}, []string{"state"})

// InferenceExceptions counts inference call failures.
var InferenceExceptions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "inference_exceptions_total",
	Help:      "Total inference exceptions recorded by the exception window.",
})

// ModelLoadDuration tracks model load + warmup latency.
var ModelLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "aura",
	Name:      "model_load_duration_seconds",
	Help:      "Model load and warmup duration in seconds.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
})

// ─── Broadcast ──────────────────────────────────────────────────────────

// BroadcastClients tracks currently connected websocket clients.
var BroadcastClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aura",
	Name:      "broadcast_clients",
	Help:      "Number of currently connected broadcast clients.",
})

// BroadcastDroppedFrames counts frames dropped by the drop-oldest queue.
var BroadcastDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "broadcast_dropped_frames_total",
	Help:      "Total frames dropped across all clients due to a full outbound queue.",
})

// ─── Supervisor ─────────────────────────────────────────────────────────

// HeartbeatAge tracks seconds since the last heartbeat sentinel write.
var HeartbeatAge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aura",
	Name:      "heartbeat_age_seconds",
	Help:      "Seconds since the last heartbeat sentinel write.",
})

// SupervisorRestarts counts process restarts issued by the external
// supervisor.
var SupervisorRestarts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Name:      "supervisor_restarts_total",
	Help:      "Total process restarts issued by the external supervisor.",
})
