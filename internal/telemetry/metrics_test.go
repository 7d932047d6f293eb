package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestTickMetrics(t *testing.T) {
	TickDuration.WithLabelValues("extract").Observe(0.002)
	SlowTicks.Inc()
	TicksTotal.Inc()

	names := gatheredNames(t)
	for _, want := range []string{"aura_tick_duration_seconds", "aura_slow_ticks_total", "aura_ticks_total"} {
		if !names[want] {
			t.Errorf("metric %q not found", want)
		}
	}
}

func TestDaemonMetrics(t *testing.T) {
	DaemonState.WithLabelValues("wifi", "running").Set(1)
	DaemonRestarts.WithLabelValues("bluetooth").Inc()

	names := gatheredNames(t)
	for _, want := range []string{"aura_daemon_state", "aura_daemon_restarts_total"} {
		if !names[want] {
			t.Errorf("metric %q not found", want)
		}
	}
}

func TestEventBusMetrics(t *testing.T) {
	EventBusPublished.WithLabelValues("sensor").Inc()
	EventBusDropped.WithLabelValues("slow-subscriber").Inc()

	names := gatheredNames(t)
	for _, want := range []string{"aura_eventbus_published_total", "aura_eventbus_dropped_total"} {
		if !names[want] {
			t.Errorf("metric %q not found", want)
		}
	}
}

func TestInferenceMetrics(t *testing.T) {
	InferenceState.WithLabelValues("READY").Set(1)
	InferenceExceptions.Inc()
	ModelLoadDuration.Observe(0.3)

	names := gatheredNames(t)
	for _, want := range []string{"aura_inference_state", "aura_inference_exceptions_total", "aura_model_load_duration_seconds"} {
		if !names[want] {
			t.Errorf("metric %q not found", want)
		}
	}
}

func TestBroadcastAndSupervisorMetrics(t *testing.T) {
	BroadcastClients.Set(3)
	BroadcastDroppedFrames.Inc()
	HeartbeatAge.Set(0.5)
	SupervisorRestarts.Inc()

	names := gatheredNames(t)
	for _, want := range []string{
		"aura_broadcast_clients",
		"aura_broadcast_dropped_frames_total",
		"aura_heartbeat_age_seconds",
		"aura_supervisor_restarts_total",
	} {
		if !names[want] {
			t.Errorf("metric %q not found", want)
		}
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	names := gatheredNames(t)
	auraMetrics := 0
	for name := range names {
		if len(name) > 5 && name[:5] == "aura_" {
			auraMetrics++
		}
	}
	if auraMetrics < 12 {
		t.Errorf("expected at least 12 aura_ metrics, got %d", auraMetrics)
	}
}
