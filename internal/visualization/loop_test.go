package visualization

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/broadcast"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/feature"
	"github.com/aura-core/aura/internal/inference"
	"github.com/aura-core/aura/internal/worldstate"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	world := worldstate.New()
	probe := feature.NewProbe(feature.MinTTL)
	engine := inference.New(nil) // falls back to the procedural backend
	if _, err := engine.Load(context.Background(), "", 4); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	hub := broadcast.NewHub()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	return New(world, probe, engine, hub, bus, Config{TargetFPS: 1000, ParticleCount: 4})
}

func TestTickRunsAllFiveStagesAndRecordsTimings(t *testing.T) {
	l := newTestLoop(t)
	l.tick(context.Background())

	for s := StageSnapshot; s < stageCount; s++ {
		if len(l.StageTimings(s)) != 1 {
			t.Fatalf("stage %v: expected 1 timing sample, got %d", s, len(l.StageTimings(s)))
		}
	}
	total, slow := l.Stats()
	if total != 1 {
		t.Fatalf("expected 1 total tick, got %d", total)
	}
	if slow != 0 {
		t.Fatalf("expected 0 slow ticks for a fast fallback tick, got %d", slow)
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	l := newTestLoop(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}

func TestTimingWindowCapsAtThreeHundredSamples(t *testing.T) {
	l := newTestLoop(t)
	for i := 0; i < timingWindow+50; i++ {
		l.record(StageInfer, time.Microsecond)
	}
	if got := len(l.StageTimings(StageInfer)); got != timingWindow {
		t.Fatalf("expected timing window capped at %d, got %d", timingWindow, got)
	}
}

func TestNoteEngineStatePublishesNormalThenEscalatesToHigh(t *testing.T) {
	l := newTestLoop(t)
	sub := l.bus.Subscribe(eventbus.CategoryInference, eventbus.Normal)
	defer sub.Unsubscribe()

	for i := 1; i <= fallbackEscalationTicks; i++ {
		l.noteEngineState(inference.StateFallback)
	}

	// Every fallback tick publishes a NORMAL event; the escalation tick
	// additionally publishes a HIGH one, so fallbackEscalationTicks ticks
	// yield fallbackEscalationTicks+1 events.
	want := fallbackEscalationTicks + 1
	var kinds []string
	for len(kinds) < want {
		select {
		case ev := <-sub.Events():
			kinds = append(kinds, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("expected %d published events, got %d: %v", want, len(kinds), kinds)
		}
	}

	for i, kind := range kinds {
		if i == want-1 {
			if kind != "INFERENCE_FALLBACK_ESCALATED" {
				t.Fatalf("expected final event to be the escalation, got %q", kind)
			}
			continue
		}
		if kind != "INFERENCE_FALLBACK_TICK" {
			t.Fatalf("expected intermediate event INFERENCE_FALLBACK_TICK, got %q", kind)
		}
	}
}

func TestBroadcastWithNoClientsIsANoopFanOut(t *testing.T) {
	l := newTestLoop(t)
	l.tick(context.Background())
	if l.hub.ClientCount() != 0 {
		t.Fatal("expected no connected clients in this test, broadcast should be a no-op fan-out")
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	samples []feature.Vector
}

func (r *fakeRecorder) Record(v feature.Vector, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, v)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestSetRecorderCapturesTicksWithoutBlockingTheLoop(t *testing.T) {
	l := newTestLoop(t)
	rec := &fakeRecorder{}
	l.SetRecorder(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.runRecorder(ctx)

	l.tick(context.Background())
	l.tick(context.Background())

	deadline := time.After(time.Second)
	for rec.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 recorded samples, got %d", rec.count())
		case <-time.After(time.Millisecond):
		}
	}
}
