// Package visualization implements the VisualizationLoop (§4.9): the
// single 60Hz ticker-driven loop that carries a world snapshot through
// feature extraction, inference, interpolation, and broadcast every tick.
// It runs once immediately on start, then on a ticker, and is
// context-cancellable.
package visualization

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aura-core/aura/internal/broadcast"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/feature"
	"github.com/aura-core/aura/internal/inference"
	"github.com/aura-core/aura/internal/particles"
	"github.com/aura-core/aura/internal/telemetry"
	"github.com/aura-core/aura/internal/worldstate"
)

// DefaultTargetFPS is the default tick rate (§4.9).
const DefaultTargetFPS = 60

// DefaultSlowFrameThreshold is how long a tick can run before it's logged
// as slow.
const DefaultSlowFrameThreshold = 20 * time.Millisecond

// fallbackEscalationTicks is how many consecutive fallback-on-exception
// ticks trigger a logged escalation, per §4.9.
const fallbackEscalationTicks = 3

// timingWindow is the rolling per-stage sample count used for reporting.
const timingWindow = 300

// Stage names the five per-tick pipeline steps, used as timing labels.
type Stage int

const (
	StageSnapshot Stage = iota
	StageExtract
	StageInfer
	StageInterpolate
	StageBroadcast
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageSnapshot:
		return "snapshot"
	case StageExtract:
		return "extract"
	case StageInfer:
		return "infer"
	case StageInterpolate:
		return "interpolate"
	case StageBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Recorder persists a feature vector extracted on a tick for later
// offline model retraining (§6 persisted state layout). Implemented by
// *dataset.Store; kept as a small interface here so visualization never
// imports the storage package directly.
type Recorder interface {
	Record(v feature.Vector, at time.Time) error
}

type recordSample struct {
	v  feature.Vector
	at time.Time
}

// Loop owns the full per-tick pipeline: snapshot -> extract -> infer ->
// interpolate -> broadcast.
type Loop struct {
	world         *worldstate.State
	probe         *feature.Probe
	engine        *inference.Engine
	interpolator  *particles.Interpolator
	hub           *broadcast.Hub
	bus           *eventbus.Bus
	particleCount int
	targetPeriod  time.Duration
	slowThreshold time.Duration

	recorder Recorder
	recordCh chan recordSample

	mu                  sync.Mutex
	timings             [stageCount][]time.Duration
	lastState           inference.State
	consecutiveFallback int
	totalTicks          int64
	slowTicks           int64
}

// Config bundles the Loop's tunables (spec §5 config keys).
type Config struct {
	TargetFPS          int
	ParticleCount      int
	InterpolationAlpha float64
	SlowFrameThreshold time.Duration
}

// New constructs a Loop wiring every pipeline stage together. bus may be
// nil, in which case fallback-state transitions are still logged but no
// event is published.
func New(world *worldstate.State, probe *feature.Probe, engine *inference.Engine, hub *broadcast.Hub, bus *eventbus.Bus, cfg Config) *Loop {
	fps := cfg.TargetFPS
	if fps <= 0 {
		fps = DefaultTargetFPS
	}
	slow := cfg.SlowFrameThreshold
	if slow <= 0 {
		slow = DefaultSlowFrameThreshold
	}
	alpha := cfg.InterpolationAlpha
	if alpha <= 0 {
		alpha = 1
	}
	return &Loop{
		world:         world,
		probe:         probe,
		engine:        engine,
		interpolator:  particles.New(alpha),
		hub:           hub,
		bus:           bus,
		particleCount: cfg.ParticleCount,
		targetPeriod:  time.Second / time.Duration(fps),
		slowThreshold: slow,
	}
}

// SetRecorder attaches an optional dataset recorder. Each tick's feature
// vector is handed to it on a bounded, non-blocking queue so a slow or
// stalled database write never threatens the frame budget; vectors are
// dropped, not queued indefinitely, when the recorder can't keep up.
func (l *Loop) SetRecorder(r Recorder) {
	l.recorder = r
	l.recordCh = make(chan recordSample, 32)
}

// Run drives the tick loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l.recorder != nil {
		go l.runRecorder(ctx)
	}

	l.tick(ctx)

	ticker := time.NewTicker(l.targetPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) runRecorder(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-l.recordCh:
			if err := l.recorder.Record(s.v, s.at); err != nil {
				log.Printf("[visualization] dataset record failed: %v", err)
			}
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	tickStart := time.Now()

	t0 := time.Now()
	snap := l.world.GetSnapshot()
	l.record(StageSnapshot, time.Since(t0))

	t0 = time.Now()
	reading := l.probe.Sample(tickStart)
	v := feature.Extract(snap, reading)
	l.record(StageExtract, time.Since(t0))

	if l.recordCh != nil {
		select {
		case l.recordCh <- recordSample{v: v, at: tickStart}:
		default:
		}
	}

	frame := make(inference.Frame, l.particleCount*3)
	t0 = time.Now()
	_ = l.engine.Infer(v, frame)
	l.record(StageInfer, time.Since(t0))
	l.noteEngineState(l.engine.State())

	t0 = time.Now()
	smoothed := l.interpolator.Smooth(frame)
	l.record(StageInterpolate, time.Since(t0))

	t0 = time.Now()
	l.hub.BroadcastFrame(smoothed)
	l.record(StageBroadcast, time.Since(t0))

	elapsed := time.Since(tickStart)
	l.mu.Lock()
	l.totalTicks++
	if elapsed > l.slowThreshold {
		l.slowTicks++
	}
	l.mu.Unlock()

	telemetry.TicksTotal.Inc()
	if elapsed > l.slowThreshold {
		telemetry.SlowTicks.Inc()
		log.Printf("[visualization] slow tick: %v (threshold %v)", elapsed, l.slowThreshold)
	}
}

// noteEngineState tracks the inference engine's state across ticks. Every
// fallback tick publishes a NORMAL INFERENCE_FALLBACK_TICK event, and a
// run of fallbackEscalationTicks in a row is escalated once per episode —
// the engine itself never recovers to Ready without an explicit reload,
// so this only needs to fire once per Ready->Fallback transition rather
// than escalate again on every subsequent tick.
func (l *Loop) noteEngineState(state inference.State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state != l.lastState {
		log.Printf("[visualization] inference engine state changed: %v -> %v", l.lastState, state)
		telemetry.InferenceState.WithLabelValues(l.lastState.String()).Set(0)
		telemetry.InferenceState.WithLabelValues(state.String()).Set(1)
		l.lastState = state
		l.consecutiveFallback = 0
	}

	if state != inference.StateFallback {
		l.consecutiveFallback = 0
		return
	}

	l.consecutiveFallback++
	l.publish(eventbus.Normal, "INFERENCE_FALLBACK_TICK", l.consecutiveFallback)
	if l.consecutiveFallback == fallbackEscalationTicks {
		log.Printf("[visualization] %d consecutive ticks in fallback state", l.consecutiveFallback)
		l.publish(eventbus.High, "INFERENCE_FALLBACK_ESCALATED", l.consecutiveFallback)
		if l.hub != nil {
			_ = l.hub.BroadcastState(broadcast.StateMessage{
				Type: "inference_degraded",
				TS:   time.Now(),
				Data: map[string]any{"consecutive_fallback_ticks": l.consecutiveFallback},
			})
		}
	}
}

// publish emits a visualization-pipeline event on the shared bus. bus is
// optional: a nil bus (e.g. in unit tests that don't care about event
// delivery) silently skips publication.
func (l *Loop) publish(priority eventbus.Priority, kind string, consecutiveFallback int) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(eventbus.Event{
		Category: eventbus.CategoryInference,
		Kind:     kind,
		Priority: priority,
		Payload:  consecutiveFallback,
	})
}

func (l *Loop) record(stage Stage, d time.Duration) {
	telemetry.TickDuration.WithLabelValues(stage.String()).Observe(d.Seconds())

	l.mu.Lock()
	defer l.mu.Unlock()
	samples := l.timings[stage]
	samples = append(samples, d)
	if len(samples) > timingWindow {
		samples = samples[len(samples)-timingWindow:]
	}
	l.timings[stage] = samples
}

// StageTimings returns a copy of the rolling timing samples for stage.
func (l *Loop) StageTimings(stage Stage) []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]time.Duration, len(l.timings[stage]))
	copy(out, l.timings[stage])
	return out
}

// Stats reports total and slow tick counts since the loop started.
func (l *Loop) Stats() (total, slow int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalTicks, l.slowTicks
}
