package inference

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aura-core/aura/internal/feature"
	"github.com/aura-core/aura/internal/telemetry"
)

// State is the §4.7 engine lifecycle: Uninitialized → Loading →
// {Ready, Fallback}. Ready → Fallback is permitted on repeated inference
// exceptions; there is no path back to Ready without an explicit reload.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// exceptionThreshold and exceptionWindowDuration implement the §4.7
// escalation rule verbatim: "≥3 in 10 s".
const (
	exceptionThreshold      = 3
	exceptionWindowDuration = 10 * time.Second
)

// minWarmupFrames is the §4.7 floor on warmup pre-roll: "performs ≥5
// warmup inferences."
const minWarmupFrames = 5

// Engine wires a real Accelerator with the always-available procedural
// fallback and the exception-window escalation that switches between
// them. It also watches the model's containing directory for changes so
// an operator dropping in a new model triggers a reload without the
// visualization loop ever seeing a dropped frame (the fallback keeps
// producing frames throughout the reload).
type Engine struct {
	mu           sync.Mutex
	state        State
	primary      Accelerator
	fallback     Accelerator
	using        Accelerator // the backend currently serving Infer
	excs         *exceptionWindow
	opts         LoadOptions
	warmupFrames int

	watcher *fsnotify.Watcher
	watchCh chan struct{}
	done    chan struct{}
}

// New constructs an Engine around primary (the real hardware backend).
// Pass nil to use the Edge TPU stub (no real accelerator binding in this
// build); the procedural fallback is wired in as the second leg by
// default — call SetFallbackMode before Load to pick "quiescent" instead.
func New(primary Accelerator) *Engine {
	if primary == nil {
		primary = newEdgeTPUBackend()
	}
	return &Engine{
		state:        StateUninitialized,
		primary:      primary,
		fallback:     newProceduralBackend(),
		using:        nil,
		excs:         newExceptionWindow(exceptionThreshold, exceptionWindowDuration),
		warmupFrames: minWarmupFrames,
	}
}

// SetFallbackMode selects which §6 `fallback_mode` backend serves frames
// whenever the engine is in Fallback state: "procedural" (the default,
// a slow sphere wobble) or "quiescent" (particles held motionless at
// their base positions). Call before Load; an unrecognized mode is a
// Configuration error (§7), left for the caller to treat as fatal.
func (e *Engine) SetFallbackMode(mode string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var next Accelerator
	switch mode {
	case "", "procedural":
		next = newProceduralBackend()
	case "quiescent":
		next = newQuiescentBackend()
	default:
		return fmt.Errorf("inference: unrecognized fallback_mode %q (want \"procedural\" or \"quiescent\")", mode)
	}

	if e.using == e.fallback {
		e.using = next
	}
	e.fallback = next
	return nil
}

// SetWarmupFrames overrides the §6 `warmup_frames` pre-roll count used
// by the next Load call. Values below the §4.7 floor of 5 are clamped
// up, never down.
func (e *Engine) SetWarmupFrames(n int) {
	if n < minWarmupFrames {
		n = minWarmupFrames
	}
	e.mu.Lock()
	e.warmupFrames = n
	e.mu.Unlock()
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Available reports true only when the real accelerator is serving
// Infer — Fallback frames are still produced, but Available tells a
// caller whether those frames came from the trained model.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateReady
}

// Load initializes the accelerator interpreter, performs the required
// ≥5 warmup inferences, and reports warmup latency. On any failure
// (absent accelerator, missing model, shape mismatch) the engine falls
// back rather than returning an error to the caller — §4.7 frames
// FALLBACK as a normal operating mode, not an error the caller handles.
func (e *Engine) Load(ctx context.Context, modelPath string, particleCount int) (warmup time.Duration, err error) {
	e.mu.Lock()
	e.state = StateLoading
	e.opts = LoadOptions{ParticleCount: particleCount, WarmupFrames: e.warmupFrames}
	primary := e.primary
	fallback := e.fallback
	opts := e.opts
	e.mu.Unlock()

	if particleCount <= 0 {
		return 0, fmt.Errorf("inference: particle count must be positive, got %d", particleCount)
	}
	if err := fallback.Load(ctx, modelPath, opts); err != nil {
		return 0, fmt.Errorf("inference: fallback backend failed to initialize: %w", err)
	}

	start := time.Now()
	loadErr := primary.Load(ctx, modelPath, opts)
	if loadErr == nil {
		loadErr = e.warmup(primary, opts.WarmupFrames)
	}
	elapsed := time.Since(start)

	telemetry.ModelLoadDuration.Observe(elapsed.Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()
	if loadErr != nil {
		e.using = fallback
		e.state = StateFallback
		return elapsed, nil
	}
	e.using = primary
	e.state = StateReady
	e.excs.reset()
	return elapsed, nil
}

func (e *Engine) warmup(a Accelerator, frames int) error {
	if frames < minWarmupFrames {
		frames = minWarmupFrames
	}
	out := make(Frame, e.opts.ParticleCount*3)
	var zero feature.Vector
	for i := 0; i < frames; i++ {
		if err := a.Infer(zero, out); err != nil {
			return err
		}
	}
	return nil
}

// Infer runs one synchronous inference. On a failure from the primary
// backend it records the exception and, once the rolling-window
// threshold trips, permanently escalates to Fallback for this Engine
// instance (until the next successful Load).
func (e *Engine) Infer(v feature.Vector, out Frame) error {
	e.mu.Lock()
	using := e.using
	state := e.state
	e.mu.Unlock()

	if using == nil {
		return fmt.Errorf("inference: Infer called before Load")
	}

	if state == StateFallback {
		return e.fallback.Infer(v, out)
	}

	if err := using.Infer(v, out); err != nil {
		telemetry.InferenceExceptions.Inc()
		e.mu.Lock()
		tripped := e.excs.record(time.Now())
		if tripped {
			e.state = StateFallback
			e.using = e.fallback
		}
		e.mu.Unlock()
		// Never surface the error: the caller still gets a frame this
		// tick, either from a successful fallback retry or a degraded one.
		return e.fallback.Infer(v, out)
	}
	return nil
}

// WatchModelDir starts an fsnotify watch on modelPath's containing
// directory; any write or create event triggers Reload with the same
// path. Cancel ctx to stop watching.
func (e *Engine) WatchModelDir(ctx context.Context, modelPath string, particleCount int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inference: starting model-dir watcher: %w", err)
	}
	dir := filepath.Dir(modelPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("inference: watching %s: %w", dir, err)
	}

	e.mu.Lock()
	e.watcher = watcher
	e.done = make(chan struct{})
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name == modelPath && (ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					_, _ = e.Load(ctx, modelPath, particleCount)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close releases both backends and stops the model-dir watcher, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	watcher := e.watcher
	e.mu.Unlock()
	if watcher != nil {
		watcher.Close()
	}
	_ = e.primary.Close()
	return e.fallback.Close()
}
