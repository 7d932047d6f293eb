package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/telemetry"
)

// ErrHardwareAbsent is the §7 error-taxonomy sentinel a daemon's probe
// returns when the expected device simply isn't present on this board. The
// daemon manager treats this as a normal, loggable non-start rather than a
// failure subject to the restart policy.
var ErrHardwareAbsent = errors.New("daemon: expected hardware not present")

// Daemon is the contract every long-running sensor/supervisory task
// implements (§4.3). Initialize runs synchronously and reports
// success/failure; Run is the cooperative loop body, expected to return
// promptly when ctx is canceled; Stop must return within 3s.
type Daemon interface {
	Descriptor() Descriptor
	Initialize(ctx context.Context) error
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
	State() State
}

// StopGrace is the §4.3 contract bound on Stop().
const StopGrace = 3 * time.Second

// Probe timeout kinds, §5: every external call has a timeout.
const (
	SerialProbeTimeout = 2 * time.Second
	SubprocessTimeoutMin = 2 * time.Second
	SubprocessTimeoutMax = 15 * time.Second
	SocketWriteTimeout   = time.Second
)

// Base implements the state machine, event publication, and restart
// accounting shared by every concrete daemon, so a sensor daemon only has
// to implement the hardware-specific Run body. This generalizes the
// teacher's single `Daemon` struct (which wires many independent
// subsystems behind one process lifecycle) down to one daemon instance's
// own lifecycle.
type Base struct {
	desc  Descriptor
	bus   *eventbus.Bus
	state State

	failures []time.Time // failure timestamps within the rolling window
}

// NewBase constructs the shared lifecycle state for a concrete daemon.
func NewBase(desc Descriptor, bus *eventbus.Bus) *Base {
	return &Base{desc: desc, bus: bus, state: StateInit}
}

func (b *Base) Descriptor() Descriptor { return b.desc }
func (b *Base) State() State           { return b.state }

// publish emits a daemon lifecycle event; kind is one of INIT_STARTED,
// INIT_FAILED, RUNNING, DEGRADED, STOPPED (§4.3).
func (b *Base) publish(kind string, priority eventbus.Priority, payload any) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(eventbus.Event{
		Category: eventbus.CategoryDaemon,
		Kind:     kind,
		Priority: priority,
		Payload:  payload,
		SourceID: b.desc.ID,
	})
}

// SetState transitions the daemon's state and publishes the matching event.
func (b *Base) SetState(s State) {
	telemetry.DaemonState.WithLabelValues(b.desc.ID, b.state.String()).Set(0)
	b.state = s
	telemetry.DaemonState.WithLabelValues(b.desc.ID, s.String()).Set(1)
	switch s {
	case StateInit:
		b.publish("INIT_STARTED", eventbus.Normal, nil)
	case StateRunning:
		b.publish("RUNNING", eventbus.Normal, nil)
	case StateDegraded:
		b.publish("DEGRADED", eventbus.High, nil)
	case StateStopped:
		b.publish("STOPPED", eventbus.Normal, nil)
	case StateFailed:
		b.publish("INIT_FAILED", eventbus.High, nil)
	}
}

// RecordFailure appends a failure timestamp, evicts entries outside the
// policy's rolling window, and reports whether the daemon should still be
// restarted (true) or has exhausted its policy and must transition to
// Failed (false).
func (b *Base) RecordFailure(now time.Time) (shouldRestart bool) {
	policy := b.desc.Restart
	switch policy.Kind {
	case RestartNever:
		return false
	case RestartAlways:
		return true
	}

	window := policy.RollingWindow
	if window <= 0 {
		window = 10 * time.Minute
	}
	cutoff := now.Add(-window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	b.failures = kept
	telemetry.DaemonRestarts.WithLabelValues(b.desc.ID).Inc()

	if len(b.failures) > policy.MaxRestarts {
		b.publish("RESTART_EXHAUSTED", eventbus.High, len(b.failures))
		return false
	}
	return true
}
