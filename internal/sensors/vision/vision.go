// Package vision implements the vision SensorDaemon contract (SPEC_FULL.md
// §4.4 addition): detected-object tracking from a camera frame pipeline.
// The actual frame capture and object detection model are external
// collaborators; this daemon owns the WorldState keys and the
// VISION_OBJECT_ADDED/VISION_OBJECT_LOST event pair.
package vision

import (
	"context"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence bounds how often a detection frame is pulled; the camera and
// detector are free to run faster internally and the daemon just samples
// their latest result.
const Cadence = time.Second / 15

// Object is one detected object in the current frame.
type Object struct {
	ID         string
	Label      string
	Confidence float64
	X, Y, W, H float64
}

// Frame is one detector result.
type Frame struct {
	Objects   []Object
	FrameRate float64
}

// Detector is the external collaborator running the vision model.
type Detector interface {
	Detect(ctx context.Context) (Frame, error)
}

// NoDetector reports the capability as absent.
type NoDetector struct{}

func (NoDetector) Detect(ctx context.Context) (Frame, error) {
	return Frame{}, daemon.ErrHardwareAbsent
}

// Daemon implements the vision sensor contract.
type Daemon struct {
	*daemon.Base
	world    *worldstate.State
	bus      *eventbus.Bus
	detector Detector
	known    map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// New constructs the vision daemon.
func New(world *worldstate.State, bus *eventbus.Bus, detector Detector) *Daemon {
	desc := daemon.Descriptor{
		ID:              "vision",
		Category:        "vision",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:     daemon.NewBase(desc, bus),
		world:    world,
		bus:      bus,
		detector: detector,
		known:    make(map[string]struct{}),
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := d.detector.Detect(probeCtx); err != nil {
		d.SetState(daemon.StateDegraded)
		return nil
	}
	d.SetState(daemon.StateInit)
	return nil
}

func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	defer close(d.done)

	d.SetState(daemon.StateRunning)
	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.done != nil {
		select {
		case <-d.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.SetState(daemon.StateStopped)
	return nil
}

func (d *Daemon) tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, Cadence)
	defer cancel()

	frame, err := d.detector.Detect(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	values := make([]worldstate.Value, len(frame.Objects))
	current := make(map[string]struct{}, len(frame.Objects))
	for i, o := range frame.Objects {
		current[o.ID] = struct{}{}
		values[i] = worldstate.Map(map[string]worldstate.Value{
			"id":         worldstate.String(o.ID),
			"label":      worldstate.String(o.Label),
			"confidence": worldstate.Number(o.Confidence),
			"x":          worldstate.Number(o.X),
			"y":          worldstate.Number(o.Y),
			"w":          worldstate.Number(o.W),
			"h":          worldstate.Number(o.H),
		})
	}
	d.world.Update("vision.detected_objects", worldstate.Sequence(values...), 2*Cadence)
	d.world.Update("vision.frame_rate_hz", worldstate.Number(frame.FrameRate), 2*Cadence)

	for id := range current {
		if _, ok := d.known[id]; !ok {
			d.publish("VISION_OBJECT_ADDED", id)
		}
	}
	for id := range d.known {
		if _, ok := current[id]; !ok {
			d.publish("VISION_OBJECT_LOST", id)
		}
	}
	d.known = current
}

func (d *Daemon) publish(kind, objectID string) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{
		Category: eventbus.CategorySensor,
		Kind:     kind,
		Priority: eventbus.Normal,
		Payload:  objectID,
		SourceID: d.Descriptor().ID,
	})
}
