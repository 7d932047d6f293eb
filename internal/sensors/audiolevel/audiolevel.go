// Package audiolevel implements the audio-level SensorDaemon contract
// (SPEC_FULL.md §4.4 addition): RMS and peak loudness sampled at up to
// 20Hz, used by the feature extractor as a cheap ambient-sound proxy
// without any speech/voice processing (explicitly out of core scope).
package audiolevel

import (
	"context"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the §4.4 "at ≤20Hz" bound.
const Cadence = time.Second / 20

// Level is one loudness sample, in dBFS (≤0, silence is very negative).
type Level struct {
	RMSDbFS  float64
	PeakDbFS float64
}

// Meter is the external collaborator reading the audio input device.
type Meter interface {
	Read(ctx context.Context) (Level, error)
}

// NoMeter reports the sensor as absent.
type NoMeter struct{}

func (NoMeter) Read(ctx context.Context) (Level, error) {
	return Level{}, daemon.ErrHardwareAbsent
}

// Daemon implements the audio-level sensor contract.
type Daemon struct {
	*daemon.Base
	world  *worldstate.State
	meter  Meter
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs the audio-level daemon.
func New(world *worldstate.State, bus *eventbus.Bus, meter Meter) *Daemon {
	desc := daemon.Descriptor{
		ID:              "audio-level",
		Category:        "audio-level",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:  daemon.NewBase(desc, bus),
		world: world,
		meter: meter,
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := d.meter.Read(probeCtx); err != nil {
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

	l, err := d.meter.Read(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	d.world.Update("audio.rms_dbfs", worldstate.Number(l.RMSDbFS), 2*Cadence)
	d.world.Update("audio.peak_dbfs", worldstate.Number(l.PeakDbFS), 2*Cadence)
}
