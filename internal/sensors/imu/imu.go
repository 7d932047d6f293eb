// Package imu implements the imu SensorDaemon contract (SPEC_FULL.md
// §4.4 addition): accelerometer and gyroscope 3-vectors sampled at up to
// 60Hz, feeding the feature extractor's motion fields.
package imu

import (
	"context"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the §4.4 "at ≤60Hz" bound.
const Cadence = time.Second / 60

// Vector3 is a 3-axis reading.
type Vector3 struct{ X, Y, Z float64 }

// Sample is one IMU reading.
type Sample struct {
	Accel Vector3
	Gyro  Vector3
}

// Reader is the external collaborator delivering IMU samples.
type Reader interface {
	Read(ctx context.Context) (Sample, error)
}

// NoReader reports the sensor as absent.
type NoReader struct{}

func (NoReader) Read(ctx context.Context) (Sample, error) {
	return Sample{}, daemon.ErrHardwareAbsent
}

// Daemon implements the imu sensor contract.
type Daemon struct {
	*daemon.Base
	world  *worldstate.State
	reader Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs the imu daemon.
func New(world *worldstate.State, bus *eventbus.Bus, reader Reader) *Daemon {
	desc := daemon.Descriptor{
		ID:              "imu",
		Category:        "imu",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:   daemon.NewBase(desc, bus),
		world:  world,
		reader: reader,
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := d.reader.Read(probeCtx); err != nil {
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
	s, err := d.reader.Read(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	d.world.Update("imu.accel", vectorValue(s.Accel), 2*Cadence)
	d.world.Update("imu.gyro", vectorValue(s.Gyro), 2*Cadence)
}

func vectorValue(v Vector3) worldstate.Value {
	return worldstate.Sequence(
		worldstate.Number(v.X),
		worldstate.Number(v.Y),
		worldstate.Number(v.Z),
	)
}
