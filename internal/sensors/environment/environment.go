// Package environment implements the environment SensorDaemon contract
// (spec §4.4 additions): ambient temperature, humidity, pressure, and light
// level, written only when the underlying sensor reports it is present.
package environment

import (
	"context"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the environment sensor polling interval.
const Cadence = 10 * time.Second

// Reading is a single sample from the environment sensor package. Any
// field may be absent (IsZero-style flags) when that sub-sensor isn't
// populated on a given board.
type Reading struct {
	HasTemperature bool
	TemperatureC   float64
	HasHumidity    bool
	HumidityPct    float64
	HasPressure    bool
	PressureHPa    float64
	HasLight       bool
	LightLux       float64
}

// Reader is the external collaborator that reads the physical sensor.
type Reader interface {
	Read(ctx context.Context) (Reading, error)
}

// NoReader reports the sensor as absent, which is the safe default for a
// board with no environment sensor wired in.
type NoReader struct{}

func (NoReader) Read(ctx context.Context) (Reading, error) {
	return Reading{}, daemon.ErrHardwareAbsent
}

// Daemon implements the environment sensor contract.
type Daemon struct {
	*daemon.Base
	world  *worldstate.State
	reader Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs the environment daemon.
func New(world *worldstate.State, bus *eventbus.Bus, reader Reader) *Daemon {
	desc := daemon.Descriptor{
		ID:              "environment",
		Category:        "environment",
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
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	r, err := d.reader.Read(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	if r.HasTemperature {
		d.world.Update("environment.temperature_c", worldstate.Number(r.TemperatureC), 2*Cadence)
	}
	if r.HasHumidity {
		d.world.Update("environment.humidity_pct", worldstate.Number(r.HumidityPct), 2*Cadence)
	}
	if r.HasPressure {
		d.world.Update("environment.pressure_hpa", worldstate.Number(r.PressureHPa), 2*Cadence)
	}
	if r.HasLight {
		d.world.Update("environment.light_lux", worldstate.Number(r.LightLux), 2*Cadence)
	}
}
