// Package flipper implements the flipper SensorDaemon contract (spec
// §4.4): sub-GHz, NFC, and IR readings from a Flipper Zero-class device
// attached over a serial port. Because the port is a single physical
// resource, this daemon must hold it exclusively via serialport.Manager
// for as long as it runs.
package flipper

import (
	"context"
	"errors"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/serialport"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the flipper polling interval.
const Cadence = 1 * time.Second

// Reading is one poll of the attached device's radio subsystems.
type Reading struct {
	SubGHzLastFreqMHz float64
	SubGHzSignal      bool
	NFCLastUID        string
	IRLastProtocol    string
}

// Link is the external collaborator speaking the device's serial protocol.
type Link interface {
	Poll(ctx context.Context) (Reading, error)
}

// ErrNoLink models "no protocol driver wired in" for this deployment.
var ErrNoLink = errors.New("flipper: no link configured")

// NoLink is the default Link: always fails, so the daemon degrades.
type NoLink struct{}

func (NoLink) Poll(ctx context.Context) (Reading, error) { return Reading{}, ErrNoLink }

// Daemon implements the flipper sensor contract.
type Daemon struct {
	*daemon.Base
	world   *worldstate.State
	ports   *serialport.Manager
	portPath string
	link    Link
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs the flipper daemon. portPath is the serial device it must
// exclusively acquire via ports before polling.
func New(world *worldstate.State, bus *eventbus.Bus, ports *serialport.Manager, portPath string, link Link) *Daemon {
	desc := daemon.Descriptor{
		ID:              "flipper",
		Category:        "flipper",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:     daemon.NewBase(desc, bus),
		world:    world,
		ports:    ports,
		portPath: portPath,
		link:     link,
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
	if err := d.ports.Acquire(d.portPath, d.Descriptor().ID); err != nil {
		// Another daemon already owns this serial port; hardware-absent
		// from this daemon's point of view, not a failure to restart from.
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
			d.ports.Release(d.portPath, d.Descriptor().ID)
			return ctx.Err()
		}
	}
	d.ports.Release(d.portPath, d.Descriptor().ID)
	d.SetState(daemon.StateStopped)
	return nil
}

func (d *Daemon) tick(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, daemon.SerialProbeTimeout)
	defer cancel()

	r, err := d.link.Poll(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	d.world.Update("rf.sub_ghz.last_freq_mhz", worldstate.Number(r.SubGHzLastFreqMHz), 2*Cadence)
	d.world.Update("rf.sub_ghz.signal", worldstate.Bool(r.SubGHzSignal), 2*Cadence)
	if r.NFCLastUID != "" {
		d.world.Update("rf.nfc.last_uid", worldstate.String(r.NFCLastUID), 2*Cadence)
	}
	if r.IRLastProtocol != "" {
		d.world.Update("rf.ir.last_protocol", worldstate.String(r.IRLastProtocol), 2*Cadence)
	}
}
