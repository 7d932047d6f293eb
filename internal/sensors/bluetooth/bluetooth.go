// Package bluetooth implements the bluetooth SensorDaemon contract (spec
// §4.4). As with wifi, the actual device discovery is an external
// collaborator; this daemon owns only the WorldState keys, cadence, and
// event publication around a pluggable Scanner.
package bluetooth

import (
	"context"
	"errors"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the §4.4 "at ≤15 s cadence" bound.
const Cadence = 15 * time.Second

// Device is one entry of bluetooth.devices.
type Device struct {
	Address  string
	Name     string
	RSSI     int
	Paired   bool
	Connected bool
}

// Scanner is the external collaborator performing the actual discovery.
type Scanner interface {
	Scan(ctx context.Context) ([]Device, error)
}

// ErrNoScanner models "no parser wired in" for this deployment.
var ErrNoScanner = errors.New("bluetooth: no scanner configured")

// NoScanner is the default Scanner: always fails fast so the daemon
// degrades instead of blocking.
type NoScanner struct{}

func (NoScanner) Scan(ctx context.Context) ([]Device, error) { return nil, ErrNoScanner }

// Daemon implements the bluetooth sensor contract.
type Daemon struct {
	*daemon.Base
	world   *worldstate.State
	bus     *eventbus.Bus
	scanner Scanner
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs the bluetooth daemon.
func New(world *worldstate.State, bus *eventbus.Bus, scanner Scanner) *Daemon {
	desc := daemon.Descriptor{
		ID:              "bluetooth",
		Category:        "bluetooth",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:    daemon.NewBase(desc, bus),
		world:   world,
		bus:     bus,
		scanner: scanner,
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
	// §4.3 fast-fail init: a single bounded probe decides presence up front.
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := d.scanner.Scan(probeCtx); err != nil {
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

	devices, err := d.scanner.Scan(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	values := make([]worldstate.Value, len(devices))
	for i, dev := range devices {
		values[i] = worldstate.Map(map[string]worldstate.Value{
			"address":   worldstate.String(dev.Address),
			"name":      worldstate.String(dev.Name),
			"rssi":      worldstate.Number(float64(dev.RSSI)),
			"paired":    worldstate.Bool(dev.Paired),
			"connected": worldstate.Bool(dev.Connected),
		})
	}
	d.world.Update("bluetooth.devices", worldstate.Sequence(values...), 2*Cadence)
}
