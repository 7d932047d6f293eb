// Package wifi implements the wifi SensorDaemon contract (spec §4.4). The
// actual BSSID scan parsing is an external collaborator (§1 explicitly
// places "Wi-Fi/Bluetooth/serial parsers" out of core scope) — this daemon
// owns only the WorldState keys, cadence, and event publication, and calls
// out to a pluggable Scanner for the raw reading.
package wifi

import (
	"context"
	"errors"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the §4.4 "at ≤10 s cadence" bound.
const Cadence = 10 * time.Second

// Network is one entry of wifi.networks.
type Network struct {
	BSSID    string
	SSID     string
	SignalDB int
	Band     string
	Security string
}

// Scanner is the external collaborator that performs the actual scan. A
// real deployment injects an implementation backed by the platform's wifi
// tooling (iwlist, nmcli, CoreWLAN, …); core ships no parser.
type Scanner interface {
	Scan(ctx context.Context) ([]Network, error)
}

// ErrNoScanner is returned by NoScanner, modeling "no parser wired in".
var ErrNoScanner = errors.New("wifi: no scanner configured")

// NoScanner is the default Scanner: it always fails fast, so the daemon
// degrades instead of block. Deployments that care about this capability
// replace it via New's scanner argument.
type NoScanner struct{}

func (NoScanner) Scan(ctx context.Context) ([]Network, error) { return nil, ErrNoScanner }

// Daemon implements the wifi sensor contract.
type Daemon struct {
	*daemon.Base
	world   *worldstate.State
	bus     *eventbus.Bus
	scanner Scanner
	known   map[string]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs the wifi daemon with the given Scanner (use NoScanner{} if
// no platform-specific implementation is available).
func New(world *worldstate.State, bus *eventbus.Bus, scanner Scanner) *Daemon {
	desc := daemon.Descriptor{
		ID:              "wifi",
		Category:        "wifi",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:    daemon.NewBase(desc, bus),
		world:   world,
		bus:     bus,
		scanner: scanner,
		known:   make(map[string]struct{}),
	}
}

func (d *Daemon) Initialize(ctx context.Context) error {
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

	networks, err := d.scanner.Scan(probeCtx)
	if err != nil {
		if d.State() != daemon.StateDegraded {
			d.SetState(daemon.StateDegraded)
		}
		return
	}
	if d.State() == daemon.StateDegraded {
		d.SetState(daemon.StateRunning)
	}

	seqValues := make([]worldstate.Value, len(networks))
	current := make(map[string]struct{}, len(networks))
	for i, n := range networks {
		current[n.BSSID] = struct{}{}
		seqValues[i] = worldstate.Map(map[string]worldstate.Value{
			"bssid":      worldstate.String(n.BSSID),
			"ssid":       worldstate.String(n.SSID),
			"signal_dbm": worldstate.Number(float64(n.SignalDB)),
			"band":       worldstate.String(n.Band),
			"security":   worldstate.String(n.Security),
		})
	}
	d.world.Update("wifi.networks", worldstate.Sequence(seqValues...), 2*Cadence)

	if setDiffers(d.known, current) {
		d.publish("WIFI_CHANGED")
	}
	d.known = current
}

func (d *Daemon) publish(kind string) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{
		Category: eventbus.CategorySensor,
		Kind:     kind,
		Priority: eventbus.Normal,
		SourceID: d.Descriptor().ID,
	})
}

func setDiffers(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return true
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return true
		}
	}
	return false
}
