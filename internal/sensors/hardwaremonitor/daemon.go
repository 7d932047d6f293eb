package hardwaremonitor

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Cadence is the §4.4 hardware-monitor polling interval.
const Cadence = 5 * time.Second

// globs are the device path patterns the monitor diffs each tick to decide
// HARDWARE_ADDED/HARDWARE_REMOVED. Kept small and portable; the list is
// fixed in this package and no Config field changes it.
var globs = []string{"/dev/tty*", "/dev/input/*", "/dev/video*"}

// Daemon implements the hardware-monitor sensor contract (§4.4): it writes
// hardware.* keys to WorldState at Cadence and emits HARDWARE_ADDED/
// HARDWARE_REMOVED on a set-difference of enumerated device paths.
type Daemon struct {
	*daemon.Base
	world  *worldstate.State
	bus    *eventbus.Bus
	known  map[string]struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs the hardware-monitor daemon.
func New(world *worldstate.State, bus *eventbus.Bus) *Daemon {
	desc := daemon.Descriptor{
		ID:              "hardware-monitor",
		Category:        "hardware-monitor",
		DefaultInterval: Cadence,
		Restart:         daemon.OnFailure(5),
	}
	return &Daemon{
		Base:  daemon.NewBase(desc, bus),
		world: world,
		bus:   bus,
		known: make(map[string]struct{}),
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

	d.tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.tick()
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

func (d *Daemon) tick() {
	thermal := probeThermal()
	d.world.Update("hardware.cpu_temp_c", worldstate.Number(float64(thermal.CPUCelsius)), 2*Cadence)
	d.world.Update("hardware.gpu_temp_c", worldstate.Number(float64(thermal.GPUCelsius)), 2*Cadence)

	if battery := probeBattery(); battery.Present {
		d.world.Update("hardware.battery_percent", worldstate.Number(float64(battery.Percent)), 2*Cadence)
		d.world.Update("hardware.battery_charging", worldstate.Bool(battery.Charging), 2*Cadence)
	}

	current := enumerateDevices()
	d.world.Update("hardware.devices", worldstate.Sequence(stringsToValues(current)...), 2*Cadence)

	added, removed := diff(d.known, current)
	for _, path := range added {
		d.publishDeviceEvent("HARDWARE_ADDED", path)
	}
	for _, path := range removed {
		d.publishDeviceEvent("HARDWARE_REMOVED", path)
	}
	d.known = toSet(current)
}

func (d *Daemon) publishDeviceEvent(kind, path string) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{
		Category: eventbus.CategorySensor,
		Kind:     kind,
		Priority: eventbus.Normal,
		Payload:  path,
		SourceID: d.Descriptor().ID,
	})
}

func enumerateDevices() []string {
	var found []string
	for _, pattern := range globs {
		matches, _ := filepath.Glob(pattern)
		found = append(found, matches...)
	}
	sort.Strings(found)
	return found
}

func diff(known map[string]struct{}, current []string) (added, removed []string) {
	currentSet := toSet(current)
	for _, path := range current {
		if _, ok := known[path]; !ok {
			added = append(added, path)
		}
	}
	for path := range known {
		if _, ok := currentSet[path]; !ok {
			removed = append(removed, path)
		}
	}
	return added, removed
}

func toSet(paths []string) map[string]struct{} {
	s := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func stringsToValues(ss []string) []worldstate.Value {
	out := make([]worldstate.Value, len(ss))
	for i, s := range ss {
		out[i] = worldstate.String(s)
	}
	return out
}
