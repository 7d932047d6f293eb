// Package daemonmgr implements the AdaptiveDaemonManager (spec §4.5):
// given a set of discovered hardware capabilities, it instantiates the
// matching sensor daemon for each, supervises its lifecycle, and applies
// the restart policy on failure. The capability-indexed dispatch mirrors
// the single-threaded HAL loop's device registry keyed by (domain, kind,
// name); here the index is (category, device path) and dispatch hands off
// to per-daemon goroutines rather than staying single-threaded, since each
// concrete Daemon already owns its own Run loop.
package daemonmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

// Capability is one discovered hardware resource the manager may start a
// daemon for. DevicePath is empty for capabilities that aren't tied to a
// single device node (e.g. wifi, bluetooth).
type Capability struct {
	Category   string
	DevicePath string
}

func (c Capability) key() string { return c.Category + "\x00" + c.DevicePath }

// Constructor builds the daemon instance responsible for a capability.
// Constructors are registered once per category and reused for every
// matching capability discovered.
type Constructor func(world *worldstate.State, bus *eventbus.Bus, cap Capability) daemon.Daemon

type instance struct {
	d      daemon.Daemon
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager instantiates and supervises one daemon per discovered
// capability, restarting failed daemons per their restart policy and
// otherwise leaving them permanently stopped once the policy is
// exhausted. At most one daemon runs per (category, device path) pair.
type Manager struct {
	world *worldstate.State
	bus   *eventbus.Bus

	mu           sync.Mutex
	constructors map[string]Constructor
	running      map[string]*instance
}

// New constructs an empty manager wired to the shared WorldState and bus.
func New(world *worldstate.State, bus *eventbus.Bus) *Manager {
	return &Manager{
		world:        world,
		bus:          bus,
		constructors: make(map[string]Constructor),
		running:      make(map[string]*instance),
	}
}

// Register binds a daemon constructor to a capability category. Calling
// Register twice for the same category replaces the prior constructor.
func (m *Manager) Register(category string, ctor Constructor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constructors[category] = ctor
}

// Start instantiates and runs a daemon for each discovered capability that
// has a registered constructor and isn't already running. Capabilities
// with no matching constructor are skipped silently — an unrecognized
// device is not an error, just unsupported.
func (m *Manager) Start(ctx context.Context, caps []Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cap := range caps {
		key := cap.key()
		if _, running := m.running[key]; running {
			continue
		}
		ctor, ok := m.constructors[cap.Category]
		if !ok {
			continue
		}
		m.startLocked(ctx, key, ctor(m.world, m.bus, cap))
	}
}

// startLocked launches d and supervises it until ctx is canceled or its
// restart policy is exhausted. Caller must hold m.mu.
func (m *Manager) startLocked(ctx context.Context, key string, d daemon.Daemon) {
	daemonCtx, cancel := context.WithCancel(ctx)
	inst := &instance{d: d, cancel: cancel, done: make(chan struct{})}
	m.running[key] = inst

	go func() {
		defer close(inst.done)
		m.supervise(daemonCtx, key, d)
	}()
}

// supervise runs d to completion, restarting it per its descriptor's
// restart policy until the policy is exhausted or ctx is canceled.
func (m *Manager) supervise(ctx context.Context, key string, d daemon.Daemon) {
	for {
		if err := d.Initialize(ctx); err != nil {
			if !m.recordFailureAndDecide(d) {
				return
			}
			if !sleepOrDone(ctx, time.Second) {
				return
			}
			continue
		}

		runErr := d.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if runErr == nil {
			// Run returned cleanly without cancellation: treat as a
			// completed lifecycle, nothing to restart.
			return
		}
		if !m.recordFailureAndDecide(d) {
			return
		}
		if !sleepOrDone(ctx, time.Second) {
			return
		}
	}
}

func (m *Manager) recordFailureAndDecide(d daemon.Daemon) bool {
	base, ok := d.(interface {
		RecordFailure(time.Time) bool
	})
	if !ok {
		return false
	}
	return base.RecordFailure(time.Now())
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Restart stops whatever daemon is currently running for cap's category
// — regardless of the device path it was started with — and starts a
// fresh one from the category's registered constructor against cap.
// Used when a live configuration reload changes a daemon's device path
// (e.g. serial_port_mapping) out from under an already-running daemon —
// the manager is the only component allowed to create or destroy a
// daemon instance (§4.5), so a hot config change can't simply mutate the
// running daemon in place.
func (m *Manager) Restart(ctx context.Context, cap Capability) error {
	m.mu.Lock()
	ctor, ok := m.constructors[cap.Category]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("daemonmgr: no constructor registered for category %q", cap.Category)
	}
	var stale []*instance
	for key, inst := range m.running {
		if inst.d.Descriptor().Category == cap.Category {
			delete(m.running, key)
			stale = append(stale, inst)
		}
	}
	m.mu.Unlock()

	for _, inst := range stale {
		stopCtx, cancel := context.WithTimeout(ctx, daemon.StopGrace)
		err := inst.d.Stop(stopCtx)
		cancel()
		inst.cancel()
		if err != nil {
			return fmt.Errorf("daemonmgr: stopping %s before restart: %w", inst.d.Descriptor().ID, err)
		}
	}

	m.mu.Lock()
	m.startLocked(ctx, cap.key(), ctor(m.world, m.bus, cap))
	m.mu.Unlock()
	return nil
}

// Stop stops every running daemon, honoring each one's StopGrace.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	insts := make([]*instance, 0, len(m.running))
	for _, inst := range m.running {
		insts = append(insts, inst)
	}
	m.mu.Unlock()

	var firstErr error
	for _, inst := range insts {
		stopCtx, cancel := context.WithTimeout(ctx, daemon.StopGrace)
		err := inst.d.Stop(stopCtx)
		cancel()
		inst.cancel()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("daemonmgr: stopping %s: %w", inst.d.Descriptor().ID, err)
		}
	}
	return firstErr
}

// Running reports the descriptors of every daemon the manager currently
// believes it owns (started, not necessarily healthy).
func (m *Manager) Running() []daemon.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]daemon.Descriptor, 0, len(m.running))
	for _, inst := range m.running {
		out = append(out, inst.d.Descriptor())
	}
	return out
}

// RegisteredCategories exposes which categories have a constructor, for
// diagnostics/status surfaces.
func (m *Manager) RegisteredCategories() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.constructors))
	for c := range m.constructors {
		out = append(out, c)
	}
	return out
}
