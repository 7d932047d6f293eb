package daemonmgr

import (
	"context"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/daemon"
	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

type stubDaemon struct {
	*daemon.Base
	runCalls int
	block    chan struct{}
}

func newStubDaemon(bus *eventbus.Bus) *stubDaemon {
	return newStubDaemonCategory(bus, "stub")
}

func newStubDaemonCategory(bus *eventbus.Bus, category string) *stubDaemon {
	return &stubDaemon{
		Base:  daemon.NewBase(daemon.Descriptor{ID: category, Category: category, Restart: daemon.OnFailure(3)}, bus),
		block: make(chan struct{}),
	}
}

func (s *stubDaemon) Initialize(ctx context.Context) error { return nil }

func (s *stubDaemon) Run(ctx context.Context) error {
	s.runCalls++
	select {
	case <-ctx.Done():
		return nil
	case <-s.block:
		return nil
	}
}

func (s *stubDaemon) Stop(ctx context.Context) error {
	close(s.block)
	return nil
}

func TestStartRunsOneDaemonPerCapability(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	mgr := New(world, bus)

	var built *stubDaemon
	mgr.Register("stub", func(world *worldstate.State, bus *eventbus.Bus, cap Capability) daemon.Daemon {
		built = newStubDaemon(bus)
		return built
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx, []Capability{{Category: "stub"}})

	deadline := time.After(time.Second)
	for len(mgr.Running()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for daemon to start")
		case <-time.After(time.Millisecond):
		}
	}

	if built == nil {
		t.Fatal("expected constructor to be called")
	}
}

func TestStartIsIdempotentPerCapability(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	mgr := New(world, bus)

	calls := 0
	mgr.Register("stub", func(world *worldstate.State, bus *eventbus.Bus, cap Capability) daemon.Daemon {
		calls++
		return newStubDaemon(bus)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx, []Capability{{Category: "stub"}})
	mgr.Start(ctx, []Capability{{Category: "stub"}})

	if calls != 1 {
		t.Fatalf("expected exactly one instantiation, got %d", calls)
	}
}

func TestRestartReplacesRunningDaemonOnNewDevicePath(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	mgr := New(world, bus)

	var built []*stubDaemon
	mgr.Register("flipper", func(world *worldstate.State, bus *eventbus.Bus, cap Capability) daemon.Daemon {
		d := newStubDaemonCategory(bus, "flipper")
		built = append(built, d)
		return d
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx, []Capability{{Category: "flipper", DevicePath: "/dev/ttyUSB0"}})

	deadline := time.After(time.Second)
	for len(mgr.Running()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for first daemon to start")
		case <-time.After(time.Millisecond):
		}
	}
	first := built[0]

	if err := mgr.Restart(ctx, Capability{Category: "flipper", DevicePath: "/dev/ttyUSB1"}); err != nil {
		t.Fatalf("Restart returned error: %v", err)
	}

	select {
	case <-first.block:
	case <-time.After(time.Second):
		t.Fatal("expected the original daemon to be stopped by Restart")
	}

	if len(built) != 2 {
		t.Fatalf("expected Restart to instantiate a second daemon, got %d builds", len(built))
	}

	running := mgr.Running()
	if len(running) != 1 {
		t.Fatalf("expected exactly one running daemon after restart, got %d", len(running))
	}
}

func TestUnregisteredCategoryIsSkipped(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	mgr := New(world, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx, []Capability{{Category: "unknown"}})

	if len(mgr.Running()) != 0 {
		t.Fatalf("expected no daemons to start, got %d", len(mgr.Running()))
	}
}
