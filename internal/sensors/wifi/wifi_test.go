package wifi

import (
	"context"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

type fakeScanner struct {
	networks []Network
	err      error
}

func (f fakeScanner) Scan(ctx context.Context) ([]Network, error) {
	return f.networks, f.err
}

func TestTickWritesNetworksAndPublishesOnChange(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe(eventbus.CategorySensor, eventbus.Low)

	d := New(world, bus, fakeScanner{networks: []Network{
		{BSSID: "aa:bb", SSID: "home", SignalDB: -40, Band: "5GHz", Security: "wpa2"},
	}})

	d.tick(context.Background())

	v, ok := world.Get("wifi.networks")
	if !ok || v.Kind != worldstate.KindSequence || len(v.Sequence) != 1 {
		t.Fatalf("expected one network recorded, got %+v ok=%v", v, ok)
	}

	select {
	case ev := <-sub.Events():
		if ev.Kind != "WIFI_CHANGED" {
			t.Fatalf("expected WIFI_CHANGED, got %s", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WIFI_CHANGED")
	}
}

func TestTickWithNoScannerDegradesWithoutPanicking(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()

	d := New(world, bus, NoScanner{})
	d.tick(context.Background())

	if _, ok := world.Get("wifi.networks"); ok {
		t.Fatal("expected no networks written when scanner is absent")
	}
}

func TestUnchangedBSSIDSetDoesNotRepublish(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe(eventbus.CategorySensor, eventbus.Low)

	scan := fakeScanner{networks: []Network{{BSSID: "aa:bb", SSID: "home"}}}
	d := New(world, bus, scan)

	d.tick(context.Background())
	select {
	case <-sub.Events():
	case <-time.After(time.Second):
		t.Fatal("expected first tick to publish")
	}

	d.tick(context.Background())
	select {
	case ev := <-sub.Events():
		t.Fatalf("did not expect a second WIFI_CHANGED, got %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
