package environment

import (
	"context"
	"testing"

	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

type fakeReader struct {
	reading Reading
	err     error
}

func (f fakeReader) Read(ctx context.Context) (Reading, error) { return f.reading, f.err }

func TestAbsentFieldsAreNotWritten(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()

	d := New(world, bus, fakeReader{reading: Reading{HasTemperature: true, TemperatureC: 21.5}})
	d.tick(context.Background())

	if _, ok := world.Get("environment.temperature_c"); !ok {
		t.Fatal("expected temperature to be recorded")
	}
	if _, ok := world.Get("environment.humidity_pct"); ok {
		t.Fatal("expected humidity to be absent, not defaulted")
	}
}

func TestNoReaderNeverPanics(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()

	d := New(world, bus, NoReader{})
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	d.tick(context.Background())
}
