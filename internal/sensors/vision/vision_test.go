package vision

import (
	"context"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/eventbus"
	"github.com/aura-core/aura/internal/worldstate"
)

type fakeDetector struct {
	frame Frame
	err   error
}

func (f fakeDetector) Detect(ctx context.Context) (Frame, error) { return f.frame, f.err }

func TestNewObjectPublishesAdded(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe(eventbus.CategorySensor, eventbus.Low)

	d := New(world, bus, fakeDetector{frame: Frame{
		Objects:   []Object{{ID: "obj-1", Label: "person", Confidence: 0.9}},
		FrameRate: 15,
	}})
	d.tick(context.Background())

	select {
	case ev := <-sub.Events():
		if ev.Kind != "VISION_OBJECT_ADDED" {
			t.Fatalf("expected VISION_OBJECT_ADDED, got %s", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for VISION_OBJECT_ADDED")
	}
}

func TestObjectDisappearingPublishesLost(t *testing.T) {
	world := worldstate.New()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe(eventbus.CategorySensor, eventbus.Low)

	d := New(world, bus, fakeDetector{frame: Frame{Objects: []Object{{ID: "obj-1"}}}})
	d.tick(context.Background())
	select {
	case <-sub.Events():
	case <-time.After(time.Second):
		t.Fatal("expected ADDED on first tick")
	}

	d.detector = fakeDetector{frame: Frame{}}
	d.tick(context.Background())
	select {
	case ev := <-sub.Events():
		if ev.Kind != "VISION_OBJECT_LOST" {
			t.Fatalf("expected VISION_OBJECT_LOST, got %s", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for VISION_OBJECT_LOST")
	}
}
