package particles

import (
	"math"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/inference"
)

func TestFirstFrameIsPassthrough(t *testing.T) {
	it := New(0.2)
	frame := inference.Frame{1, 2, 3}
	out := it.Smooth(frame)
	for i, v := range out {
		if v != frame[i] {
			t.Fatalf("index %d: expected passthrough %v, got %v", i, frame[i], v)
		}
	}
}

func TestSubsequentFrameBlendsTowardNew(t *testing.T) {
	it := New(0.5)
	it.Smooth(inference.Frame{0, 0, 0})
	out := it.Smooth(inference.Frame{10, 10, 10})
	for _, v := range out {
		if v != 5 {
			t.Fatalf("expected EMA blend of 5, got %v", v)
		}
	}
}

func TestShapeMismatchResetsRatherThanPanics(t *testing.T) {
	it := New(0.5)
	it.Smooth(inference.Frame{0, 0, 0})
	out := it.Smooth(inference.Frame{1, 1, 1, 1, 1, 1})
	if len(out) != 6 {
		t.Fatalf("expected passthrough of new shape, got len %d", len(out))
	}
}

func TestSmoothForTenThousandParticlesUnderOneMillisecond(t *testing.T) {
	n := 10000 * 3
	it := New(0.3)
	prev := make(inference.Frame, n)
	next := make(inference.Frame, n)
	for i := range next {
		next[i] = float32(i % 7)
	}
	it.Smooth(prev)

	start := time.Now()
	out := it.Smooth(next)
	elapsed := time.Since(start)

	if elapsed > time.Millisecond {
		t.Fatalf("expected smoothing 10000 particles to take <=1ms, took %v", elapsed)
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("index %d: expected finite value, got %v", i, v)
		}
	}
}
