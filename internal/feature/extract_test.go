package feature

import (
	"math"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/worldstate"
)

func TestExtractOnEmptySnapshotUsesNeutralDefaultsOnly(t *testing.T) {
	world := worldstate.New()
	snap := world.GetSnapshot()

	v := Extract(snap, Reading{})

	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("index %d: expected finite value, got %v", i, x)
		}
		if x < 0 || x > 1 {
			t.Fatalf("index %d: expected value in [0,1], got %v", i, x)
		}
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	world := worldstate.New()
	world.Update("hardware.cpu_temp_c", worldstate.Number(55), time.Minute)
	world.Update("hardware.battery_charging", worldstate.Bool(true), time.Minute)
	snap := world.GetSnapshot()

	first := Extract(snap, Reading{CPULoadPct: 42, MemoryUsedPct: 61})
	second := Extract(snap, Reading{CPULoadPct: 42, MemoryUsedPct: 61})

	if first != second {
		t.Fatal("expected identical snapshot+probe to produce a bit-identical vector")
	}
}

func TestNormalizedFieldsClampToUnitRange(t *testing.T) {
	world := worldstate.New()
	world.Update("hardware.cpu_temp_c", worldstate.Number(1000), time.Minute)
	snap := world.GetSnapshot()

	v := Extract(snap, Reading{})
	if v[0] != 1 {
		t.Fatalf("expected out-of-range temperature to clamp to 1, got %v", v[0])
	}
}

func TestVectorLengthMatchesSchema(t *testing.T) {
	if Size != 68 {
		t.Fatalf("expected schema size 68, got %d", Size)
	}
	if len(Schema) != Size {
		t.Fatalf("expected %d schema entries, got %d", Size, len(Schema))
	}
}
