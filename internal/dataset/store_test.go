package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/feature"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "dataset.sqlite"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordThenRecentRoundTrips(t *testing.T) {
	s := openTestStore(t)
	var v feature.Vector
	v[0] = 0.75

	now := time.Now()
	if err := s.Record(v, now); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	rows, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Vector[0] != 0.75 {
		t.Fatalf("expected vector[0]=0.75, got %v", rows[0].Vector[0])
	}
	if rows[0].Label != "" {
		t.Fatalf("expected empty label on fresh sample, got %q", rows[0].Label)
	}
}

func TestLabelUpdatesExistingSample(t *testing.T) {
	s := openTestStore(t)
	var v feature.Vector
	if err := s.Record(v, time.Now()); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	rows, _ := s.Recent(1)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	if err := s.Label(rows[0].ID, "idle"); err != nil {
		t.Fatalf("Label returned error: %v", err)
	}

	rows, _ = s.Recent(1)
	if rows[0].Label != "idle" {
		t.Fatalf("expected label 'idle', got %q", rows[0].Label)
	}
}

func TestLabelUnknownIDFails(t *testing.T) {
	s := openTestStore(t)
	if err := s.Label(9999, "idle"); err == nil {
		t.Fatal("expected error labeling a nonexistent sample")
	}
}

func TestCountReflectsRecordedSamples(t *testing.T) {
	s := openTestStore(t)
	var v feature.Vector
	for i := 0; i < 5; i++ {
		if err := s.Record(v, time.Now()); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected count 5, got %d", n)
	}
}
