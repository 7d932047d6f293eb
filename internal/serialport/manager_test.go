package serialport

import "testing"

func TestDoubleAcquireFails(t *testing.T) {
	m := NewManager()
	if err := m.Acquire("/dev/ttyUSB0", "flipper"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := m.Acquire("/dev/ttyUSB0", "other"); err == nil {
		t.Fatal("expected double-acquire to fail")
	}
}

func TestReleaseThenReacquire(t *testing.T) {
	m := NewManager()
	if err := m.Acquire("/dev/ttyUSB0", "flipper"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.Release("/dev/ttyUSB0", "flipper")
	if err := m.Acquire("/dev/ttyUSB0", "other"); err != nil {
		t.Fatalf("expected reacquire to succeed: %v", err)
	}
}

func TestReleaseByNonOwnerIsNoop(t *testing.T) {
	m := NewManager()
	_ = m.Acquire("/dev/ttyUSB0", "flipper")
	m.Release("/dev/ttyUSB0", "imposter")
	if owner, held := m.Owner("/dev/ttyUSB0"); !held || owner != "flipper" {
		t.Fatalf("expected flipper to still hold the port, got %q held=%v", owner, held)
	}
}
