package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestHeartbeatWriteCreatesFileAndUpdatesAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat")
	h := NewHeartbeat(path, time.Millisecond)

	h.write()
	age, err := Age(path)
	if err != nil {
		t.Fatalf("Age returned error: %v", err)
	}
	if age > time.Second {
		t.Fatalf("expected fresh heartbeat, got age %v", age)
	}
}

func TestAgeOnMissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Age(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing heartbeat file")
	}
}

func TestRunWritesHeartbeatUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat")
	h := NewHeartbeat(path, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancellation")
	}

	if _, err := Age(path); err != nil {
		t.Fatalf("expected heartbeat file to exist, got error: %v", err)
	}
}

func TestRestartPolicyAllowsUpToMaxPerWindow(t *testing.T) {
	p := NewRestartPolicy()
	now := time.Now()

	for i := 0; i < maxRestartsPerWindow; i++ {
		allowed, _ := p.Allow(now)
		if !allowed {
			t.Fatalf("expected attempt %d to be allowed", i)
		}
		p.Record(now)
	}

	allowed, _ := p.Allow(now)
	if allowed {
		t.Fatal("expected restart budget to be exhausted after max attempts")
	}
}

func TestRestartPolicyBackoffDoublesEachAttempt(t *testing.T) {
	p := NewRestartPolicy()
	now := time.Now()

	_, first := p.Allow(now)
	p.Record(now)
	_, second := p.Allow(now)

	if second != 2*first {
		t.Fatalf("expected backoff to double, got first=%v second=%v", first, second)
	}
}

func TestRestartPolicyExpiresOldAttemptsOutsideWindow(t *testing.T) {
	p := NewRestartPolicy()
	old := time.Now().Add(-restartWindow - time.Minute)
	for i := 0; i < maxRestartsPerWindow; i++ {
		p.Record(old)
	}

	allowed, _ := p.Allow(time.Now())
	if !allowed {
		t.Fatal("expected expired attempts outside the window to free up restart budget")
	}
}

func TestSuperviseRestartsAfterHeartbeatGoesStale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat")
	h := NewHeartbeat(path, time.Hour) // write once, then let it go stale
	h.write()

	restarted := make(chan struct{}, 1)
	restart := func(ctx context.Context) error {
		select {
		case restarted <- struct{}{}:
		default:
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Supervise(ctx, path, 5*time.Millisecond, restart)

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Supervise to trigger a restart after the heartbeat went stale")
	}
}
