package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aura-core/aura/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pipeline.TargetFPS = 200
	cfg.Pipeline.ParticleCount = 8
	cfg.Broadcast.Addr = "127.0.0.1:0"
	cfg.Supervisor.HeartbeatPath = filepath.Join(dir, "heartbeat")
	cfg.Inference.ModelPath = filepath.Join(dir, "model.bin")
	cfg.Telemetry.Enabled = false
	cfg.Dataset.Enabled = false
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if a.World == nil || a.Bus == nil || a.Daemons == nil || a.Engine == nil || a.Loop == nil || a.Hub == nil || a.Server == nil {
		t.Fatal("expected every core component to be wired")
	}
	if len(a.Daemons.RegisteredCategories()) == 0 {
		t.Fatal("expected daemon categories to be registered")
	}
}

func TestRunStartsAndStopsCleanlyOnCancellation(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}
