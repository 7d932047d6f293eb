// Package supervisor implements the companion daemon's liveness sentinel
// and the external restart policy built on top of it (§4.11), using the
// same run-immediately-then-ticker loop shape as a periodic health check.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aura-core/aura/internal/telemetry"
)

// DefaultWriteInterval is the §4.11 heartbeat cadence: the sentinel file
// is rewritten at least once a second.
const DefaultWriteInterval = time.Second

// Heartbeat periodically touches a sentinel file so an external
// supervisor process can detect a hung or crashed daemon by the file's
// mtime, without needing any IPC channel into the daemon itself.
type Heartbeat struct {
	path     string
	interval time.Duration
}

// NewHeartbeat constructs a Heartbeat writing to path at interval (use
// DefaultWriteInterval when zero).
func NewHeartbeat(path string, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultWriteInterval
	}
	return &Heartbeat{path: path, interval: interval}
}

// Run writes the sentinel immediately, then on every tick, until ctx is
// cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	h.write()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.write()
		}
	}
}

func (h *Heartbeat) write() {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return
	}
	if _, err := os.Stat(h.path); os.IsNotExist(err) {
		f, err := os.Create(h.path)
		if err != nil {
			return
		}
		f.Close()
		return
	}
	now := time.Now()
	_ = os.Chtimes(h.path, now, now)
}

// Age reports how long ago the sentinel at path was last written. A
// missing sentinel is reported as an error, not a zero age, so a liveness
// check can tell "never started" apart from "just started."
func Age(path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("supervisor: reading heartbeat %s: %w", path, err)
	}
	return time.Since(info.ModTime()), nil
}
