package supervisor

import (
	"context"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/aura-core/aura/internal/telemetry"
)

// DefaultLivenessTimeout is how stale the heartbeat sentinel can get
// before the external supervisor considers the daemon hung (§4.11).
const DefaultLivenessTimeout = 10 * time.Second

// maxRestartsPerWindow and restartWindow implement the §4.11 backoff
// cap: at most 5 restart attempts per 10 minutes before giving up.
const (
	maxRestartsPerWindow = 5
	restartWindow        = 10 * time.Minute
)

// RestartPolicy tracks restart attempts with exponential backoff, capped
// at maxRestartsPerWindow within restartWindow.
type RestartPolicy struct {
	mu       sync.Mutex
	attempts []time.Time
}

// NewRestartPolicy constructs an empty RestartPolicy.
func NewRestartPolicy() *RestartPolicy {
	return &RestartPolicy{}
}

// Allow reports whether another restart attempt is permitted right now,
// and if so the backoff delay to wait before issuing it.
func (p *RestartPolicy) Allow(now time.Time) (allowed bool, backoff time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := now.Add(-restartWindow)
	kept := p.attempts[:0]
	for _, t := range p.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.attempts = kept

	if len(p.attempts) >= maxRestartsPerWindow {
		return false, 0
	}
	return true, backoffFor(len(p.attempts))
}

// Record notes that a restart attempt was made at now.
func (p *RestartPolicy) Record(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = append(p.attempts, now)
}

// backoffFor returns the exponential backoff for the (attempt+1)th
// restart: 1s, 2s, 4s, 8s, 16s.
func backoffFor(attempt int) time.Duration {
	d := time.Second
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Supervise watches heartbeatPath and, whenever it goes stale past
// timeout, runs restart (typically exec.CommandContext against the
// daemon binary). It stops trying once the restart policy's window is
// exhausted, logging the final give-up rather than restarting forever.
func Supervise(ctx context.Context, heartbeatPath string, timeout time.Duration, restart func(ctx context.Context) error) {
	if timeout <= 0 {
		timeout = DefaultLivenessTimeout
	}
	policy := NewRestartPolicy()
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			age, err := Age(heartbeatPath)
			if err != nil || age <= timeout {
				if err == nil {
					telemetry.HeartbeatAge.Set(age.Seconds())
				}
				continue
			}
			telemetry.HeartbeatAge.Set(age.Seconds())

			now := time.Now()
			allowed, backoff := policy.Allow(now)
			if !allowed {
				log.Printf("[supervisor] heartbeat stale for %v and restart budget exhausted, giving up", age)
				return
			}

			log.Printf("[supervisor] heartbeat stale for %v, restarting after %v backoff", age, backoff)
			time.Sleep(backoff)
			policy.Record(time.Now())
			telemetry.SupervisorRestarts.Inc()
			if err := restart(ctx); err != nil {
				log.Printf("[supervisor] restart attempt failed: %v", err)
			}
		}
	}
}

// CommandRestart builds a restart function that re-execs the daemon
// binary with args, suitable for passing to Supervise.
func CommandRestart(binary string, args ...string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, binary, args...)
		return cmd.Start()
	}
}
