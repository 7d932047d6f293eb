// Package sensors collects the SensorDaemon contracts from spec §4.4: each
// daemon is defined purely by the WorldState keys it owns, its cadence, the
// events it may publish, and its hot-plug behavior. The core depends only
// on those keys — never on the parsers behind them (wifi/bluetooth scan
// output, serial protocols, etc. are external collaborators per §1/§6).
package sensors

import (
	"context"
	"os/exec"
	"time"
)

// RunFastFail runs name with args under a bounded timeout, single attempt —
// the §4.3 "fast-fail path" every blocking hardware probe must use.
// Retries are the daemon manager's responsibility, not the daemon's.
func RunFastFail(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}
