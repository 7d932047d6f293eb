package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aura-core/aura/internal/supervisor"
)

var binaryPath string

func init() {
	superviseCmd.Flags().StringVar(&binaryPath, "binary", "", "Path to the aura binary to restart (defaults to the running executable)")
	rootCmd.AddCommand(superviseCmd)
}

var superviseCmd = &cobra.Command{
	Use:   "supervise",
	Short: "Watch the daemon's heartbeat and restart it if it stops responding",
	Long: `Runs an external liveness check against the heartbeat sentinel
and restarts the "aura serve" process if it goes stale, with exponential
backoff capped at 5 attempts per 10 minutes.`,
	RunE: runSupervise,
}

func runSupervise(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	binary := binaryPath
	if binary == "" {
		binary, err = os.Executable()
		if err != nil {
			return fmt.Errorf("resolving running executable: %w", err)
		}
	}

	timeout := time.Duration(cfg.Supervisor.HeartbeatTimeoutS) * time.Second
	restart := supervisor.CommandRestart(binary, "serve", "--config", resolveConfigPath())
	supervisor.Supervise(cmd.Context(), cfg.Supervisor.HeartbeatPath, timeout, restart)
	return nil
}
