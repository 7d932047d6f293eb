// Package cli implements the companion daemon's command-line interface
// using Cobra: a package-level rootCmd and an Execute(version) entrypoint
// that exits with a classified exit code on error.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "aura — on-device AI companion control plane",
	Long: `aura drives the on-device companion's sensor-to-visualization
pipeline: sensor daemons feed a shared world model, a feature extractor
and inference engine turn it into a particle field, and a websocket
sink broadcasts it at 60Hz.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (defaults to $AURA_HOME/config.toml)")
}

// Execute runs the root command. Called from main.go. Exit codes follow
// §6: 0 normal, 2 config error, 3 unrecoverable hardware init failure.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case isConfigError(err):
		return 2
	case isHardwareInitError(err):
		return 3
	default:
		return 1
	}
}
