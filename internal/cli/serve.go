package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aura-core/aura/internal/app"
)

var (
	noVoiceInput  bool
	noVoiceOutput bool
	headless      bool
)

func init() {
	serveCmd.Flags().BoolVar(&noVoiceInput, "no-voice-input", false, "Disable the external voice-input collaborator (core never reads audio itself)")
	serveCmd.Flags().BoolVar(&noVoiceOutput, "no-voice-output", false, "Disable the external voice-output collaborator (core never speaks itself)")
	serveCmd.Flags().BoolVar(&headless, "headless", false, "Run without any local rendering collaborator")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"serve"},
	Short:   "Start the sensor-to-visualization pipeline",
	Long: `Starts every sensor daemon, the 60Hz visualization loop, and the
broadcast websocket sink, and blocks until signaled to stop.

--no-voice-input, --no-voice-output, and --headless are accepted for
compatibility with the full companion system but are no-ops here: voice
I/O and rendering are external collaborators the core never touches.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return wrapHardwareInitError(fmt.Errorf("initializing app: %w", err))
	}
	a.ConfigPath = resolveConfigPath()

	return a.Run(cmd.Context())
}
