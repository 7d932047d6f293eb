package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aura-core/aura/internal/supervisor"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the running daemon's heartbeat is current",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	age, err := supervisor.Age(cfg.Supervisor.HeartbeatPath)
	if err != nil {
		fmt.Fprintf(w, "HEARTBEAT\tNOT RUNNING\n")
		return nil
	}

	timeout := time.Duration(cfg.Supervisor.HeartbeatTimeoutS) * time.Second
	state := "HEALTHY"
	if age > timeout {
		state = "STALE"
	}
	fmt.Fprintf(w, "HEARTBEAT\t%s\n", state)
	fmt.Fprintf(w, "LAST WRITE\t%v ago\n", age.Round(time.Millisecond))
	return nil
}
