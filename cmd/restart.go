package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

func NewRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the windock daemon",
		Long: `Restart the windock daemon (cold restart).

Stopping the daemon closes every embedded window; the fresh daemon
starts with an empty registry and no host attached. Embedded
applications are not relaunched.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := daemon.SendCommand("STATUS"); err != nil {
				slog.Error("Daemon is not running. Use 'windock start' instead.")
				os.Exit(1)
			}

			slog.Info("Restarting daemon...")
			if _, err := daemon.SendCommand("STOP"); err != nil {
				slog.Error(fmt.Sprintf("Failed to stop daemon: %v", err))
				os.Exit(1)
			}

			// Wait for the old daemon to die so the new one does not
			// mistake it for a live instance.
			for i := 0; i < 50; i++ {
				if _, err := daemon.SendCommand("STATUS"); err != nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}

			if err := daemon.StartDaemon(); err != nil {
				slog.Error(fmt.Sprintf("Failed to start daemon: %v", err))
				os.Exit(1)
			}
			if err := daemon.WaitForDaemon(); err != nil {
				slog.Error(fmt.Sprintf("Daemon failed to start: %v", err))
				os.Exit(1)
			}
			slog.Info("Daemon restarted successfully")
		},
	}
}
