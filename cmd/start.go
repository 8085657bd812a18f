package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the windock daemon",
		Long: `Start the windock daemon in the background.

The daemon owns every embedded window and keeps running until explicitly
stopped with 'windock stop'.

If the daemon is already running, this command reports its version.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			// Check if daemon is already running
			_, err := daemon.SendCommand("STATUS")
			if err == nil {
				response, _ := daemon.SendCommand("VERSION")
				if response.Data != nil {
					if versionData, ok := response.Data.(map[string]interface{}); ok {
						if version, ok := versionData["version"].(string); ok {
							slog.Info(fmt.Sprintf("Daemon is already running (version %s)", version))
							return
						}
					}
				}
				slog.Info("Daemon is already running")
				return
			}

			slog.Info("Starting windock daemon...")
			if err := daemon.StartDaemon(); err != nil {
				slog.Error(fmt.Sprintf("Failed to start daemon: %v", err))
				os.Exit(1)
			}

			if err := daemon.WaitForDaemon(); err != nil {
				slog.Error(fmt.Sprintf("Daemon failed to start: %v", err))
				os.Exit(1)
			}

			slog.Info("Daemon started successfully")
		},
	}
}
