package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

func NewReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the daemon configuration without restarting",
		Long: `Tell the daemon to re-read its configuration file.

Layout insets apply to embedded tabs immediately. Launch timings apply
to subsequent launches; the watchdog interval needs a daemon restart.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := daemon.SendCommand("RELOAD")
			if err != nil {
				slog.Warn("Daemon is not running")
				return
			}
			response.LogMessages()
			if !response.Ok() {
				os.Exit(1)
			}
		},
	}
}
