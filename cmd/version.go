package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/daemon"
)

func NewVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Long:  `Show version of both client and daemon (if running)`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			clientVersion := core.FormatVersion(core.Version())
			fmt.Fprintf(os.Stderr, "Client version: %s\n", clientVersion)

			// Try to get daemon version
			response, err := daemon.SendCommand("VERSION")
			if err != nil {
				fmt.Fprintln(os.Stderr, "Daemon: not running")
				return
			}

			if dataMap, ok := response.Data.(map[string]interface{}); ok {
				if daemonVersion, ok := dataMap["version"].(string); ok {
					fmt.Fprintf(os.Stderr, "Daemon version: %s\n", daemonVersion)

					if clientVersion != daemonVersion {
						slog.Warn(fmt.Sprintf(
							"Version mismatch! Client %s and daemon %s versions differ. Consider restarting the daemon.",
							clientVersion, daemonVersion))
					}
				}
			}
		},
	}

	return versionCmd
}
