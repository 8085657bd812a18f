package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

func NewLaunchCommand() *cobra.Command {
	launchCmd := &cobra.Command{
		Use:   "launch <tab-id> <app>",
		Short: "Launch an application and embed its window as a tab",
		Long: `Launch an application and embed its main window into the host.

The app argument is a catalog id, a display name, or an executable path.
Everything after the tab id is taken verbatim, so paths with spaces need
no quoting. The command blocks until the window is embedded or the
launch fails.

Examples:
  windock launch notes notepad.exe_system
  windock launch files C:\Program Files\7-Zip\7zFM.exe`,
		Args: cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			daemon.EnsureDaemonIsRunning()

			command := fmt.Sprintf("LAUNCH %s %s", args[0], strings.Join(args[1:], " "))
			response, err := daemon.SendCommand(command)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to send command to daemon: %v", err))
				os.Exit(1)
			}
			response.LogMessages()
			if !response.Ok() {
				os.Exit(1)
			}

			format, _ := cmd.Flags().GetString("format")
			if format == "json" && response.Data != nil {
				jsonBytes, _ := json.Marshal(response.Data)
				fmt.Println(string(jsonBytes))
			}
		},
	}
	launchCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return launchCmd
}
