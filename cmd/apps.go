package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/catalog"
	"github.com/windock/windock/internal/daemon"
)

func NewAppsCommand() *cobra.Command {
	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "List launchable applications discovered on this machine",
		Long: `List the applications the daemon has discovered: installed software
from the registry, common system tools, and executables found under the
program directories. Any listed id or name works as the app argument to
'windock launch'.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			daemon.EnsureDaemonIsRunning()

			command := "APPS"
			if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
				command = "APPS REFRESH"
			}
			response, err := daemon.SendCommand(command)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to send command to daemon: %v", err))
				os.Exit(1)
			}

			jsonBytes, _ := json.Marshal(response.Data)
			apps := []catalog.App{}
			json.Unmarshal(jsonBytes, &apps)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				renderApps(os.Stdout, apps)
			case "json":
				fmt.Println(string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	appsCmd.Flags().Bool("refresh", false, "Force a rescan instead of using the cached catalog")
	appsCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return appsCmd
}

func renderApps(w io.Writer, apps []catalog.App) {
	if len(apps) == 0 {
		fmt.Fprintln(w, "No applications discovered.")
		return
	}

	fmt.Fprintf(w, "%d application(s):\n", len(apps))
	for _, app := range apps {
		fmt.Fprintf(w, "  - %s  (%s, id: %s)\n", app.Name, app.Path, app.ID)
	}
}
