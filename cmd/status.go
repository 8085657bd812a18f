package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

func NewStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, host and tab status",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := daemon.SendCommand("STATUS")
			if err != nil {
				slog.Warn("Daemon is not running.")
				return
			}

			jsonBytes, _ := json.Marshal(response.Data)
			status := daemon.DaemonStatus{}
			json.Unmarshal(jsonBytes, &status)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				renderStatus(os.Stdout, status)
			case "json":
				fmt.Println(string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	statusCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return statusCmd
}

func renderStatus(w io.Writer, status daemon.DaemonStatus) {
	fmt.Fprintf(w, "Daemon: version %s, PID %d, up %s", status.Version, status.Pid, status.Uptime)
	if status.MemoryRSS > 0 {
		fmt.Fprintf(w, ", %s", formatMemory(status.MemoryRSS))
	}
	fmt.Fprintln(w)

	if status.HostAttached {
		fmt.Fprintf(w, "Host: attached (%dx%d)\n", status.HostWidth, status.HostHeight)
	} else {
		fmt.Fprintln(w, "Host: not attached")
	}

	fmt.Fprintf(w, "Tabs: %d embedded, %d launching\n", status.EmbeddedTabs, status.LaunchingTabs)
	for _, tab := range status.Tabs {
		visibility := "visible"
		if !tab.Visible {
			visibility = "hidden"
		}
		fmt.Fprintf(w, "  - %s: %s (PID %d, %s, %s)\n",
			tab.ID, tab.DisplayName, tab.PID, tab.Handle, visibility)
	}

	if status.CatalogApps > 0 {
		fmt.Fprintf(w, "Catalog: %d application(s), scanned %s\n",
			status.CatalogApps, status.CatalogScan)
	}
}

// formatMemory renders a byte count using the closest binary unit.
func formatMemory(bytes uint64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
