package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
	"github.com/windock/windock/internal/dock"
)

func NewListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List embedded tabs and in-flight launches",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := daemon.SendCommand("LIST")
			if err != nil {
				slog.Warn("No embedded windows (daemon is not running).")
				return
			}

			jsonBytes, _ := json.Marshal(response.Data)
			listing := tabListing{}
			json.Unmarshal(jsonBytes, &listing)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				renderTabListing(os.Stdout, listing)
			case "json":
				fmt.Println(string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	listCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return listCmd
}

type tabListing struct {
	Tabs      []dock.Tab                `json:"tabs"`
	Launching map[string]dock.TabStatus `json:"launching"`
}

func renderTabListing(w io.Writer, listing tabListing) {
	if len(listing.Tabs) == 0 && len(listing.Launching) == 0 {
		fmt.Fprintln(w, "No embedded windows.")
		return
	}

	if len(listing.Tabs) > 0 {
		fmt.Fprintln(w, "Embedded tabs:")
		for _, tab := range listing.Tabs {
			visibility := "visible"
			if !tab.Visible {
				visibility = "hidden"
			}
			fmt.Fprintf(w, "  - %s: %s (PID %d, %s, %s)\n",
				tab.ID, tab.DisplayName, tab.PID, tab.Handle, visibility)
		}
	}

	if len(listing.Launching) > 0 {
		fmt.Fprintln(w, "Launching:")
		ids := make([]string, 0, len(listing.Launching))
		for id := range listing.Launching {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  - %s: %s\n", id, listing.Launching[id])
		}
	}
}
