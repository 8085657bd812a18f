package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/db"
)

func NewHistoryCommand() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded tab and daemon events",
		Long: `Show recent tab and daemon lifecycle events.

Reads the event database directly, so it works whether or not the
daemon is running. With --summary, shows only the latest event for
each tab id ever seen.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			dbPath := core.GetDatabasePath()
			if _, err := os.Stat(dbPath); err != nil {
				slog.Warn("No event database yet. Start the daemon first.")
				return
			}

			database, err := db.Open(dbPath)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to open event database: %v", err))
				os.Exit(1)
			}
			defer database.Close()

			if summary, _ := cmd.Flags().GetBool("summary"); summary {
				events, err := database.GetLastTabEventPerTab()
				if err != nil {
					slog.Error(fmt.Sprintf("Failed to read tab events: %v", err))
					os.Exit(1)
				}
				if len(events) == 0 {
					fmt.Println("No recorded tab events.")
					return
				}
				fmt.Println("Last event per tab:")
				for _, event := range events {
					fmt.Printf("  %s  %-14s %-16s %s\n",
						event.Timestamp.Format(time.DateTime), event.EventType, event.TabID, event.Details)
				}
				return
			}

			daemonEvents, err := database.GetRecentDaemonEvents(limit)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to read daemon events: %v", err))
				os.Exit(1)
			}
			tabEvents, err := database.GetRecentTabEvents(limit)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to read tab events: %v", err))
				os.Exit(1)
			}

			if len(daemonEvents) > 0 {
				fmt.Println("Daemon events:")
				for _, event := range daemonEvents {
					fmt.Printf("  %s  %-8s %s\n",
						event.Timestamp.Format(time.DateTime), event.EventType, event.Details)
				}
			}
			if len(tabEvents) > 0 {
				fmt.Println("Tab events:")
				for _, event := range tabEvents {
					fmt.Printf("  %s  %-14s %-16s %s\n",
						event.Timestamp.Format(time.DateTime), event.EventType, event.TabID, event.Details)
				}
			}
			if len(daemonEvents) == 0 && len(tabEvents) == 0 {
				fmt.Println("No recorded events.")
			}
		},
	}
	historyCmd.Flags().IntVarP(&limit, "lines", "L", 20, "Maximum number of events per section")
	historyCmd.Flags().Bool("summary", false, "Show only the latest event per tab")

	return historyCmd
}
