package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewResizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <tab-id> <width> <height>",
		Short: "Recompute one tab's geometry for a new host size",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand(fmt.Sprintf("RESIZE %s %s %s", args[0], args[1], args[2]))
		},
	}
}
