package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewResizeAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resize-all <width> <height>",
		Short: "Relayout every visible tab for a new host size",
		Long: `Relayout every visible tab for a new host client size.

The shell calls this from its WM_SIZE handler; hidden tabs pick up the
new geometry when they are shown again.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand(fmt.Sprintf("RESIZE_ALL %s %s", args[0], args[1]))
		},
	}
}
