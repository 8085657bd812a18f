package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <tab-id> <x> <y>",
		Short: "Move a tab's window to a host-relative position",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand(fmt.Sprintf("MOVE %s %s %s", args[0], args[1], args[2]))
		},
	}
}
