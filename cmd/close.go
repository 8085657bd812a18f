package cmd

import (
	"github.com/spf13/cobra"
)

func NewCloseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close <tab-id>",
		Short: "Close a tab and terminate its application",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand("CLOSE " + args[0])
		},
	}
}
