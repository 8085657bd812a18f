package cmd

import (
	"github.com/spf13/cobra"
)

func NewHideCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hide <tab-id>",
		Short: "Hide a tab without closing its application",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand("HIDE " + args[0])
		},
	}
}
