package cmd

import (
	"github.com/spf13/cobra"
)

func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <tab-id>",
		Short: "Show a hidden tab and restore its geometry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand("SHOW " + args[0])
		},
	}
}
