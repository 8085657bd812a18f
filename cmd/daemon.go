package cmd

import (
	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/daemon"
)

// NewDaemonCommand runs the daemon in the foreground, which keeps its log
// output on the terminal. Day-to-day use goes through 'start' instead.
func NewDaemonCommand() *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:    "daemon",
		Hidden: true,
		Args:   cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			d := daemon.New()
			d.Run()
		},
	}

	return daemonCmd
}
