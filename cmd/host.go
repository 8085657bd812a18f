package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewHostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "host <hwnd> <width> <height>",
		Short: "Attach the host window that tabs are embedded into",
		Long: `Attach the host window that tabs are embedded into.

The handle comes from the shell that owns the window, in decimal or
0x-prefixed hex. A daemon accepts exactly one host for its lifetime; the
reply carries the content rectangle left after the chrome insets.`,
		Args: cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			runDaemonCommand(fmt.Sprintf("HOST %s %s %s", args[0], args[1], args[2]))
		},
	}
}
