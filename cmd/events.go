package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/daemon"
)

func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream tab lifecycle events as JSON lines",
		Long: `Stream tab lifecycle events as JSON lines on stdout.

One line per event, no banner, no history. Intended for the host shell
to consume so it can drop the tab of a crashed or closed application.
Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := daemon.SendCommand("STATUS"); err != nil {
				slog.Error("Daemon is not running. Use 'windock start' to start it.")
				os.Exit(1)
			}

			conn, err := net.Dial("unix", core.GetSocketPath())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to connect to daemon: %v", err))
				os.Exit(1)
			}
			defer conn.Close()

			if _, err := conn.Write([]byte("EVENTS\n")); err != nil {
				slog.Error(fmt.Sprintf("Failed to send EVENTS command: %v", err))
				os.Exit(1)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			done := make(chan bool)
			go func() {
				io.Copy(os.Stdout, conn)
				done <- true
			}()

			select {
			case <-sigChan:
			case <-done:
			}
		},
	}
}
