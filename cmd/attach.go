package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/daemon"
)

func NewAttachCommand() *cobra.Command {
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach to the daemon's raw log output",
		Long: `Attach to the daemon and stream its log output in real-time.

This shows the same output you would see if running the daemon manually
in the foreground, useful for debugging launch and embed problems.

Press Ctrl+C to detach.

For level and keyword filtering, use 'windock logs' instead.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			// Check if daemon is running
			if _, err := daemon.SendCommand("STATUS"); err != nil {
				slog.Error("Daemon is not running. Use 'windock start' to start it.")
				os.Exit(1)
			}

			// Set up signal handler for Ctrl+C
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			// Reconnect loop
			for {
				conn, err := net.Dial("unix", core.GetSocketPath())
				if err != nil {
					slog.Error(fmt.Sprintf("Failed to connect to daemon: %v", err))
					os.Exit(1)
				}

				if _, err := conn.Write([]byte("ATTACH\n")); err != nil {
					conn.Close()
					slog.Error(fmt.Sprintf("Failed to send ATTACH command: %v", err))
					os.Exit(1)
				}

				// Channel to signal when reading is done
				done := make(chan bool)

				go func() {
					reader := bufio.NewReader(conn)
					for {
						line, err := reader.ReadString('\n')
						if err != nil {
							done <- true
							return
						}
						fmt.Print(line)
					}
				}()

				// Wait for either Ctrl+C or connection close
				select {
				case <-sigChan:
					conn.Close()
					fmt.Println("\nDetached from daemon.")
					return
				case <-done:
					conn.Close()
					fmt.Println("Connection lost. Reconnecting...")
					time.Sleep(500 * time.Millisecond)

					// Wait for daemon to be available again (up to 5 seconds)
					reconnected := false
					for i := 0; i < 10; i++ {
						if _, err := daemon.SendCommand("STATUS"); err == nil {
							reconnected = true
							break
						}
						time.Sleep(500 * time.Millisecond)
					}

					if !reconnected {
						fmt.Println("Daemon not available. Exiting.")
						return
					}
				}
			}
		},
	}

	return attachCmd
}
