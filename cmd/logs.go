package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/daemon"
)

func NewLogsCommand() *cobra.Command {
	var lines int

	logsCmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"log"},
		Short:   "Stream daemon logs in real-time",
		Long: `Stream daemon logs in real-time.

Press Ctrl+C to exit. By default, only shows INFO level and above.

Filter categories:
  launch   - Launch and embed pipeline
  tab      - Tab lifecycle operations
  watchdog - Crash detection sweeps
  config   - Configuration loads and reloads
  daemon   - Daemon lifecycle events

Examples:
  windock logs            # Stream INFO and above
  windock logs -v         # Include DEBUG logs
  windock logs -F launch  # Filter to the launch pipeline
  windock logs -F crash   # Filter by keyword
  windock logs -L 50      # Show 50 history lines on connect

Automatically reconnects if the daemon is restarted.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			// Check if daemon is running
			if _, err := daemon.SendCommand("STATUS"); err != nil {
				slog.Error("Daemon is not running. Use 'windock start' to start it.")
				os.Exit(1)
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			filter, _ := cmd.Flags().GetString("filter")
			noColor, _ := cmd.Flags().GetBool("no-color")

			// Piped output gets the escape codes stripped regardless.
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				noColor = true
			}

			// Set up signal handler for Ctrl+C
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			// Track reconnection state to suppress history on reconnect
			isReconnect := false

			// Reconnect loop
			for {
				conn, err := net.Dial("unix", core.GetSocketPath())
				if err != nil {
					slog.Error(fmt.Sprintf("Failed to connect to daemon: %v", err))
					os.Exit(1)
				}

				// Build LOGS command with optional lines count and no_history flag
				logsCommand := fmt.Sprintf("LOGS %d", lines)
				if isReconnect {
					logsCommand += " no_history"
				}
				logsCommand += "\n"

				if _, err := conn.Write([]byte(logsCommand)); err != nil {
					conn.Close()
					slog.Error(fmt.Sprintf("Failed to send LOGS command: %v", err))
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

						// Skip DEBUG logs unless verbose; the daemon always
						// emits them so clients decide what to show.
						if !verbose && isDebugLog(line) {
							continue
						}

						if filter != "" && !matchesFilter(line, filter) {
							continue
						}

						if noColor {
							line = stripANSI(line)
						}

						fmt.Print(line)
					}
				}()

				// Wait for either Ctrl+C or connection close
				select {
				case <-sigChan:
					conn.Close()
					fmt.Println("\nDisconnected from daemon logs.")
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
					// Mark as reconnect to suppress history on next connection
					isReconnect = true
				}
			}
		},
	}

	logsCmd.Flags().BoolP("verbose", "v", false, "Show DEBUG level logs")
	logsCmd.Flags().StringP("filter", "F", "", "Filter logs by keyword (e.g., launch, tab, watchdog)")
	logsCmd.Flags().Bool("no-color", false, "Disable colored output")
	logsCmd.Flags().IntVarP(&lines, "lines", "L", 20, "Number of history lines to show on connect")

	return logsCmd
}

// isDebugLog checks if a log line is a DEBUG level log
func isDebugLog(line string) bool {
	// Check for plain DBG
	if strings.Contains(line, " DBG ") || strings.Contains(line, "\tDBG\t") {
		return true
	}
	// Check for ANSI-colored DBG (gray color: \033[90mDBG\033[0m)
	if strings.Contains(line, "\033[90mDBG\033[0m") {
		return true
	}
	// Strip ANSI and check again
	stripped := stripANSI(line)
	return strings.Contains(stripped, " DBG ") || strings.Contains(stripped, "\tDBG\t")
}

// matchesFilter checks if a log line matches the filter criteria
func matchesFilter(line, filter string) bool {
	filter = strings.ToLower(filter)
	lineLower := strings.ToLower(line)

	switch filter {
	case "launch":
		return strings.Contains(lineLower, "launch") ||
			strings.Contains(lineLower, "embed") ||
			strings.Contains(lineLower, "locat")
	case "tab":
		return strings.Contains(lineLower, "tab")
	case "watchdog":
		return strings.Contains(lineLower, "watchdog") ||
			strings.Contains(lineLower, "crash") ||
			strings.Contains(lineLower, "sweep")
	case "config":
		return strings.Contains(lineLower, "config") ||
			strings.Contains(lineLower, "reload")
	case "daemon":
		return strings.Contains(lineLower, "daemon") ||
			strings.Contains(lineLower, "socket") ||
			strings.Contains(lineLower, "database")
	default:
		// General substring match
		return strings.Contains(lineLower, filter)
	}
}

// stripANSI removes ANSI escape codes from a string
func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for i := 0; i < len(s); i++ {
		if s[i] == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteByte(s[i])
	}

	return result.String()
}
