package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/windock/windock/internal/core"
	"github.com/windock/windock/internal/daemon"
)

func NewRootCommand() *cobra.Command {
	var configPath string
	var verbose int

	rootCmd := &cobra.Command{
		Use:   "windock",
		Short: "Windock - Window docking daemon",
		Long:  `Windock embeds native application windows as tabs inside a host window.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.EnsureConfig(configPath)
			if err != nil {
				return err
			}
			core.Config = cfg

			level := cfg.SlogLevel()
			if verbose > 0 {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			})))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config-path", core.DefaultConfigPath(),
		"config path",
	)
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "more output, repeat for even more")

	rootCmd.AddCommand(
		NewStartCommand(),
		NewStopCommand(),
		NewRestartCommand(),
		NewStatusCommand(),
		NewVersionCommand(),
		NewHostCommand(),
		NewLaunchCommand(),
		NewShowCommand(),
		NewHideCommand(),
		NewCloseCommand(),
		NewResizeCommand(),
		NewMoveCommand(),
		NewResizeAllCommand(),
		NewListCommand(),
		NewAppsCommand(),
		NewLogsCommand(),
		NewAttachCommand(),
		NewEventsCommand(),
		NewHistoryCommand(),
		NewReloadCommand(),
		NewDaemonCommand(),
		NewInternalCommand(),
	)

	return rootCmd
}

// runDaemonCommand sends one command to the daemon, replays the response
// messages through the logger, and exits non-zero on an ERROR response.
func runDaemonCommand(command string) {
	daemon.EnsureDaemonIsRunning()

	response, err := daemon.SendCommand(command)
	if err != nil {
		slog.Error(fmt.Sprintf("Failed to send command to daemon: %v", err))
		os.Exit(1)
	}
	response.LogMessages()
	if !response.Ok() {
		os.Exit(1)
	}
}
