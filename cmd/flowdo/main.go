package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dori/flowdo/internal/app"
	"github.com/dori/flowdo/internal/config"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	os.Exit(run())
}

// run executes the command line and returns the process exit code
func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, app.ErrAlreadyRunning) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "flowdo",
		Short: "FlowDo - a to-do manager with desktop reminders",
		Long: `FlowDo keeps a prioritized task list with reminders.

Run without a subcommand to open the task list. Reminders are delivered
as desktop notifications by "flowdo daemon".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $FLOWDO_CONFIG or ~/.config/flowdo/config.toml)")

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath)
		}
		return config.Load()
	}

	tuiFlags(root, load)
	root.AddCommand(
		daemonCmd(load),
		addCmd(load),
		listCmd(load),
		doneCmd(load),
		deleteCmd(load),
		snoozeCmd(load),
		exportCmd(load),
		versionCmd(),
	)
	return root
}

type configLoader func() (*config.Config, error)

// openApp loads the config and opens storage for surface
func openApp(ctx context.Context, load configLoader, surface app.Surface) (*app.App, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	application, err := app.New(cfg, surface)
	if err != nil {
		return nil, err
	}
	if err := application.Init(ctx); err != nil {
		application.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return application, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flowdo v%s\n", version)
		},
	}
}
