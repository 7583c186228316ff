package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dori/flowdo/internal/app"
	"github.com/dori/flowdo/internal/bus"
	"github.com/dori/flowdo/internal/daemon"
	"github.com/dori/flowdo/internal/notify"
	"github.com/spf13/cobra"
)

func daemonCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Deliver reminders as desktop notifications",
		Long: `Run the background worker. It arms reminders, shows a notification
when one is due and handles the Complete and Snooze buttons. Stop it
with Ctrl-C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := openApp(ctx, load, app.SurfaceDaemon)
			if err != nil {
				return err
			}
			defer application.Close()

			cfg := application.Config
			d := daemon.New(daemon.Config{
				Store:         application.Store,
				Alarms:        application.Alarms,
				Display:       application.Notifier,
				Messenger:     bus.NewSender(bus.SocketPath(cfg.DataDir)),
				Opener:        notify.NewCommandOpener(cfg.Notify.OpenCommand),
				SweepInterval: cfg.Daemon.SweepInterval.Duration,
				Log:           application.Log,
			})

			fmt.Fprintf(cmd.OutOrStdout(), "flowdo daemon running (data: %s)\n", cfg.DataDir)
			return d.Run(ctx)
		},
	}
}
