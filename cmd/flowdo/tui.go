package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/flowdo/internal/app"
	"github.com/dori/flowdo/internal/bus"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui"
	"github.com/dori/flowdo/internal/ui/theme"
	"github.com/spf13/cobra"
)

// tuiFlags makes the root command open the task list
func tuiFlags(root *cobra.Command, load configLoader) {
	var viewFlag, themeFlag string
	root.Flags().StringVar(&viewFlag, "view", string(model.TabAll), "Starting tab (all, pending, progress, completed)")
	root.Flags().StringVar(&themeFlag, "theme", "", "Theme (light, dark); default is the saved setting")
	root.Args = cobra.NoArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		tab, err := model.ParseTab(viewFlag)
		if err != nil {
			return err
		}
		if themeFlag != "" {
			if _, ok := theme.ByName(themeFlag); !ok {
				return fmt.Errorf("unknown theme %q (want light or dark)", themeFlag)
			}
		}
		return runTUI(cmd.Context(), load, tab, themeFlag)
	}
}

func runTUI(ctx context.Context, load configLoader, tab model.Tab, themeName string) error {
	application, err := openApp(ctx, load, app.SurfaceTUI)
	if err != nil {
		return err
	}
	defer application.Close()

	root := ui.NewRootModel(application, ui.Options{Tab: tab, Theme: themeName})
	p := tea.NewProgram(root, tea.WithAltScreen())

	// The daemon asks the open list to play the cue when a reminder fires
	receiver := bus.NewReceiver(bus.SocketPath(application.Config.DataDir), application.Log)
	receiver.Handle(bus.ActionPlayNotificationSound, func(ctx context.Context, msg bus.Message) bus.Reply {
		go application.Player.PlayCue(context.Background())
		go p.Send(ui.ReminderMsg{})
		return bus.Reply{Success: true}
	})
	if err := receiver.Start(); err != nil {
		application.Log.Warn("reminder sounds unavailable", "error", err)
	} else {
		defer receiver.Close()
	}

	application.Log.Info("tui started", "tab", tab)
	_, err = p.Run()
	return err
}
