package ui

import (
	"github.com/dori/flowdo/internal/model"
)

// Messages for inter-component communication

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}

// ThemeChangedMsg indicates the theme was changed
type ThemeChangedMsg struct {
	ThemeName string
	Err       error
}

// ReminderMsg is sent when the daemon asks the open TUI to play the cue
type ReminderMsg struct{}

type settingsLoadedMsg struct {
	settings model.Settings
	err      error
}
