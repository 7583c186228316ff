package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/dori/flowdo/internal/ui/views"
)

// KeyMap defines the global keybindings; list keys live in views
type KeyMap struct {
	Help        key.Binding
	ThemeToggle key.Binding
	Quit        key.Binding

	List views.KeyMap
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ThemeToggle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		List: views.DefaultKeyMap(),
	}
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	l := k.List
	return [][]key.Binding{
		{l.Up, l.Down, l.Top, l.Bottom},
		{l.PrevTab, l.NextTab, l.Tab1, l.Tab2, l.Tab3, l.Tab4},
		{l.Add, l.Edit, l.Status, l.Delete},
		{l.Move, l.Detail, l.Refresh},
		{k.ThemeToggle, k.Help, k.Quit},
	}
}
