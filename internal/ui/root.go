package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/flowdo/internal/app"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui/theme"
	"github.com/dori/flowdo/internal/ui/views"
)

// Options configures the TUI
type Options struct {
	// Tab is the tab shown on open
	Tab model.Tab
	// Theme overrides the stored theme until the user toggles it
	Theme string
	// Refresh is how often the list reloads from storage
	Refresh time.Duration
	Now     func() time.Time
}

// RootModel is the main application model
type RootModel struct {
	store  views.Store
	log    *slog.Logger
	keys   KeyMap
	help   help.Model
	width  int
	height int

	listView    views.ListView
	helpVisible bool

	settings    model.Settings
	themeLocked bool

	// Status message
	statusMsg string
	errorMsg  string
}

// NewRootModel creates a new root model
func NewRootModel(application *app.App, opts Options) RootModel {
	if opts.Refresh <= 0 {
		opts.Refresh = application.Config.UI.RefreshInterval.Duration
	}
	return newRootModel(application.Store, application.Scheduler, application.Log, opts)
}

func newRootModel(store views.Store, reminders views.Reminders, log *slog.Logger, opts Options) RootModel {
	if log == nil {
		log = slog.Default()
	}
	h := help.New()
	h.ShowAll = true

	m := RootModel{
		store:    store,
		log:      log,
		keys:     DefaultKeyMap(),
		help:     h,
		settings: model.DefaultSettings(),
		listView: views.NewListView(views.Config{
			Store:     store,
			Reminders: reminders,
			Tab:       opts.Tab,
			Refresh:   opts.Refresh,
			Now:       opts.Now,
			Log:       log,
		}),
	}
	if t, ok := theme.ByName(opts.Theme); ok {
		theme.SetTheme(t)
		m.themeLocked = true
	}
	return m
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return tea.Batch(m.loadSettings, m.listView.Init())
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// header (1 line) and footer (up to 3 lines)
		m.listView = m.listView.SetSize(m.width, m.height-4)
		return m, nil

	case tea.KeyMsg:
		// Clear status/error on any keypress
		m.statusMsg = ""
		m.errorMsg = ""

		isInputMode := m.listView.IsInputMode()

		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.ThemeToggle):
			return m.toggleTheme()
		}

		if !isInputMode && key.Matches(msg, m.keys.Help) {
			m.helpVisible = !m.helpVisible
			return m, nil
		}
		if m.helpVisible {
			if msg.String() == "esc" {
				m.helpVisible = false
			}
			return m, nil
		}

	case ErrorMsg:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case views.ErrorMsg:
		m.log.Error("operation failed", "error", msg.Err)
		m.errorMsg = msg.Err.Error()
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil

	case ThemeChangedMsg:
		if msg.Err != nil {
			m.log.Error("failed to save theme", "error", msg.Err)
			m.errorMsg = fmt.Sprintf("Theme not saved: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Theme: %s", msg.ThemeName)
		return m, nil

	case settingsLoadedMsg:
		if msg.err != nil {
			m.log.Warn("failed to load settings", "error", msg.err)
			return m, nil
		}
		m.settings = msg.settings
		if !m.themeLocked {
			if t, ok := theme.ByName(msg.settings.Theme); ok {
				theme.SetTheme(t)
			}
		}
		m.listView = m.listView.SetSettings(msg.settings)
		return m, nil

	case ReminderMsg:
		m.statusMsg = "🔔 Reminder due"
		updated, cmd := m.listView.Update(views.RefreshMsg{})
		m.listView = updated.(views.ListView)
		return m, cmd
	}

	updated, cmd := m.listView.Update(msg)
	m.listView = updated.(views.ListView)
	return m, cmd
}

// toggleTheme flips between light and dark and persists the choice
func (m RootModel) toggleTheme() (tea.Model, tea.Cmd) {
	next := theme.Toggle(theme.Current.Theme.Name)
	if t, ok := theme.ByName(next); ok {
		theme.SetTheme(t)
	}
	m.themeLocked = false
	m.settings.Theme = next
	m.listView = m.listView.SetSettings(m.settings)

	store := m.store
	return m, func() tea.Msg {
		ctx := context.Background()
		settings, err := store.LoadSettings(ctx)
		if err != nil {
			return ThemeChangedMsg{ThemeName: next, Err: err}
		}
		settings.Theme = next
		return ThemeChangedMsg{ThemeName: next, Err: store.SaveSettings(ctx, settings)}
	}
}

func (m RootModel) loadSettings() tea.Msg {
	settings, err := m.store.LoadSettings(context.Background())
	return settingsLoadedMsg{settings: settings, err: err}
}

// ListView returns the list view
func (m RootModel) ListView() views.ListView {
	return m.listView
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	contentHeight := m.height - 4
	var content string
	if m.helpVisible {
		content = m.renderHelp()
	} else {
		content = m.listView.View()
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("📋 FlowDo")

	subtle := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, subtle.Render(fmt.Sprintf("[%s]", m.listView.Tab().Label())))
	rightSide := subtle.Render(fmt.Sprintf("theme: %s", t.Name))

	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 0 {
		gap = 0
	}
	return leftSide + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the footer/status bar
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	hint := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var lines []string
	if m.errorMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg))
	}

	switch m.listView.Mode() {
	case views.ListModeForm:
		lines = append(lines, hint("enter", "save")+sep+hint("esc", "cancel")+sep+hint("tab", "next field"))
	case views.ListModeConfirmDelete:
		lines = append(lines, hint("y", "delete")+sep+hint("n", "keep"))
	case views.ListModeMove:
		lines = append(lines, hint("↑/↓", "choose place")+sep+hint("enter", "drop")+sep+hint("esc", "cancel"))
	default:
		lines = append(lines,
			hint("a", "add")+sep+hint("e", "edit")+sep+hint("s", "status")+sep+
				hint("d", "delete")+sep+hint("m", "move")+sep+hint("enter", "details"),
			hint("←/→ 1-4", "tabs")+sep+hint("C-t", "theme")+sep+hint("?", "help")+sep+hint("q", "quit"),
		)
	}
	return strings.Join(lines, "\n")
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp() string {
	styles := theme.Current.Styles
	var b strings.Builder
	b.WriteString(styles.Title.Render("FlowDo Help"))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpDesc.Render("Reminders are delivered by `flowdo daemon`. Press ? or esc to close"))
	return b.String()
}
