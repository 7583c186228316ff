package ui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/flowdo/internal/db"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/store"
	"github.com/dori/flowdo/internal/ui/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noReminders struct{}

func (noReminders) Schedule(context.Context, string, time.Time) {}
func (noReminders) Cancel(context.Context, string)              {}

func newTestRoot(t *testing.T, opts Options) (RootModel, *store.Store) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), db.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	st := store.New(database)
	_, err = st.Init(context.Background())
	require.NoError(t, err)

	prev := theme.Current
	t.Cleanup(func() { theme.Current = prev })
	theme.SetTheme(theme.Light)

	m := newRootModel(st, noReminders{}, nil, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(RootModel), st
}

func update(t *testing.T, m RootModel, msg tea.Msg) (RootModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(RootModel), cmd
}

func TestThemeTogglePersists(t *testing.T) {
	m, st := newTestRoot(t, Options{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	require.NotNil(t, cmd)
	assert.Equal(t, model.ThemeDark, theme.Current.Theme.Name)

	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "Theme: dark")

	settings, err := st.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, settings.Theme)
}

func TestStoredThemeApplied(t *testing.T) {
	m, st := newTestRoot(t, Options{})
	settings := model.DefaultSettings()
	settings.Theme = model.ThemeDark
	require.NoError(t, st.SaveSettings(context.Background(), settings))

	update(t, m, m.loadSettings())
	assert.Equal(t, model.ThemeDark, theme.Current.Theme.Name)
}

func TestThemeFlagOverridesStoredTheme(t *testing.T) {
	m, st := newTestRoot(t, Options{Theme: model.ThemeDark})
	require.NoError(t, st.SaveSettings(context.Background(), model.DefaultSettings()))

	update(t, m, m.loadSettings())
	assert.Equal(t, model.ThemeDark, theme.Current.Theme.Name)
}

func TestQuitKeyIgnoredWhileTyping(t *testing.T) {
	m, _ := newTestRoot(t, Options{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	require.True(t, m.ListView().IsInputMode())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, m.ListView().IsInputMode())

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestReminderShowsStatus(t *testing.T) {
	m, _ := newTestRoot(t, Options{})

	m, cmd := update(t, m, ReminderMsg{})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Reminder due")
}

func TestHelpOverlay(t *testing.T) {
	m, _ := newTestRoot(t, Options{Tab: model.TabCompleted})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Contains(t, m.View(), "FlowDo Help")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "FlowDo Help")
	assert.Contains(t, m.View(), "[Completed]")
}
