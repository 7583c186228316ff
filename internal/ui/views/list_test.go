package views

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/flowdo/internal/db"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReminders struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func newFakeReminders() *fakeReminders {
	return &fakeReminders{scheduled: map[string]time.Time{}}
}

func (f *fakeReminders) Schedule(_ context.Context, taskID string, when time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[taskID] = when
}

func (f *fakeReminders) Cancel(_ context.Context, taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, taskID)
	f.cancelled = append(f.cancelled, taskID)
}

var testNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	t         *testing.T
	store     *store.Store
	reminders *fakeReminders
	view      ListView
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), db.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	n := 0
	clock := testNow
	st := store.New(database,
		store.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("t%d", n)
		}),
		store.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	_, err = st.Init(context.Background())
	require.NoError(t, err)

	h := &harness{t: t, store: st, reminders: newFakeReminders()}
	h.view = NewListView(Config{
		Store:     st,
		Reminders: h.reminders,
		Now:       func() time.Time { return testNow },
	}).SetSize(100, 40)
	h.settle(h.view.loadTasks)
	return h
}

// settle runs cmd and feeds its messages back into the view until idle
func (h *harness) settle(cmd tea.Cmd) {
	h.t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		var next tea.Model
		next, cmd = h.view.Update(msg)
		h.view = next.(ListView)
	}
}

// press sends keys and settles the command of the last one
func (h *harness) press(keys ...tea.KeyMsg) {
	h.t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = h.view.Update(k)
		h.view = next.(ListView)
	}
	if h.view.Mode() == ListModeForm {
		// form input returns cursor blink commands that sleep
		return
	}
	h.settle(cmd)
}

// submit presses enter in the form and settles the save
func (h *harness) submit() {
	h.t.Helper()
	next, cmd := h.view.Update(enter)
	h.view = next.(ListView)
	h.settle(cmd)
}

func (h *harness) titles() []string {
	var out []string
	for _, task := range h.view.Visible() {
		out = append(out, task.Title)
	}
	return out
}

func (h *harness) addTask(title string) model.Task {
	h.t.Helper()
	task, err := h.store.Create(context.Background(), model.Task{Title: title})
	require.NoError(h.t, err)
	h.settle(h.view.loadTasks)
	return task
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestEmptyTitleShowsAlert(t *testing.T) {
	h := newHarness(t)

	h.press(runes("a"), runes("   "), enter)

	assert.Equal(t, ListModeForm, h.view.Mode())
	assert.Equal(t, AlertEmptyTitle, h.view.Alert())
	assert.Contains(t, h.view.View(), AlertEmptyTitle)
	assert.Empty(t, h.store.Tasks())
}

func TestCreatedTaskShowsUnderMatchingTabs(t *testing.T) {
	h := newHarness(t)

	h.press(runes("a"), runes("Buy milk"))
	h.submit()

	assert.Equal(t, ListModeNormal, h.view.Mode())
	assert.Equal(t, []string{"Buy milk"}, h.titles())
	created := h.view.Visible()[0]
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, model.TypeWork, created.Type)
	assert.Equal(t, model.PriorityMedium, created.Priority)
	assert.Nil(t, created.ReminderTime)
	assert.Empty(t, h.reminders.scheduled)

	h.press(runes("2"))
	assert.Equal(t, model.TabPending, h.view.Tab())
	assert.Equal(t, []string{"Buy milk"}, h.titles())

	h.press(runes("3"))
	assert.Empty(t, h.titles())
	assert.Contains(t, h.view.View(), "No in progress tasks.")

	h.press(runes("4"))
	assert.Empty(t, h.titles())

	// switching tabs never writes
	assert.Len(t, h.store.Tasks(), 1)
}

func TestFormCancelDiscardsDraft(t *testing.T) {
	h := newHarness(t)

	h.press(runes("a"), runes("Never mind"), esc)

	assert.Equal(t, ListModeNormal, h.view.Mode())
	assert.Empty(t, h.store.Tasks())
}

func TestStatusKeyCycles(t *testing.T) {
	h := newHarness(t)
	task := h.addTask("Write report")

	want := []model.Status{model.StatusProgress, model.StatusCompleted, model.StatusPending}
	for _, status := range want {
		h.press(runes("s"))
		stored, ok := h.store.Find(task.ID)
		require.True(t, ok)
		assert.Equal(t, status, stored.Status)
		if status == model.StatusCompleted {
			assert.NotNil(t, stored.CompletedAt)
		} else {
			assert.Nil(t, stored.CompletedAt)
		}
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	task := h.addTask("Buy milk")

	h.press(runes("d"))
	assert.Equal(t, ListModeConfirmDelete, h.view.Mode())
	assert.True(t, h.view.IsInputMode())
	assert.Contains(t, h.view.View(), `Delete "Buy milk"? (y/n)`)

	h.press(runes("n"))
	assert.Equal(t, ListModeNormal, h.view.Mode())
	assert.Len(t, h.store.Tasks(), 1)
	assert.Empty(t, h.reminders.cancelled)

	h.press(runes("d"), runes("y"))
	assert.Empty(t, h.store.Tasks())
	assert.Empty(t, h.titles())
	assert.Equal(t, []string{task.ID}, h.reminders.cancelled)
}

func TestMoveModeReorders(t *testing.T) {
	h := newHarness(t)
	a := h.addTask("A")
	b := h.addTask("B")
	c := h.addTask("C")

	h.press(runes("m"))
	assert.Equal(t, ListModeMove, h.view.Mode())
	assert.False(t, h.view.IsInputMode())

	h.press(runes("j"), runes("j"), enter)
	assert.Equal(t, ListModeNormal, h.view.Mode())

	var ids []string
	for _, task := range model.Arranged(h.store.Tasks(), model.TabAll) {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids)
}

func TestMoveModeCancelKeepsOrder(t *testing.T) {
	h := newHarness(t)
	a := h.addTask("A")
	b := h.addTask("B")

	h.press(runes("m"), runes("j"), esc)

	assert.Equal(t, ListModeNormal, h.view.Mode())
	tasks := h.store.Tasks()
	assert.Equal(t, a.ID, tasks[0].ID)
	assert.Equal(t, b.ID, tasks[1].ID)
}

func TestDefaultReminderKey(t *testing.T) {
	h := newHarness(t)

	h.press(runes("a"), runes("Call mum"), tab, tab, tab, tab, runes("+"))
	h.submit()

	require.Len(t, h.store.Tasks(), 1)
	created := h.store.Tasks()[0]
	require.NotNil(t, created.ReminderTime)
	want := testNow.Add(model.DefaultReminderLeadMinutes * time.Minute)
	assert.True(t, want.Equal(*created.ReminderTime), "reminder %v", created.ReminderTime)
	assert.True(t, want.Equal(h.reminders.scheduled[created.ID]))
}

func TestEditClearsReminder(t *testing.T) {
	h := newHarness(t)
	when := testNow.Add(time.Hour)
	task, err := h.store.Create(context.Background(), model.Task{Title: "Dentist", ReminderTime: &when})
	require.NoError(t, err)
	h.settle(h.view.loadTasks)

	h.press(runes("e"), down, down, down, down)
	// clear the reminder field
	for range len(ReminderLayout) {
		h.press(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	h.submit()

	stored, ok := h.store.Find(task.ID)
	require.True(t, ok)
	assert.Nil(t, stored.ReminderTime)
	assert.Equal(t, []string{task.ID}, h.reminders.cancelled)
}

func TestRefreshTickSkipsReloadWhileEditing(t *testing.T) {
	h := newHarness(t)
	h.press(runes("a"))

	h.addTaskBehindView("Added elsewhere")
	next, _ := h.view.Update(refreshTickMsg{})
	h.view = next.(ListView)

	assert.Equal(t, ListModeForm, h.view.Mode())
	assert.Empty(t, h.view.Visible())
}

func (h *harness) addTaskBehindView(title string) {
	h.t.Helper()
	_, err := h.store.Create(context.Background(), model.Task{Title: title})
	require.NoError(h.t, err)
}
