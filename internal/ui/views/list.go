package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui/theme"
	"github.com/muesli/reflow/truncate"
)

// ListMode represents the current input mode of the list view
type ListMode int

const (
	ListModeNormal ListMode = iota
	ListModeForm
	ListModeConfirmDelete
	ListModeMove
)

// DefaultRefreshInterval is how often the list is reloaded from storage
const DefaultRefreshInterval = 5 * time.Second

// Store is the task store the list reads and writes
type Store interface {
	Reload(ctx context.Context) error
	Tasks() []model.Task
	Create(ctx context.Context, draft model.Task) (model.Task, error)
	Update(ctx context.Context, id string, fn func(*model.Task)) (model.Task, error)
	SetStatus(ctx context.Context, id string, status model.Status) (model.Task, error)
	Remove(ctx context.Context, id string) error
	Reorder(ctx context.Context, draggedID, targetID string) (bool, error)
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error
}

// Reminders arms and cancels task reminders
type Reminders interface {
	Schedule(ctx context.Context, taskID string, when time.Time)
	Cancel(ctx context.Context, taskID string)
}

// Config wires a ListView
type Config struct {
	Store     Store
	Reminders Reminders
	Tab       model.Tab
	Refresh   time.Duration
	Now       func() time.Time
	Log       *slog.Logger
}

// ListView displays tasks under the selected tab
type ListView struct {
	store     Store
	reminders Reminders
	keys      KeyMap
	now       func() time.Time
	log       *slog.Logger
	refresh   time.Duration

	width  int
	height int

	tab          model.Tab
	allTasks     []model.Task // stored order
	tasks        []model.Task // rendered rows for the tab
	settings     model.Settings
	cursor       int
	scrollOffset int

	mode       ListMode
	form       taskForm
	deleteID   string
	movingID   string
	showDetail bool
	statusMsg  string

	detail *detailRenderer
}

// NewListView creates a new list view
func NewListView(cfg Config) ListView {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefreshInterval
	}
	if cfg.Tab == "" {
		cfg.Tab = model.TabAll
	}
	return ListView{
		store:     cfg.Store,
		reminders: cfg.Reminders,
		keys:      DefaultKeyMap(),
		now:       cfg.Now,
		log:       cfg.Log,
		refresh:   cfg.Refresh,
		tab:       cfg.Tab,
		settings:  model.DefaultSettings(),
		detail:    newDetailRenderer(),
	}
}

// Init loads tasks and starts the refresh timer
func (v ListView) Init() tea.Cmd {
	return tea.Batch(v.loadTasks, v.tick())
}

// IsInputMode returns true when the view is capturing keys that would
// otherwise be global
func (v ListView) IsInputMode() bool {
	return v.mode == ListModeForm || v.mode == ListModeConfirmDelete
}

// Mode returns the current input mode
func (v ListView) Mode() ListMode {
	return v.mode
}

// Tab returns the selected tab
func (v ListView) Tab() model.Tab {
	return v.tab
}

// Visible returns the rows currently rendered
func (v ListView) Visible() []model.Task {
	out := make([]model.Task, len(v.tasks))
	copy(out, v.tasks)
	return out
}

// Cursor returns the index of the highlighted row
func (v ListView) Cursor() int {
	return v.cursor
}

// Alert returns the inline form alert, if any
func (v ListView) Alert() string {
	if v.mode != ListModeForm {
		return ""
	}
	return v.form.alert
}

// SetSize updates the view dimensions
func (v ListView) SetSize(width, height int) ListView {
	v.width = width
	v.height = height
	inputWidth := width - 20
	if inputWidth < 10 {
		inputWidth = 10
	}
	v.form.title.Width = inputWidth
	v.form.description.Width = inputWidth
	v.form.reminder.Width = inputWidth
	return v
}

// SetSettings replaces the settings the view uses for defaults
func (v ListView) SetSettings(s model.Settings) ListView {
	v.settings = s
	return v
}

// visibleTaskCount returns how many tasks can fit in the viewport
func (v ListView) visibleTaskCount() int {
	// tabs, status line and detail pane
	available := v.height - 4
	if v.showDetail {
		available -= detailHeight
	}
	if available < 1 {
		available = 1
	}
	return available
}

// ensureCursorVisible adjusts scrollOffset to keep cursor in view
func (v *ListView) ensureCursorVisible() {
	visible := v.visibleTaskCount()

	if v.cursor < v.scrollOffset {
		v.scrollOffset = v.cursor
	}
	if v.cursor >= v.scrollOffset+visible {
		v.scrollOffset = v.cursor - visible + 1
	}

	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
	maxOffset := len(v.tasks) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.scrollOffset > maxOffset {
		v.scrollOffset = maxOffset
	}
}

// rebuild recomputes the rendered rows, keeping the cursor on focusID
func (v *ListView) rebuild(focusID string) {
	if v.mode == ListModeMove {
		v.tasks = model.Arranged(v.allTasks, v.tab)
	} else {
		v.tasks = model.Visible(v.allTasks, v.tab)
	}
	if focusID != "" {
		for i, t := range v.tasks {
			if t.ID == focusID {
				v.cursor = i
				break
			}
		}
	}
	if v.cursor >= len(v.tasks) {
		v.cursor = max(0, len(v.tasks)-1)
	}
	v.ensureCursorVisible()
}

func (v ListView) current() (model.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return model.Task{}, false
	}
	return v.tasks[v.cursor], true
}

func (v ListView) currentID() string {
	task, _ := v.current()
	return task.ID
}

// Update handles messages for the list view
func (v ListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		if msg.err != nil {
			v.statusMsg = fmt.Sprintf("Error loading tasks: %v", msg.err)
			return v, errorCmd(msg.err)
		}
		focus := msg.focusID
		if focus == "" {
			focus = v.currentID()
		}
		v.allTasks = msg.tasks
		v.settings = msg.settings
		v.rebuild(focus)
		return v, nil

	case refreshTickMsg:
		// never reload under an open form or a pending confirmation
		if v.mode == ListModeNormal {
			return v, tea.Batch(v.loadTasks, v.tick())
		}
		return v, v.tick()

	case RefreshMsg:
		return v, v.loadTasks

	case taskSavedMsg:
		if msg.err != nil {
			return v, errorCmd(msg.err)
		}
		if msg.created {
			v.statusMsg = fmt.Sprintf("Added %q", msg.task.Title)
		} else {
			v.statusMsg = fmt.Sprintf("Saved %q", msg.task.Title)
		}
		return v, v.loadTasksFocus(msg.task.ID)

	case statusChangedMsg:
		if msg.err != nil {
			return v, errorCmd(msg.err)
		}
		v.statusMsg = fmt.Sprintf("%s → %s", msg.task.Title, msg.task.Status.Label())
		return v, v.loadTasksFocus(msg.task.ID)

	case taskDeletedMsg:
		if msg.err != nil {
			return v, errorCmd(msg.err)
		}
		v.statusMsg = "Task deleted"
		return v, v.loadTasks

	case taskMovedMsg:
		if msg.err != nil {
			return v, errorCmd(msg.err)
		}
		if msg.moved {
			v.statusMsg = "Task moved"
		}
		return v, v.loadTasksFocus(msg.id)

	case tea.KeyMsg:
		switch v.mode {
		case ListModeForm:
			return v.handleFormMode(msg)
		case ListModeConfirmDelete:
			return v.handleDeleteConfirm(msg)
		case ListModeMove:
			return v.handleMoveMode(msg)
		default:
			return v.handleNormalMode(msg)
		}
	}

	if v.mode == ListModeForm {
		var cmd tea.Cmd
		v.form, cmd = v.form.updateInput(msg)
		return v, cmd
	}
	return v, nil
}

// handleNormalMode handles keypresses in normal mode
func (v ListView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.statusMsg = ""

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
		}
	case key.Matches(msg, v.keys.Top):
		v.cursor = 0
	case key.Matches(msg, v.keys.Bottom):
		v.cursor = max(0, len(v.tasks)-1)

	case key.Matches(msg, v.keys.PrevTab):
		return v.switchTab(v.tabOffset(-1))
	case key.Matches(msg, v.keys.NextTab):
		return v.switchTab(v.tabOffset(1))
	case key.Matches(msg, v.keys.Tab1):
		return v.switchTab(model.Tabs[0])
	case key.Matches(msg, v.keys.Tab2):
		return v.switchTab(model.Tabs[1])
	case key.Matches(msg, v.keys.Tab3):
		return v.switchTab(model.Tabs[2])
	case key.Matches(msg, v.keys.Tab4):
		return v.switchTab(model.Tabs[3])

	case key.Matches(msg, v.keys.Add):
		v.form = newTaskForm(v.settings.DefaultReminderLeadMinutes)
		v = v.SetSize(v.width, v.height)
		v.mode = ListModeForm
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		v.form = editTaskForm(task, v.settings.DefaultReminderLeadMinutes)
		v = v.SetSize(v.width, v.height)
		v.mode = ListModeForm
		return v, nil

	case key.Matches(msg, v.keys.Status):
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		return v, v.setStatus(task.ID, task.Status.Next())

	case key.Matches(msg, v.keys.Delete):
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		v.deleteID = task.ID
		v.mode = ListModeConfirmDelete

	case key.Matches(msg, v.keys.Move):
		task, ok := v.current()
		if !ok {
			return v, nil
		}
		v.mode = ListModeMove
		v.movingID = task.ID
		v.rebuild(task.ID)
		v.statusMsg = "Moving: ↑/↓ to choose a place, enter to drop, esc to cancel"
		return v, nil

	case key.Matches(msg, v.keys.Detail):
		v.showDetail = !v.showDetail

	case key.Matches(msg, v.keys.Refresh):
		return v, v.loadTasks
	}

	v.ensureCursorVisible()
	return v, nil
}

func (v ListView) tabOffset(delta int) model.Tab {
	i := indexOf(model.Tabs, v.tab)
	return model.Tabs[(i+delta+len(model.Tabs))%len(model.Tabs)]
}

// switchTab changes the filter only; storage is untouched
func (v ListView) switchTab(tab model.Tab) (tea.Model, tea.Cmd) {
	focus := v.currentID()
	v.tab = tab
	v.cursor = 0
	v.scrollOffset = 0
	v.rebuild(focus)
	return v, nil
}

// handleFormMode handles keypresses while the create/edit form is open
func (v ListView) handleFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Cancel):
		v.mode = ListModeNormal
		return v, nil

	case key.Matches(msg, v.keys.Submit):
		draft, err := v.form.draft()
		if err != nil {
			v.form.alert = alertFor(err)
			if errors.Is(err, model.ErrEmptyTitle) {
				v.form.setFocus(fieldTitle)
			} else {
				v.form.setFocus(fieldReminder)
			}
			return v, nil
		}
		form := v.form
		v.mode = ListModeNormal
		if form.isEdit() {
			return v, v.updateTask(form.original, draft)
		}
		return v, v.createTask(draft)

	case key.Matches(msg, v.keys.NextField):
		v.form.setFocus(v.form.focus + 1)
		return v, nil

	case key.Matches(msg, v.keys.PrevField):
		v.form.setFocus(v.form.focus - 1)
		return v, nil

	case key.Matches(msg, v.keys.Left) && v.form.cycle(-1):
		return v, nil

	case key.Matches(msg, v.keys.Right) && v.form.cycle(1):
		return v, nil

	case key.Matches(msg, v.keys.Default) && v.form.focus == fieldReminder:
		v.form.fillDefaultReminder(v.now())
		return v, nil
	}

	v.form.alert = ""
	var cmd tea.Cmd
	v.form, cmd = v.form.updateInput(msg)
	return v, cmd
}

// handleDeleteConfirm waits for y or n
func (v ListView) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.deleteID
		v.mode = ListModeNormal
		v.deleteID = ""
		return v, v.deleteTask(id)
	case "n", "N", "esc":
		v.mode = ListModeNormal
		v.deleteID = ""
	}
	return v, nil
}

// handleMoveMode lets the picked-up task be dropped on another row
func (v ListView) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
		}
	case key.Matches(msg, v.keys.Top):
		v.cursor = 0
	case key.Matches(msg, v.keys.Bottom):
		v.cursor = max(0, len(v.tasks)-1)

	case key.Matches(msg, v.keys.Submit):
		dragged := v.movingID
		target := v.currentID()
		v.mode = ListModeNormal
		v.movingID = ""
		v.statusMsg = ""
		v.rebuild(dragged)
		if target == "" || target == dragged {
			return v, nil
		}
		return v, v.reorder(dragged, target)

	case key.Matches(msg, v.keys.Cancel), key.Matches(msg, v.keys.Move):
		id := v.movingID
		v.mode = ListModeNormal
		v.movingID = ""
		v.statusMsg = ""
		v.rebuild(id)
	}
	v.ensureCursorVisible()
	return v, nil
}

// View renders the list
func (v ListView) View() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder

	b.WriteString(v.renderTabs())
	b.WriteString("\n")

	if v.mode == ListModeForm {
		b.WriteString(v.form.View(v.width))
		return b.String()
	}

	if v.mode == ListModeConfirmDelete {
		title := ""
		for _, task := range v.allTasks {
			if task.ID == v.deleteID {
				title = task.Title
			}
		}
		confirmStyle := lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title)))
		b.WriteString("\n")
	} else if v.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(t.Info).Italic(true)
		b.WriteString(statusStyle.Render(v.statusMsg))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
	}

	if len(v.tasks) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(t.Subtle).Italic(true).Padding(1, 1)
		if v.tab == model.TabAll {
			b.WriteString(emptyStyle.Render("No tasks yet. Press 'a' to add one."))
		} else {
			b.WriteString(emptyStyle.Render(fmt.Sprintf("No %s tasks.", strings.ToLower(v.tab.Label()))))
		}
		return b.String()
	}

	visible := v.visibleTaskCount()
	end := min(v.scrollOffset+visible, len(v.tasks))

	var rows []string
	if v.scrollOffset > 0 {
		rows = append(rows, styles.Label.Render(fmt.Sprintf("  ↑ %d more above", v.scrollOffset)))
	}
	for i := v.scrollOffset; i < end; i++ {
		rows = append(rows, v.renderTask(v.tasks[i], i == v.cursor))
	}
	if end < len(v.tasks) {
		rows = append(rows, styles.Label.Render(fmt.Sprintf("  ↓ %d more below", len(v.tasks)-end)))
	}
	b.WriteString(strings.Join(rows, "\n"))

	if v.showDetail {
		if task, ok := v.current(); ok {
			b.WriteString("\n")
			b.WriteString(v.detail.Render(task, v.width))
		}
	}

	return b.String()
}

// renderTabs renders the tab strip with per-tab counts
func (v ListView) renderTabs() string {
	styles := theme.Current.Styles
	var parts []string
	for i, tab := range model.Tabs {
		n := 0
		for _, task := range v.allTasks {
			if tab.Matches(task) {
				n++
			}
		}
		label := fmt.Sprintf("%d %s (%d)", i+1, tab.Label(), n)
		if tab == v.tab {
			parts = append(parts, styles.TabActive.Render(label))
		} else {
			parts = append(parts, styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderTask renders one row
func (v ListView) renderTask(task model.Task, focused bool) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	cursor := "  "
	if focused {
		cursor = "▸ "
	}

	status := statusIcon(task.Status)
	priority := lipgloss.NewStyle().Foreground(t.PriorityColor(task.Priority)).Render("●")

	var suffix string
	if task.ReminderTime != nil {
		suffix = " " + styles.Reminder.Render("⏰ "+task.ReminderTime.Local().Format("01-02 15:04"))
	}

	prefix := cursor + task.Type.Icon() + " " + status + " " + priority + " "
	room := v.width - lipgloss.Width(prefix) - lipgloss.Width(suffix) - 2
	title := task.Title
	if room > 1 {
		title = truncate.StringWithTail(title, uint(room), "…")
	}

	style := styles.TaskNormal
	switch {
	case task.ID == v.movingID:
		style = styles.TaskMoving
	case focused:
		style = styles.TaskSelected
	case task.IsCompleted():
		style = styles.TaskDone
	}
	return style.Render(prefix + title + suffix)
}

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusProgress:
		return "🔵"
	case model.StatusCompleted:
		return "✅"
	default:
		return "🟡"
	}
}

// Messages

type tasksLoadedMsg struct {
	tasks    []model.Task
	settings model.Settings
	focusID  string
	err      error
}

type taskSavedMsg struct {
	task    model.Task
	created bool
	err     error
}

type statusChangedMsg struct {
	task model.Task
	err  error
}

type taskDeletedMsg struct {
	id  string
	err error
}

type taskMovedMsg struct {
	id    string
	moved bool
	err   error
}

type refreshTickMsg struct{}

// RefreshMsg asks the list to reload from storage
type RefreshMsg struct{}

// ErrorMsg reports a failed operation to the root model
type ErrorMsg struct {
	Err error
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{Err: err} }
}

// Commands

func (v ListView) tick() tea.Cmd {
	return tea.Tick(v.refresh, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (v ListView) loadTasks() tea.Msg {
	return v.load("")
}

func (v ListView) loadTasksFocus(id string) tea.Cmd {
	return func() tea.Msg { return v.load(id) }
}

func (v ListView) load(focusID string) tasksLoadedMsg {
	ctx := context.Background()
	if err := v.store.Reload(ctx); err != nil {
		return tasksLoadedMsg{err: err}
	}
	settings, err := v.store.LoadSettings(ctx)
	if err != nil {
		v.log.Warn("failed to load settings", "error", err)
	}
	return tasksLoadedMsg{tasks: v.store.Tasks(), settings: settings, focusID: focusID}
}

func (v ListView) createTask(draft model.Task) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		task, err := v.store.Create(ctx, draft)
		if err != nil {
			return taskSavedMsg{err: err}
		}
		if task.ReminderTime != nil {
			v.reminders.Schedule(ctx, task.ID, *task.ReminderTime)
		}
		return taskSavedMsg{task: task, created: true}
	}
}

func (v ListView) updateTask(original, draft model.Task) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		task, err := v.store.Update(ctx, original.ID, func(t *model.Task) {
			t.Title = draft.Title
			t.Description = draft.Description
			t.Type = draft.Type
			t.Priority = draft.Priority
			t.ReminderTime = draft.ReminderTime
		})
		if err != nil {
			return taskSavedMsg{err: err}
		}
		if !sameTime(original.ReminderTime, task.ReminderTime) {
			if task.ReminderTime != nil && task.ReminderTime.After(v.now()) {
				v.reminders.Schedule(ctx, task.ID, *task.ReminderTime)
			} else {
				v.reminders.Cancel(ctx, task.ID)
			}
		}
		return taskSavedMsg{task: task}
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (v ListView) setStatus(id string, status model.Status) tea.Cmd {
	return func() tea.Msg {
		task, err := v.store.SetStatus(context.Background(), id, status)
		return statusChangedMsg{task: task, err: err}
	}
}

func (v ListView) deleteTask(id string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := v.store.Remove(ctx, id); err != nil {
			return taskDeletedMsg{err: err}
		}
		v.reminders.Cancel(ctx, id)
		return taskDeletedMsg{id: id}
	}
}

func (v ListView) reorder(draggedID, targetID string) tea.Cmd {
	return func() tea.Msg {
		moved, err := v.store.Reorder(context.Background(), draggedID, targetID)
		return taskMovedMsg{id: draggedID, moved: moved, err: err}
	}
}
