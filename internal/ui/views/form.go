package views

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui/theme"
)

// ReminderLayout is how reminder times are typed in the form
const ReminderLayout = "2006-01-02 15:04"

// Alerts shown inline in the form
const (
	AlertEmptyTitle  = "Please enter a task title"
	AlertBadReminder = "Reminder must look like " + ReminderLayout
)

var errBadReminder = errors.New(AlertBadReminder)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldType
	fieldPriority
	fieldReminder
	fieldCount
)

// taskForm edits the fields of a new or existing task
type taskForm struct {
	editingID string
	original  model.Task

	title       textinput.Model
	description textinput.Model
	reminder    textinput.Model
	typeIdx     int
	priorityIdx int

	focus formField
	alert string
	lead  int
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

// newTaskForm returns an empty create form
func newTaskForm(leadMinutes int) taskForm {
	f := taskForm{
		title:       newInput("What needs doing?", 256),
		description: newInput("Details (markdown)", 1024),
		reminder:    newInput("YYYY-MM-DD HH:MM, + for default", len(ReminderLayout)),
		typeIdx:     indexOf(model.Types, model.TypeWork),
		priorityIdx: indexOf(model.Priorities, model.PriorityMedium),
		lead:        leadMinutes,
	}
	f.title.Focus()
	return f
}

// editTaskForm returns a form prefilled from task
func editTaskForm(task model.Task, leadMinutes int) taskForm {
	f := newTaskForm(leadMinutes)
	f.editingID = task.ID
	f.original = task
	f.title.SetValue(task.Title)
	f.description.SetValue(task.Description)
	f.typeIdx = max(0, indexOf(model.Types, task.Type))
	f.priorityIdx = max(0, indexOf(model.Priorities, task.Priority))
	if task.ReminderTime != nil {
		f.reminder.SetValue(task.ReminderTime.Local().Format(ReminderLayout))
	}
	return f
}

func indexOf[T comparable](items []T, v T) int {
	for i, item := range items {
		if item == v {
			return i
		}
	}
	return -1
}

func (f taskForm) isEdit() bool {
	return f.editingID != ""
}

func (f *taskForm) setFocus(field formField) {
	f.focus = (field + fieldCount) % fieldCount
	f.title.Blur()
	f.description.Blur()
	f.reminder.Blur()
	switch f.focus {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.description.Focus()
	case fieldReminder:
		f.reminder.Focus()
	}
}

// cycle moves the type or priority selection by delta
func (f *taskForm) cycle(delta int) bool {
	switch f.focus {
	case fieldType:
		f.typeIdx = (f.typeIdx + delta + len(model.Types)) % len(model.Types)
		return true
	case fieldPriority:
		f.priorityIdx = (f.priorityIdx + delta + len(model.Priorities)) % len(model.Priorities)
		return true
	}
	return false
}

// fillDefaultReminder sets the reminder to now plus the default lead time
func (f *taskForm) fillDefaultReminder(now time.Time) {
	lead := f.lead
	if lead <= 0 {
		lead = model.DefaultReminderLeadMinutes
	}
	f.reminder.SetValue(now.Add(time.Duration(lead) * time.Minute).Local().Format(ReminderLayout))
}

// updateInput feeds msg to the focused text input
func (f taskForm) updateInput(msg tea.Msg) (taskForm, tea.Cmd) {
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.description, cmd = f.description.Update(msg)
	case fieldReminder:
		f.reminder, cmd = f.reminder.Update(msg)
	}
	return f, cmd
}

// draft validates the form and returns the task it describes
func (f taskForm) draft() (model.Task, error) {
	task := model.Task{
		Title:       strings.TrimSpace(f.title.Value()),
		Description: strings.TrimSpace(f.description.Value()),
		Type:        model.Types[f.typeIdx],
		Priority:    model.Priorities[f.priorityIdx],
	}
	if task.Title == "" {
		return task, model.ErrEmptyTitle
	}
	reminder, err := parseReminder(f.reminder.Value())
	if err != nil {
		return task, err
	}
	task.ReminderTime = reminder
	return task, nil
}

// parseReminder reads a local reminder time; blank means none
func parseReminder(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(ReminderLayout, s, time.Local)
	if err != nil {
		return nil, errBadReminder
	}
	t = t.UTC()
	return &t, nil
}

func alertFor(err error) string {
	switch {
	case errors.Is(err, model.ErrEmptyTitle):
		return AlertEmptyTitle
	case errors.Is(err, errBadReminder):
		return AlertBadReminder
	default:
		return err.Error()
	}
}

// View renders the form
func (f taskForm) View(width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	heading := "New task"
	if f.isEdit() {
		heading = "Edit task"
	}

	labelStyle := styles.Label.Width(12)
	focusedLabel := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Width(12)
	label := func(field formField, text string) string {
		if f.focus == field {
			return focusedLabel.Render("▸ " + text)
		}
		return labelStyle.Render("  " + text)
	}

	var choices []string
	for i, typ := range model.Types {
		s := typ.Icon() + " " + string(typ)
		if i == f.typeIdx {
			s = lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("[" + s + "]")
		}
		choices = append(choices, s)
	}
	typeRow := strings.Join(choices, " ")

	choices = choices[:0]
	for i, p := range model.Priorities {
		s := string(p)
		style := lipgloss.NewStyle().Foreground(t.PriorityColor(p))
		if i == f.priorityIdx {
			s = "[" + s + "]"
			style = style.Bold(true)
		}
		choices = append(choices, style.Render(s))
	}
	priorityRow := strings.Join(choices, " ")

	rows := []string{
		styles.PanelTitle.Render(heading),
		"",
		label(fieldTitle, "Title") + f.title.View(),
		label(fieldDescription, "Notes") + f.description.View(),
		label(fieldType, "Type") + typeRow,
		label(fieldPriority, "Priority") + priorityRow,
		label(fieldReminder, "Reminder") + f.reminder.View(),
	}
	if f.alert != "" {
		rows = append(rows, "", styles.Alert.Render("⚠ "+f.alert))
	}
	rows = append(rows, "", styles.HelpDesc.Render(fmt.Sprintf(
		"tab/↑↓ fields • ←/→ choose • + reminder in %d min • enter save • esc cancel", f.leadOrDefault())))

	panelWidth := width - 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	return styles.Panel.Width(panelWidth).Render(strings.Join(rows, "\n"))
}

func (f taskForm) leadOrDefault() int {
	if f.lead <= 0 {
		return model.DefaultReminderLeadMinutes
	}
	return f.lead
}
