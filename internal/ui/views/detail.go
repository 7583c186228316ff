package views

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui/theme"
	"github.com/muesli/reflow/wordwrap"
)

// detailHeight is the number of lines the detail pane takes from the list
const detailHeight = 12

// descriptionLines caps how much of a description the pane shows
const descriptionLines = 5

// detailRenderer renders the task detail pane. Markdown renderers are
// cached per theme and width.
type detailRenderer struct {
	mu        sync.Mutex
	renderers map[string]*glamour.TermRenderer
}

func newDetailRenderer() *detailRenderer {
	return &detailRenderer{renderers: make(map[string]*glamour.TermRenderer)}
}

func (d *detailRenderer) markdown(glamourStyle string, width int) *glamour.TermRenderer {
	d.mu.Lock()
	defer d.mu.Unlock()
	cacheKey := fmt.Sprintf("%s/%d", glamourStyle, width)
	if cached, ok := d.renderers[cacheKey]; ok {
		return cached
	}
	var style ansi.StyleConfig
	if glamourStyle == model.ThemeDark {
		style = styles.DarkStyleConfig
	} else {
		style = styles.LightStyleConfig
	}
	created, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	d.renderers[cacheKey] = created
	return created
}

// description renders s as markdown, falling back to wrapped plain text
func (d *detailRenderer) description(s string, width int) string {
	if strings.TrimSpace(s) == "" {
		return theme.Current.Styles.Label.Italic(true).Render("No description")
	}
	rendered := wordwrap.String(s, width)
	if r := d.markdown(theme.Current.Theme.Glamour, width); r != nil {
		if out, err := r.Render(s); err == nil {
			rendered = strings.Trim(out, "\n")
		}
	}
	lines := strings.Split(rendered, "\n")
	if len(lines) > descriptionLines {
		lines = append(lines[:descriptionLines], "…")
	}
	return strings.Join(lines, "\n")
}

// Render renders the detail pane for task
func (d *detailRenderer) Render(task model.Task, width int) string {
	s := theme.Current.Styles
	t := theme.Current.Theme

	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	label := s.Label.Width(11)
	row := func(name, value string) string {
		return label.Render(name) + value
	}

	rows := []string{
		s.PanelTitle.Render(wordwrap.String(task.Type.Icon()+" "+task.Title, inner)),
		row("Status", lipgloss.NewStyle().Foreground(t.StatusColor(task.Status)).Render(statusIcon(task.Status)+" "+task.Status.Label())),
		row("Priority", lipgloss.NewStyle().Foreground(t.PriorityColor(task.Priority)).Render(string(task.Priority))),
		row("Created", task.CreatedAt.Local().Format("2006-01-02 15:04")),
	}
	if task.CompletedAt != nil {
		rows = append(rows, row("Completed", task.CompletedAt.Local().Format("2006-01-02 15:04")))
	}
	if task.ReminderTime != nil {
		rows = append(rows, row("Reminder", s.Reminder.Render("⏰ "+task.ReminderTime.Local().Format("2006-01-02 15:04"))))
	}
	rows = append(rows, "", d.description(task.Description, inner))

	return s.Panel.Width(width - 2).Render(strings.Join(rows, "\n"))
}
