package model

import (
	"fmt"
	"sort"
)

// Tab selects which task statuses the list shows
type Tab string

const (
	TabAll       Tab = "all"
	TabPending   Tab = "pending"
	TabProgress  Tab = "progress"
	TabCompleted Tab = "completed"
)

// Tabs lists the tabs in display order
var Tabs = []Tab{TabAll, TabPending, TabProgress, TabCompleted}

// ParseTab converts a tab name into a Tab
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q (want all, pending, progress or completed)", s)
}

// Label returns the display name for a tab
func (t Tab) Label() string {
	switch t {
	case TabAll:
		return "All"
	case TabPending:
		return "Pending"
	case TabProgress:
		return "In progress"
	case TabCompleted:
		return "Completed"
	default:
		return string(t)
	}
}

// Matches reports whether a task belongs under the tab
func (t Tab) Matches(task Task) bool {
	switch t {
	case TabPending:
		return task.Status == StatusPending
	case TabProgress:
		return task.Status == StatusProgress
	case TabCompleted:
		return task.Status == StatusCompleted
	default:
		return true
	}
}

// Visible returns the tasks shown under tab, highest priority first and
// oldest first among equal priorities. The input slice is not modified.
func Visible(tasks []Task, tab Tab) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if tab.Matches(task) {
			out = append(out, task)
		}
	}
	SortForDisplay(out)
	return out
}

// SortForDisplay sorts tasks in place by priority weight then creation time
func SortForDisplay(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		wi, wj := tasks[i].Priority.Weight(), tasks[j].Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

// Arranged returns the tasks shown under tab in their stored order, which
// is the order reorder operates on
func Arranged(tasks []Task, tab Tab) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if tab.Matches(task) {
			out = append(out, task)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
