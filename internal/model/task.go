package model

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyTitle is returned when a task is created without a title
var ErrEmptyTitle = errors.New("task title is required")

// Status represents the current state of a task
type Status string

const (
	StatusPending   Status = "pending"
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
)

// Statuses lists every status in display order
var Statuses = []Status{StatusPending, StatusProgress, StatusCompleted}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProgress, StatusCompleted:
		return true
	}
	return false
}

// Next returns the status that follows s in the pending → progress → completed cycle
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusProgress
	case StatusProgress:
		return StatusCompleted
	default:
		return StatusPending
	}
}

// Label returns the display name for a status
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Priority represents task priority level
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists priorities from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Weight returns a numeric weight for sorting by priority
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Type categorizes a task. It only drives the icon shown next to it.
type Type string

const (
	TypeWork     Type = "work"
	TypeLife     Type = "life"
	TypeStudy    Type = "study"
	TypeIdea     Type = "idea"
	TypeGoal     Type = "goal"
	TypeShopping Type = "shopping"
)

// Types lists every task type in form order
var Types = []Type{TypeWork, TypeLife, TypeStudy, TypeIdea, TypeGoal, TypeShopping}

// Valid reports whether t is a known type
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Icon returns the emoji shown for a task type
func (t Type) Icon() string {
	switch t {
	case TypeWork:
		return "📝"
	case TypeLife:
		return "🏠"
	case TypeStudy:
		return "📚"
	case TypeIdea:
		return "💡"
	case TypeGoal:
		return "🎯"
	case TypeShopping:
		return "🛒"
	default:
		return "•"
	}
}

// Task represents a todo item.
// JSON names match the persisted record layout.
type Task struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type         Type       `json:"type" yaml:"type"`
	Priority     Priority   `json:"priority" yaml:"priority"`
	Status       Status     `json:"status" yaml:"status"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	ReminderTime *time.Time `json:"reminderTime,omitempty" yaml:"reminderTime,omitempty"`
	Order        int        `json:"order" yaml:"order"`
}

// Normalize trims text fields and fills defaults for unset enums
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if !t.Type.Valid() {
		t.Type = TypeWork
	}
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = StatusPending
	}
}

// Validate checks the fields a user must supply
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// SetStatus changes the status, keeping CompletedAt in step with it
func (t *Task) SetStatus(status Status, now time.Time) {
	if status == StatusCompleted && t.Status != StatusCompleted {
		completed := now
		t.CompletedAt = &completed
	}
	if status != StatusCompleted {
		t.CompletedAt = nil
	}
	t.Status = status
}

// IsCompleted returns true when the task is done
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// HasPendingReminder returns true if the reminder is still ahead of now
func (t *Task) HasPendingReminder(now time.Time) bool {
	return t.ReminderTime != nil && t.ReminderTime.After(now)
}
