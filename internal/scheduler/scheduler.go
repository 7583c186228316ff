// Package scheduler turns task reminder times into named alarms and hands
// fired alarms to the notification presenter.
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dori/flowdo/internal/model"
)

// AlarmPrefix starts the name of every task reminder alarm
const AlarmPrefix = "task_"

// DefaultSweepInterval is how often stale alarms are cleaned up
const DefaultSweepInterval = time.Hour

// AlarmName returns the alarm name for a task
func AlarmName(taskID string) string {
	return AlarmPrefix + taskID
}

// TaskIDFromAlarm extracts the task id from an alarm name
func TaskIDFromAlarm(name string) (string, bool) {
	if !strings.HasPrefix(name, AlarmPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(name, AlarmPrefix)
	return id, id != ""
}

// Alarms is the timer service reminders are stored in
type Alarms interface {
	Create(ctx context.Context, name string, when time.Time) error
	Clear(ctx context.Context, name string) (bool, error)
	GetAll(ctx context.Context) ([]model.Alarm, error)
}

// Tasks is the read side of the task store
type Tasks interface {
	Reload(ctx context.Context) error
	Find(id string) (model.Task, bool)
	Tasks() []model.Task
}

// Presenter shows the reminder for a task
type Presenter interface {
	Present(ctx context.Context, task model.Task)
}

// Scheduler manages reminder alarms. Every failure is logged and swallowed.
type Scheduler struct {
	alarms    Alarms
	tasks     Tasks
	presenter Presenter
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the scheduler logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithPresenter sets who is told when a reminder fires
func WithPresenter(p Presenter) Option {
	return func(s *Scheduler) { s.presenter = p }
}

// New creates a scheduler
func New(alarms Alarms, tasks Tasks, opts ...Option) *Scheduler {
	s := &Scheduler{
		alarms: alarms,
		tasks:  tasks,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms the reminder for taskID at when. Times that are not
// strictly in the future are ignored.
func (s *Scheduler) Schedule(ctx context.Context, taskID string, when time.Time) {
	if !when.After(s.now()) {
		s.log.Debug("reminder time already passed", "task", taskID, "when", when)
		return
	}
	if err := s.alarms.Create(ctx, AlarmName(taskID), when); err != nil {
		s.log.Error("failed to schedule reminder", "task", taskID, "error", err)
		return
	}
	s.log.Info("reminder scheduled", "task", taskID, "when", when)
}

// Cancel removes the reminder for taskID if there is one
func (s *Scheduler) Cancel(ctx context.Context, taskID string) {
	existed, err := s.alarms.Clear(ctx, AlarmName(taskID))
	if err != nil {
		s.log.Error("failed to cancel reminder", "task", taskID, "error", err)
		return
	}
	if existed {
		s.log.Info("reminder cancelled", "task", taskID)
	}
}

// Snooze re-arms the reminder minutes from now, replacing any existing one
func (s *Scheduler) Snooze(ctx context.Context, taskID string, minutes int) {
	when := s.now().Add(time.Duration(minutes) * time.Minute)
	if err := s.alarms.Create(ctx, AlarmName(taskID), when); err != nil {
		s.log.Error("failed to snooze reminder", "task", taskID, "error", err)
		return
	}
	s.log.Info("reminder snoozed", "task", taskID, "when", when)
}

// OnFire presents the reminder for a fired alarm. Alarms for tasks that no
// longer exist are dropped.
func (s *Scheduler) OnFire(ctx context.Context, alarm model.Alarm) {
	taskID, ok := TaskIDFromAlarm(alarm.Name)
	if !ok {
		return
	}
	if err := s.tasks.Reload(ctx); err != nil {
		s.log.Error("failed to load tasks for reminder", "task", taskID, "error", err)
		return
	}
	task, ok := s.tasks.Find(taskID)
	if !ok {
		s.log.Debug("reminder for deleted task", "task", taskID)
		return
	}
	if s.presenter != nil {
		s.presenter.Present(ctx, task)
	}
}

// Sweep clears reminder alarms whose time has already passed
func (s *Scheduler) Sweep(ctx context.Context) {
	alarms, err := s.alarms.GetAll(ctx)
	if err != nil {
		s.log.Error("failed to list alarms", "error", err)
		return
	}
	now := s.now()
	for _, a := range alarms {
		if !strings.HasPrefix(a.Name, AlarmPrefix) || !a.ScheduledTime.Before(now) {
			continue
		}
		if _, err := s.alarms.Clear(ctx, a.Name); err != nil {
			s.log.Error("failed to clear expired alarm", "alarm", a.Name, "error", err)
			continue
		}
		s.log.Debug("cleared expired alarm", "alarm", a.Name)
	}
}

// Resync makes the alarms match the stored tasks: future reminders without
// an alarm are armed, and alarms of deleted or completed tasks are cleared.
// Existing alarms are left alone so snoozes survive.
func (s *Scheduler) Resync(ctx context.Context) {
	if err := s.tasks.Reload(ctx); err != nil {
		s.log.Error("failed to load tasks for resync", "error", err)
		return
	}
	alarms, err := s.alarms.GetAll(ctx)
	if err != nil {
		s.log.Error("failed to list alarms", "error", err)
		return
	}

	armed := make(map[string]bool, len(alarms))
	for _, a := range alarms {
		taskID, ok := TaskIDFromAlarm(a.Name)
		if !ok {
			continue
		}
		task, exists := s.tasks.Find(taskID)
		if !exists || task.IsCompleted() {
			s.Cancel(ctx, taskID)
			continue
		}
		armed[taskID] = true
	}

	now := s.now()
	for _, task := range s.tasks.Tasks() {
		if armed[task.ID] || task.IsCompleted() || !task.HasPendingReminder(now) {
			continue
		}
		s.Schedule(ctx, task.ID, *task.ReminderTime)
	}
}
