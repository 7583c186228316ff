package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dori/flowdo/internal/alarm"
	"github.com/dori/flowdo/internal/db"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPresenter struct {
	presented []model.Task
}

func (p *recordingPresenter) Present(_ context.Context, task model.Task) {
	p.presented = append(p.presented, task)
}

type env struct {
	clock     *clock
	alarms    *alarm.Service
	store     *store.Store
	presenter *recordingPresenter
	sched     *Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "flowdo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	c := &clock{now: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)}
	e := &env{
		clock:     c,
		alarms:    alarm.NewService(database, alarm.WithClock(c.Now)),
		store:     store.New(database, store.WithClock(c.Now)),
		presenter: &recordingPresenter{},
	}
	e.sched = New(e.alarms, e.store, WithClock(c.Now), WithPresenter(e.presenter))
	return e
}

// fire delivers every due alarm the way the daemon loop does
func (e *env) fire(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.alarms.FireDue(ctx, func(a model.Alarm) { e.sched.OnFire(ctx, a) }))
}

func (e *env) alarmTime(t *testing.T, taskID string) *time.Time {
	t.Helper()
	a, err := e.alarms.Get(context.Background(), AlarmName(taskID))
	require.NoError(t, err)
	if a == nil {
		return nil
	}
	return &a.ScheduledTime
}

func TestScheduleFiresPresenter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task, err := e.store.Create(ctx, model.Task{Title: "Call mom"})
	require.NoError(t, err)

	e.sched.Schedule(ctx, task.ID, e.clock.Now().Add(10*time.Minute))
	require.NotNil(t, e.alarmTime(t, task.ID))

	e.clock.Advance(9 * time.Minute)
	e.fire(t)
	assert.Empty(t, e.presenter.presented)

	e.clock.Advance(2 * time.Minute)
	e.fire(t)
	require.Len(t, e.presenter.presented, 1)
	assert.Equal(t, "Call mom", e.presenter.presented[0].Title)
	assert.Nil(t, e.alarmTime(t, task.ID), "firing removes the alarm")
}

func TestScheduleIgnoresPastTimes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sched.Schedule(ctx, "x", e.clock.Now())
	e.sched.Schedule(ctx, "y", e.clock.Now().Add(-time.Minute))

	all, err := e.alarms.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteBeforeFireIsNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task, err := e.store.Create(ctx, model.Task{Title: "Water plants"})
	require.NoError(t, err)
	e.sched.Schedule(ctx, task.ID, e.clock.Now().Add(10*time.Minute))

	require.NoError(t, e.store.Remove(ctx, task.ID))
	e.sched.Cancel(ctx, task.ID)
	assert.Nil(t, e.alarmTime(t, task.ID))

	e.clock.Advance(10 * time.Minute)
	e.fire(t)
	assert.Empty(t, e.presenter.presented)

	// a stray fire for the deleted id does nothing either
	e.sched.OnFire(ctx, model.Alarm{Name: AlarmName(task.ID), ScheduledTime: e.clock.Now()})
	assert.Empty(t, e.presenter.presented)
}

func TestCancelWithoutAlarmIsNoOp(t *testing.T) {
	e := newEnv(t)
	assert.NotPanics(t, func() { e.sched.Cancel(context.Background(), "missing") })
}

func TestSnoozeReplacesExistingAlarm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sched.Schedule(ctx, "a", e.clock.Now().Add(time.Hour))

	e.clock.Advance(3 * time.Minute)
	e.sched.Snooze(ctx, "a", 5)

	got := e.alarmTime(t, "a")
	require.NotNil(t, got)
	assert.True(t, got.Equal(e.clock.Now().Add(5*time.Minute)), "got %v", got)

	all, err := e.alarms.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOnFireIgnoresForeignAlarms(t *testing.T) {
	e := newEnv(t)
	e.sched.OnFire(context.Background(), model.Alarm{Name: "backup_nightly"})
	assert.Empty(t, e.presenter.presented)
}

func TestSweepClearsExpiredTaskAlarms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := e.clock.Now()

	require.NoError(t, e.alarms.Create(ctx, AlarmName("old"), now.Add(-2*time.Hour)))
	require.NoError(t, e.alarms.Create(ctx, AlarmName("future"), now.Add(time.Hour)))
	require.NoError(t, e.alarms.Create(ctx, "other_old", now.Add(-time.Hour)))

	e.sched.Sweep(ctx)

	all, err := e.alarms.GetAll(ctx)
	require.NoError(t, err)
	var names []string
	for _, a := range all {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{"task_future", "other_old"}, names)
}

func TestResyncArmsMissingAndDropsOrphans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := e.clock.Now()
	remind := now.Add(30 * time.Minute)
	past := now.Add(-30 * time.Minute)

	pending, err := e.store.Create(ctx, model.Task{Title: "pending", ReminderTime: &remind})
	require.NoError(t, err)
	done, err := e.store.Create(ctx, model.Task{Title: "done", ReminderTime: &remind})
	require.NoError(t, err)
	_, err = e.store.SetStatus(ctx, done.ID, model.StatusCompleted)
	require.NoError(t, err)
	stale, err := e.store.Create(ctx, model.Task{Title: "stale", ReminderTime: &past})
	require.NoError(t, err)

	require.NoError(t, e.alarms.Create(ctx, AlarmName(done.ID), remind))
	require.NoError(t, e.alarms.Create(ctx, AlarmName("deleted"), remind))

	e.sched.Resync(ctx)

	assert.NotNil(t, e.alarmTime(t, pending.ID))
	assert.Nil(t, e.alarmTime(t, done.ID))
	assert.Nil(t, e.alarmTime(t, stale.ID))
	assert.Nil(t, e.alarmTime(t, "deleted"))
}

type failingAlarms struct{}

func (failingAlarms) Create(context.Context, string, time.Time) error { return errors.New("boom") }
func (failingAlarms) Clear(context.Context, string) (bool, error)    { return false, errors.New("boom") }
func (failingAlarms) GetAll(context.Context) ([]model.Alarm, error)   { return nil, errors.New("boom") }

func TestAlarmFailuresAreSwallowed(t *testing.T) {
	s := New(failingAlarms{}, nil)
	ctx := context.Background()
	assert.NotPanics(t, func() {
		s.Schedule(ctx, "a", time.Now().Add(time.Hour))
		s.Cancel(ctx, "a")
		s.Snooze(ctx, "a", 5)
		s.Sweep(ctx)
	})
}

func TestAlarmNames(t *testing.T) {
	assert.Equal(t, "task_abc", AlarmName("abc"))
	id, ok := TaskIDFromAlarm("task_abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
	_, ok = TaskIDFromAlarm("task_")
	assert.False(t, ok)
}
