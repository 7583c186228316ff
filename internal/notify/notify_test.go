package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dori/flowdo/internal/bus"
	"github.com/dori/flowdo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	shown  chan Notification
	action chan string
	err    error
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{shown: make(chan Notification, 4), action: make(chan string, 1)}
}

func (d *fakeDisplay) Show(ctx context.Context, n Notification) (string, error) {
	d.shown <- n
	if d.err != nil {
		return "", d.err
	}
	select {
	case a := <-d.action:
		return a, nil
	case <-ctx.Done():
		return "", nil
	}
}

type fakeStore struct {
	mu       sync.Mutex
	statuses map[string]model.Status
	settings model.Settings
}

func (s *fakeStore) SetStatus(_ context.Context, id string, status model.Status) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return model.Task{ID: id, Status: status}, nil
}

func (s *fakeStore) LoadSettings(context.Context) (model.Settings, error) {
	return s.settings, nil
}

func (s *fakeStore) status(id string) model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

type fakeSnoozer struct {
	taskID  string
	minutes int
}

func (f *fakeSnoozer) Snooze(_ context.Context, taskID string, minutes int) {
	f.taskID, f.minutes = taskID, minutes
}

type fakeMessenger struct {
	sent []bus.Message
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, msg bus.Message) (bus.Reply, error) {
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return bus.Reply{}, m.err
	}
	return bus.Reply{Success: true}, nil
}

type fakeOpener struct{ opened int }

func (o *fakeOpener) Open(context.Context) error {
	o.opened++
	return nil
}

type harness struct {
	presenter *Presenter
	display   *fakeDisplay
	store     *fakeStore
	snoozer   *fakeSnoozer
	messenger *fakeMessenger
	opener    *fakeOpener
	handled   chan struct{}
}

func newHarness(soundEnabled bool) *harness {
	h := &harness{
		display:   newFakeDisplay(),
		store:     &fakeStore{statuses: map[string]model.Status{}, settings: model.Settings{SoundEnabled: soundEnabled}},
		snoozer:   &fakeSnoozer{},
		messenger: &fakeMessenger{},
		opener:    &fakeOpener{},
		handled:   make(chan struct{}, 1),
	}
	h.presenter = NewPresenter(h.display, h.store,
		WithMessenger(h.messenger),
		WithOpener(h.opener),
		WithDispatcher(func(fn func()) {
			fn()
			h.handled <- struct{}{}
		}),
	)
	h.presenter.SetSnoozer(h.snoozer)
	return h
}

func (h *harness) respond(t *testing.T, action string) {
	t.Helper()
	h.display.action <- action
	select {
	case <-h.handled:
	case <-time.After(5 * time.Second):
		t.Fatal("response was not dispatched")
	}
}

func (h *harness) waitShown(t *testing.T) Notification {
	t.Helper()
	select {
	case n := <-h.display.shown:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("notification was not shown")
		return Notification{}
	}
}

var task = model.Task{ID: "42", Title: "Buy milk", Description: "two litres"}

func TestPresentBuildsNotification(t *testing.T) {
	h := newHarness(true)
	h.presenter.Present(context.Background(), task)

	n := h.waitShown(t)
	assert.Equal(t, "task_notification_42", n.ID)
	assert.Equal(t, "⏰ Buy milk\ntwo litres", n.Body)
	require.Len(t, n.Actions, 3)
	assert.Equal(t, ActionComplete, n.Actions[ButtonComplete].Key)
	assert.Equal(t, ActionSnooze, n.Actions[ButtonSnooze].Key)
	assert.Equal(t, []string{"task_notification_42"}, h.presenter.Active())

	require.Len(t, h.messenger.sent, 1)
	assert.Equal(t, bus.ActionPlayNotificationSound, h.messenger.sent[0].Action)
}

func TestCompleteActionMarksTaskAndClears(t *testing.T) {
	h := newHarness(true)
	h.presenter.Present(context.Background(), task)
	h.waitShown(t)

	h.respond(t, ActionComplete)
	assert.Equal(t, model.StatusCompleted, h.store.status("42"))
	assert.Empty(t, h.presenter.Active())
}

func TestSnoozeActionRearmsForFiveMinutes(t *testing.T) {
	h := newHarness(true)
	h.presenter.Present(context.Background(), task)
	h.waitShown(t)

	h.respond(t, ActionSnooze)
	assert.Equal(t, "42", h.snoozer.taskID)
	assert.Equal(t, 5, h.snoozer.minutes)
	assert.Empty(t, h.presenter.Active())
}

func TestBodyClickOpensUI(t *testing.T) {
	h := newHarness(true)
	h.presenter.Present(context.Background(), task)
	h.waitShown(t)

	h.respond(t, DefaultAction)
	assert.Equal(t, 1, h.opener.opened)
	assert.Empty(t, h.presenter.Active())
}

func TestOnActionIgnoresForeignIDs(t *testing.T) {
	h := newHarness(true)
	h.presenter.OnAction(context.Background(), "other_42", ButtonComplete)
	assert.Empty(t, h.store.statuses)
}

func TestSoundDisabledSkipsMessage(t *testing.T) {
	h := newHarness(false)
	h.presenter.Present(context.Background(), task)
	h.waitShown(t)
	assert.Empty(t, h.messenger.sent)
}

func TestNoReceiverIsNotAnError(t *testing.T) {
	h := newHarness(true)
	h.messenger.err = bus.ErrNoReceiver
	assert.NotPanics(t, func() { h.presenter.Present(context.Background(), task) })
	h.waitShown(t)
}

func TestShowFailureForgetsNotification(t *testing.T) {
	h := newHarness(true)
	h.display.err = errors.New("no notification daemon")
	h.presenter.Present(context.Background(), task)
	h.waitShown(t)

	assert.Eventually(t, func() bool { return len(h.presenter.Active()) == 0 },
		5*time.Second, 10*time.Millisecond)
}

func TestTaskIDParsing(t *testing.T) {
	id, ok := TaskID("task_notification_abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = TaskID("task_notification_")
	assert.False(t, ok)
	_, ok = TaskID("task_abc")
	assert.False(t, ok)
}

func TestNotifierArgs(t *testing.T) {
	n := NewNotifier("")
	args := n.Args(Notification{
		Title:   "Title",
		Body:    "Body",
		Urgency: UrgencyCritical,
		Timeout: 2 * time.Second,
		Actions: []Action{{Key: "complete", Label: "Mark complete"}},
	})
	assert.Equal(t, []string{
		"-u", "critical", "-t", "2000", "-a", "flowdo",
		"--wait", "-A", "complete=Mark complete",
		"Title", "Body",
	}, args)
}

func TestNotifierShowReturnsAction(t *testing.T) {
	n := NewNotifier("notify-send")
	var gotName string
	n.run = func(ctx context.Context, name string, args ...string) (string, error) {
		gotName = name
		return "snooze\n", nil
	}

	action, err := n.Show(context.Background(), Notification{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "snooze", action)
	assert.Equal(t, "notify-send", gotName)
}

func TestCommandOpenerSplitsCommand(t *testing.T) {
	o := NewCommandOpener("kitty -e flowdo")
	var got []string
	o.start = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	require.NoError(t, o.Open(context.Background()))
	assert.Equal(t, []string{"kitty", "-e", "flowdo"}, got)
}
