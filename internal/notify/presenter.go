package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dori/flowdo/internal/bus"
	"github.com/dori/flowdo/internal/model"
)

// NotificationPrefix starts every task reminder notification id
const NotificationPrefix = "task_notification_"

// SnoozeMinutes is how long the snooze button defers a reminder
const SnoozeMinutes = 5

// Button indexes in the order they are shown
const (
	ButtonComplete = 0
	ButtonSnooze   = 1
)

// Action keys reported by the notification backend
const (
	ActionComplete = "complete"
	ActionSnooze   = "snooze"
)

// NotificationID returns the notification id for a task
func NotificationID(taskID string) string {
	return NotificationPrefix + taskID
}

// TaskID extracts the task id from a notification id
func TaskID(notificationID string) (string, bool) {
	if !strings.HasPrefix(notificationID, NotificationPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(notificationID, NotificationPrefix)
	return id, id != ""
}

// Displayer shows a notification and waits for the chosen action
type Displayer interface {
	Show(ctx context.Context, n Notification) (string, error)
}

// TaskStore is the part of the task store the presenter writes to
type TaskStore interface {
	SetStatus(ctx context.Context, id string, status model.Status) (model.Task, error)
	LoadSettings(ctx context.Context) (model.Settings, error)
}

// Snoozer re-arms a task reminder
type Snoozer interface {
	Snooze(ctx context.Context, taskID string, minutes int)
}

// Messenger delivers one-way messages to the open page
type Messenger interface {
	Send(ctx context.Context, msg bus.Message) (bus.Reply, error)
}

// Opener brings up the primary UI
type Opener interface {
	Open(ctx context.Context) error
}

// Presenter turns fired reminders into notifications and routes the user's
// response back to the store or the scheduler
type Presenter struct {
	display   Displayer
	store     TaskStore
	messenger Messenger
	opener    Opener
	log       *slog.Logger
	dispatch  func(func())

	mu      sync.Mutex
	snoozer Snoozer
	active  map[string]*shown
}

// shown tracks one notification waiting on the user
type shown struct {
	cancel context.CancelFunc
}

// PresenterOption configures a Presenter
type PresenterOption func(*Presenter)

// WithDispatcher routes notification responses through fn, so they run on
// the caller's event loop. By default they run on the waiting goroutine.
func WithDispatcher(fn func(func())) PresenterOption {
	return func(p *Presenter) { p.dispatch = fn }
}

// WithMessenger sets where the play-sound request goes
func WithMessenger(m Messenger) PresenterOption {
	return func(p *Presenter) { p.messenger = m }
}

// WithOpener sets how a body click opens the UI
func WithOpener(o Opener) PresenterOption {
	return func(p *Presenter) { p.opener = o }
}

// WithLogger sets the presenter logger
func WithLogger(l *slog.Logger) PresenterOption {
	return func(p *Presenter) { p.log = l }
}

// NewPresenter creates a presenter
func NewPresenter(display Displayer, store TaskStore, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		display:  display,
		store:    store,
		log:      slog.Default(),
		dispatch: func(fn func()) { fn() },
		active:   make(map[string]*shown),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSnoozer wires the scheduler after construction; the two depend on
// each other
func (p *Presenter) SetSnoozer(s Snoozer) {
	p.mu.Lock()
	p.snoozer = s
	p.mu.Unlock()
}

// Present shows the reminder for task and asks the open page to play the cue
func (p *Presenter) Present(ctx context.Context, task model.Task) {
	id := NotificationID(task.ID)
	n := Notification{
		ID:      id,
		Title:   "📋 FlowDo reminder",
		Body:    fmt.Sprintf("⏰ %s\n%s", task.Title, task.Description),
		Urgency: UrgencyCritical,
		Icon:    "appointment-soon-symbolic",
		Actions: []Action{
			{Key: ActionComplete, Label: "Mark complete"},
			{Key: ActionSnooze, Label: fmt.Sprintf("Snooze %d minutes", SnoozeMinutes)},
			{Key: DefaultAction, Label: "Open"},
		},
	}

	// a second reminder for the same task replaces the first
	p.Clear(id)
	waitCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	entry := &shown{cancel: cancel}
	p.mu.Lock()
	p.active[id] = entry
	p.mu.Unlock()

	go func() {
		action, err := p.display.Show(waitCtx, n)
		if err != nil {
			p.log.Error("failed to show notification", "id", id, "error", err)
			p.forget(id, entry)
			return
		}
		if waitCtx.Err() != nil {
			return
		}
		p.dispatch(func() { p.respond(context.WithoutCancel(waitCtx), id, action) })
	}()

	p.playSound(ctx)
}

// respond maps a backend action key onto the button or body handlers
func (p *Presenter) respond(ctx context.Context, id, action string) {
	switch action {
	case ActionComplete:
		p.OnAction(ctx, id, ButtonComplete)
	case ActionSnooze:
		p.OnAction(ctx, id, ButtonSnooze)
	case DefaultAction:
		p.OnClick(ctx, id)
	default:
		// dismissed
		p.Clear(id)
	}
}

// playSound is best effort: no open page is not an error
func (p *Presenter) playSound(ctx context.Context) {
	if p.messenger == nil {
		return
	}
	settings, err := p.store.LoadSettings(ctx)
	if err != nil {
		p.log.Warn("failed to read settings", "error", err)
	}
	if !settings.SoundEnabled {
		return
	}

	reply, err := p.messenger.Send(ctx, bus.Message{Action: bus.ActionPlayNotificationSound})
	switch {
	case errors.Is(err, bus.ErrNoReceiver):
		p.log.Debug("no open page for notification sound")
	case err != nil:
		p.log.Warn("failed to request notification sound", "error", err)
	case !reply.Success:
		p.log.Warn("page could not play notification sound", "error", reply.Error)
	}
}

// OnAction handles a button press: complete marks the task done, snooze
// re-arms the reminder. Either way the notification is cleared.
func (p *Presenter) OnAction(ctx context.Context, notificationID string, buttonIndex int) {
	taskID, ok := TaskID(notificationID)
	if !ok {
		return
	}

	switch buttonIndex {
	case ButtonComplete:
		if _, err := p.store.SetStatus(ctx, taskID, model.StatusCompleted); err != nil {
			p.log.Error("failed to mark task completed", "task", taskID, "error", err)
		}
	case ButtonSnooze:
		p.mu.Lock()
		snoozer := p.snoozer
		p.mu.Unlock()
		if snoozer != nil {
			snoozer.Snooze(ctx, taskID, SnoozeMinutes)
		}
	}

	p.Clear(notificationID)
}

// OnClick handles a click on the notification body
func (p *Presenter) OnClick(ctx context.Context, notificationID string) {
	if p.opener != nil {
		if err := p.opener.Open(ctx); err != nil {
			p.log.Error("failed to open flowdo", "error", err)
		}
	}
	p.Clear(notificationID)
}

// Clear dismisses a notification and reports whether it was showing
func (p *Presenter) Clear(notificationID string) bool {
	p.mu.Lock()
	entry, ok := p.active[notificationID]
	delete(p.active, notificationID)
	p.mu.Unlock()
	if ok {
		entry.cancel()
	}
	return ok
}

// Active returns the ids of notifications still waiting on the user
func (p *Presenter) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	return ids
}

func (p *Presenter) forget(id string, entry *shown) {
	entry.cancel()
	p.mu.Lock()
	if p.active[id] == entry {
		delete(p.active, id)
	}
	p.mu.Unlock()
}
