// Package alarm provides named one-shot timers that are persisted, so they
// survive restarts of the process that fires them.
package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dori/flowdo/internal/model"
)

// DefaultPollInterval bounds how long Run sleeps before looking for alarms
// created by other processes
const DefaultPollInterval = 30 * time.Second

// Store persists alarms
type Store interface {
	UpsertAlarm(ctx context.Context, name string, when time.Time) error
	DeleteAlarm(ctx context.Context, name string) (bool, error)
	GetAlarm(ctx context.Context, name string) (*model.Alarm, error)
	GetAlarms(ctx context.Context) ([]model.Alarm, error)
	NextAlarm(ctx context.Context) (*model.Alarm, error)
	TakeDueAlarms(ctx context.Context, now time.Time) ([]model.Alarm, error)
}

// Service creates, clears and fires alarms
type Service struct {
	store        Store
	log          *slog.Logger
	now          func() time.Time
	pollInterval time.Duration
	wake         chan struct{}
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLogger sets the logger used by Run
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates an alarm service over store
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		log:          slog.Default(),
		now:          time.Now,
		pollInterval: DefaultPollInterval,
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create schedules the named alarm, replacing one with the same name
func (s *Service) Create(ctx context.Context, name string, when time.Time) error {
	if name == "" {
		return fmt.Errorf("alarm name is required")
	}
	if err := s.store.UpsertAlarm(ctx, name, when); err != nil {
		return fmt.Errorf("create alarm %s: %w", name, err)
	}
	s.poke()
	return nil
}

// Clear removes the named alarm and reports whether it existed
func (s *Service) Clear(ctx context.Context, name string) (bool, error) {
	existed, err := s.store.DeleteAlarm(ctx, name)
	if err != nil {
		return false, fmt.Errorf("clear alarm %s: %w", name, err)
	}
	s.poke()
	return existed, nil
}

// Get returns the named alarm or nil
func (s *Service) Get(ctx context.Context, name string) (*model.Alarm, error) {
	return s.store.GetAlarm(ctx, name)
}

// GetAll returns every scheduled alarm
func (s *Service) GetAll(ctx context.Context) ([]model.Alarm, error) {
	return s.store.GetAlarms(ctx)
}

// FireDue removes every alarm that is due and passes each to fire
func (s *Service) FireDue(ctx context.Context, fire func(model.Alarm)) error {
	due, err := s.store.TakeDueAlarms(ctx, s.now())
	if err != nil {
		return fmt.Errorf("take due alarms: %w", err)
	}
	for _, a := range due {
		fire(a)
	}
	return nil
}

// Run fires alarms as they come due until ctx is done. Firing removes
// the alarm before fire is called.
func (s *Service) Run(ctx context.Context, fire func(model.Alarm)) error {
	for {
		if err := s.FireDue(ctx, fire); err != nil {
			s.log.Error("failed to fire alarms", "error", err)
		}

		timer := time.NewTimer(s.untilNext(ctx))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// untilNext returns how long to sleep before the earliest alarm
func (s *Service) untilNext(ctx context.Context) time.Duration {
	wait := s.pollInterval
	next, err := s.store.NextAlarm(ctx)
	if err != nil {
		s.log.Error("failed to read next alarm", "error", err)
		return wait
	}
	if next != nil {
		if d := next.ScheduledTime.Sub(s.now()); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Service) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
