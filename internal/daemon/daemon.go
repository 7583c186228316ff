// Package daemon is the background worker: it owns reminder alarms, shows
// notifications when they fire and handles the user's response.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dori/flowdo/internal/alarm"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/notify"
	"github.com/dori/flowdo/internal/scheduler"
	"github.com/dori/flowdo/internal/store"
)

// Config wires a Daemon
type Config struct {
	Store         *store.Store
	Alarms        *alarm.Service
	Display       notify.Displayer
	Messenger     notify.Messenger
	Opener        notify.Opener
	SweepInterval time.Duration
	Log           *slog.Logger
	// Now overrides the clock of the scheduler
	Now func() time.Time
}

// Daemon runs alarm fires, notification responses and sweeps one at a time
// on a single event loop
type Daemon struct {
	store     *store.Store
	alarms    *alarm.Service
	scheduler *scheduler.Scheduler
	presenter *notify.Presenter
	sweep     time.Duration
	log       *slog.Logger

	events   chan func(context.Context)
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a daemon
func New(cfg Config) *Daemon {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = scheduler.DefaultSweepInterval
	}

	d := &Daemon{
		store:  cfg.Store,
		alarms: cfg.Alarms,
		sweep:  sweep,
		log:    log,
		events: make(chan func(context.Context)),
		done:   make(chan struct{}),
	}

	opts := []notify.PresenterOption{
		notify.WithLogger(log),
		notify.WithDispatcher(func(fn func()) {
			d.post(func(context.Context) { fn() })
		}),
	}
	if cfg.Messenger != nil {
		opts = append(opts, notify.WithMessenger(cfg.Messenger))
	}
	if cfg.Opener != nil {
		opts = append(opts, notify.WithOpener(cfg.Opener))
	}
	d.presenter = notify.NewPresenter(cfg.Display, cfg.Store, opts...)

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithPresenter(d.presenter),
	}
	if cfg.Now != nil {
		schedOpts = append(schedOpts, scheduler.WithClock(cfg.Now))
	}
	d.scheduler = scheduler.New(cfg.Alarms, cfg.Store, schedOpts...)
	d.presenter.SetSnoozer(d.scheduler)
	return d
}

// Scheduler returns the scheduler the daemon fires reminders through
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}

// Presenter returns the notification presenter
func (d *Daemon) Presenter() *notify.Presenter {
	return d.presenter
}

// post queues fn on the event loop. It is dropped once the loop has exited.
func (d *Daemon) post(fn func(context.Context)) {
	select {
	case d.events <- fn:
	case <-d.done:
	}
}

func (d *Daemon) stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Run initializes storage, brings alarms in line with the stored tasks and
// then serves events until ctx is done. Reminders that came due while no
// daemon was running are shown once the loop starts.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.stop()

	created, err := d.store.Init(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if created {
		d.log.Info("initialized storage")
	}
	d.scheduler.Resync(ctx)

	alarmsDone := make(chan struct{})
	go func() {
		defer close(alarmsDone)
		d.alarms.Run(ctx, func(a model.Alarm) {
			d.post(func(ctx context.Context) { d.scheduler.OnFire(ctx, a) })
		})
	}()

	ticker := time.NewTicker(d.sweep)
	defer ticker.Stop()

	d.log.Info("daemon started", "sweep", d.sweep)
	for {
		select {
		case fn := <-d.events:
			fn(ctx)
		case <-ticker.C:
			// due alarms are shown before the sweep can clear them
			if err := d.alarms.FireDue(ctx, func(a model.Alarm) { d.scheduler.OnFire(ctx, a) }); err != nil {
				d.log.Error("failed to fire alarms", "error", err)
			}
			d.scheduler.Sweep(ctx)
		case <-ctx.Done():
			d.stop()
			for _, id := range d.presenter.Active() {
				d.presenter.Clear(id)
			}
			<-alarmsDone
			d.log.Info("daemon stopped")
			return nil
		}
	}
}
