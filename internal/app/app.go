package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dori/flowdo/internal/alarm"
	"github.com/dori/flowdo/internal/config"
	"github.com/dori/flowdo/internal/db"
	"github.com/dori/flowdo/internal/logging"
	"github.com/dori/flowdo/internal/notify"
	"github.com/dori/flowdo/internal/scheduler"
	"github.com/dori/flowdo/internal/sound"
	"github.com/dori/flowdo/internal/store"
	"github.com/gofrs/flock"
)

// Surface names the process kind an App is built for
type Surface string

const (
	SurfaceTUI    Surface = "tui"
	SurfaceDaemon Surface = "daemon"
	SurfaceCLI    Surface = "cli"
)

// ErrAlreadyRunning is returned when another process holds the surface lock
var ErrAlreadyRunning = errors.New("already running")

// App holds the application state and dependencies
type App struct {
	Config    *config.Config
	Surface   Surface
	DB        *db.DB
	Store     *store.Store
	Alarms    *alarm.Service
	Scheduler *scheduler.Scheduler
	Notifier  *notify.Notifier
	Player    *sound.Player
	Log       *slog.Logger

	logFile  io.Closer
	lockFile *flock.Flock
}

// New creates a new application instance for surface. The TUI and the
// daemon are single instance; CLI commands are not.
func New(cfg *config.Config, surface Surface) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{Config: cfg, Surface: surface}

	log, logFile, err := logging.Open(cfg.LogPath(), cfg.Level(), string(surface))
	if err != nil {
		return nil, err
	}
	app.Log, app.logFile = log, logFile

	if err := app.acquireLock(); err != nil {
		app.logFile.Close()
		return nil, err
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		app.releaseLock()
		app.logFile.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	app.Store = store.New(database, store.WithLocker(flock.New(cfg.StoreLock())))
	app.Alarms = alarm.NewService(database,
		alarm.WithLogger(log),
		alarm.WithPollInterval(cfg.Daemon.AlarmPollInterval.Duration),
	)
	app.Scheduler = scheduler.New(app.Alarms, app.Store, scheduler.WithLogger(log))
	app.Notifier = notify.NewNotifier(cfg.Notify.Command)
	app.Player = sound.NewPlayer(cfg.Sound.Player, log)

	return app, nil
}

// Init prepares storage on first run and loads the task list
func (a *App) Init(ctx context.Context) error {
	created, err := a.Store.Init(ctx)
	if err != nil {
		return err
	}
	if created {
		a.Log.Info("initialized storage", "data_dir", a.Config.DataDir)
	}
	return a.Store.Reload(ctx)
}

// acquireLock takes the per-surface lock so only one TUI and one daemon run
func (a *App) acquireLock() error {
	var lockPath string
	switch a.Surface {
	case SurfaceTUI:
		lockPath = a.Config.TUILock()
	case SurfaceDaemon:
		lockPath = a.Config.DaemonLock()
	default:
		return nil
	}
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another flowdo %s is %w", a.Surface, ErrAlreadyRunning)
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()

	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}
