// Package config loads the flowdo config.toml file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dori/flowdo/internal/db"
)

// Environment overrides
const (
	EnvConfig  = "FLOWDO_CONFIG"
	EnvDataDir = "FLOWDO_DATA_DIR"
	EnvDebug   = "FLOWDO_DEBUG"
)

// Defaults for the interval settings
const (
	DefaultSweepInterval     = time.Hour
	DefaultAlarmPollInterval = 30 * time.Second
	DefaultRefreshInterval   = 5 * time.Second
)

// Config represents the config.toml file.
type Config struct {
	// DataDir holds the database, logs, locks and the page socket.
	DataDir  string `toml:"data-dir"`
	LogLevel string `toml:"log-level"`

	Sound  Sound  `toml:"sound"`
	Notify Notify `toml:"notify"`
	Daemon Daemon `toml:"daemon"`
	UI     UI     `toml:"ui"`
}

// Sound configures cue playback in the TUI.
type Sound struct {
	// Player is a command line the WAV path is appended to. Empty tries
	// paplay, pw-play, aplay and afplay in turn.
	Player string `toml:"player"`
}

// Notify configures desktop notifications.
type Notify struct {
	Command string `toml:"command"`
	// OpenCommand starts the TUI when a notification body is clicked.
	OpenCommand string `toml:"open-command"`
}

// Daemon configures the background worker.
type Daemon struct {
	SweepInterval     Duration `toml:"sweep-interval"`
	AlarmPollInterval Duration `toml:"alarm-poll-interval"`
}

// UI configures the TUI.
type UI struct {
	RefreshInterval Duration `toml:"refresh-interval"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "1h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:  db.DefaultDataDir(),
		LogLevel: "info",
		Daemon: Daemon{
			SweepInterval:     Duration{DefaultSweepInterval},
			AlarmPollInterval: Duration{DefaultAlarmPollInterval},
		},
		UI: UI{RefreshInterval: Duration{DefaultRefreshInterval}},
	}
}

// Path returns the config file location, honouring FLOWDO_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "flowdo", "config.toml"), nil
}

// Load reads the global config file and applies environment overrides.
// A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Values the file leaves out keep their
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if v := os.Getenv(EnvDebug); v != "" && v != "0" {
		c.LogLevel = "debug"
	}
	c.DataDir = expandHome(strings.TrimSpace(c.DataDir))
	if c.DataDir == "" {
		c.DataDir = db.DefaultDataDir()
	}
}

func (c *Config) validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Daemon.SweepInterval.Duration <= 0 {
		return fmt.Errorf("daemon.sweep-interval must be positive")
	}
	if c.Daemon.AlarmPollInterval.Duration <= 0 {
		return fmt.Errorf("daemon.alarm-poll-interval must be positive")
	}
	if c.UI.RefreshInterval.Duration <= 0 {
		return fmt.Errorf("ui.refresh-interval must be positive")
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log-level %q", s)
}

// File paths under the data directory.

func (c *Config) DBPath() string { return filepath.Join(c.DataDir, db.FileName) }
func (c *Config) LogPath() string { return filepath.Join(c.DataDir, "flowdo.log") }
func (c *Config) StoreLock() string { return filepath.Join(c.DataDir, "store.lock") }
func (c *Config) DaemonLock() string { return filepath.Join(c.DataDir, "daemon.lock") }
func (c *Config) TUILock() string { return filepath.Join(c.DataDir, "flowdo.lock") }

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
