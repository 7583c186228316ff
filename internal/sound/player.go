package sound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultPlayers are tried in order when no player is configured
var DefaultPlayers = []string{"paplay", "pw-play", "aplay -q", "afplay"}

// ErrNoPlayer means none of the candidate commands is installed
var ErrNoPlayer = errors.New("no audio player found")

// Runner executes a player command on a file
type Runner func(ctx context.Context, name string, args ...string) error

// Player writes the cue to a temporary WAV file and hands it to an
// external audio player
type Player struct {
	candidates []string
	log        *slog.Logger
	lookPath   func(string) (string, error)
	run        Runner
}

// NewPlayer creates a player. An empty command selects DefaultPlayers.
func NewPlayer(command string, log *slog.Logger) *Player {
	candidates := DefaultPlayers
	if strings.TrimSpace(command) != "" {
		candidates = []string{command}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Player{
		candidates: candidates,
		log:        log,
		lookPath:   exec.LookPath,
		run:        runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// PlayCue synthesizes and plays the cue. Failures are logged and never
// returned, so a page without audio keeps working.
func (p *Player) PlayCue(ctx context.Context) {
	if err := p.Play(ctx); err != nil {
		p.log.Warn("failed to play notification sound", "error", err)
	}
}

// Play synthesizes and plays the cue, returning any failure
func (p *Player) Play(ctx context.Context) error {
	name, args, err := p.resolve()
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "flowdo-cue-*.wav")
	if err != nil {
		return fmt.Errorf("create cue file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := EncodeWAV(f, Cue(SampleRate), SampleRate); err != nil {
		f.Close()
		return fmt.Errorf("encode cue: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write cue: %w", err)
	}

	return p.run(ctx, name, append(args, f.Name())...)
}

// resolve picks the first installed candidate
func (p *Player) resolve() (string, []string, error) {
	for _, candidate := range p.candidates {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		if path, err := p.lookPath(fields[0]); err == nil {
			return path, fields[1:], nil
		}
	}
	return "", nil, ErrNoPlayer
}
