package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultOpenCommand launches the TUI in a new terminal window
const DefaultOpenCommand = "x-terminal-emulator -e flowdo"

// CommandOpener opens the TUI by starting a shell-free command line
type CommandOpener struct {
	command string
	start   func(name string, args ...string) error
}

// NewCommandOpener creates an opener for command (DefaultOpenCommand when empty)
func NewCommandOpener(command string) *CommandOpener {
	if strings.TrimSpace(command) == "" {
		command = DefaultOpenCommand
	}
	return &CommandOpener{command: command, start: startDetached}
}

// startDetached starts the process without waiting for the window to close
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// Open starts the configured command
func (o *CommandOpener) Open(_ context.Context) error {
	fields := strings.Fields(o.command)
	if len(fields) == 0 {
		return fmt.Errorf("no open command configured")
	}
	if err := o.start(fields[0], fields[1:]...); err != nil {
		return fmt.Errorf("open %q: %w", o.command, err)
	}
	return nil
}
