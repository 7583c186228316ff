package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// DefaultAction is the key notify-send reports when the body is clicked
const DefaultAction = "default"

// Action is a notification button
type Action struct {
	Key   string
	Label string
}

// Notification represents a desktop notification
type Notification struct {
	ID      string
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string // Optional icon name
	Actions []Action
}

// Runner executes the notification command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Notifier handles sending desktop notifications
type Notifier struct {
	command string
	appName string
	run     Runner
}

// NewNotifier creates a notifier that shells out to command (notify-send
// when empty)
func NewNotifier(command string) *Notifier {
	if strings.TrimSpace(command) == "" {
		command = "notify-send"
	}
	return &Notifier{
		command: command,
		appName: "flowdo",
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Args builds the notify-send argument list
func (n *Notifier) Args(notification Notification) []string {
	args := []string{}

	switch notification.Urgency {
	case UrgencyLow:
		args = append(args, "-u", "low")
	case UrgencyCritical:
		args = append(args, "-u", "critical")
	default:
		args = append(args, "-u", "normal")
	}

	// Timeout in milliseconds
	if notification.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(notification.Timeout.Milliseconds())))
	}

	if notification.Icon != "" {
		args = append(args, "-i", notification.Icon)
	}

	args = append(args, "-a", n.appName)

	// Actions make notify-send block until the user picks one
	if len(notification.Actions) > 0 {
		args = append(args, "--wait")
		for _, a := range notification.Actions {
			args = append(args, "-A", a.Key+"="+a.Label)
		}
	}

	args = append(args, notification.Title)
	if notification.Body != "" {
		args = append(args, notification.Body)
	}
	return args
}

// Show displays the notification and, when it has actions, waits for the
// user. It returns the chosen action key, or "" when dismissed.
// Cancelling ctx stops waiting.
func (n *Notifier) Show(ctx context.Context, notification Notification) (string, error) {
	out, err := n.run(ctx, n.command, n.Args(notification)...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}
