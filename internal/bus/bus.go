// Package bus carries one-way, best-effort messages from the daemon to the
// open TUI over a unix socket. A missing receiver is an expected outcome,
// reported as ErrNoReceiver.
package bus

import (
	"errors"
	"path/filepath"
)

// ActionPlayNotificationSound asks the open page to play the reminder cue
const ActionPlayNotificationSound = "playNotificationSound"

// SocketName is the file name of the page socket inside the data directory
const SocketName = "page.sock"

// ErrNoReceiver means no page is open to take the message
var ErrNoReceiver = errors.New("no receiving page")

// Message is sent from the daemon to the page
type Message struct {
	Action string `json:"action" binding:"required"`
}

// Reply is the page's acknowledgement
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SocketPath returns the page socket path for a data directory
func SocketPath(dataDir string) string {
	return filepath.Join(dataDir, SocketName)
}
