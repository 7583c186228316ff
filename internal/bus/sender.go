package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout bounds a single send
const DefaultTimeout = 2 * time.Second

// Sender posts messages to the page socket
type Sender struct {
	path    string
	client  *http.Client
	timeout time.Duration
}

// NewSender creates a sender for the page socket at socketPath
func NewSender(socketPath string) *Sender {
	dialer := &net.Dialer{}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: true,
	}
	return &Sender{
		path:    socketPath,
		client:  &http.Client{Transport: transport},
		timeout: DefaultTimeout,
	}
}

// Send delivers msg once. It returns ErrNoReceiver when no page is listening.
func (s *Sender) Send(ctx context.Context, msg Message) (Reply, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return Reply{}, ErrNoReceiver
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return Reply{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://page/message", bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) {
			return Reply{}, ErrNoReceiver
		}
		return Reply{}, fmt.Errorf("send %s: %w", msg.Action, err)
	}
	defer resp.Body.Close()

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}
