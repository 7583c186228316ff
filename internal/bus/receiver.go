package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler answers one message action
type Handler func(ctx context.Context, msg Message) Reply

// Receiver serves messages on a unix socket
type Receiver struct {
	path string
	log  *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
}

// NewReceiver creates a receiver bound to socketPath once Start is called
func NewReceiver(socketPath string, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	// debug mode prints routes to stdout, which belongs to the TUI
	gin.SetMode(gin.ReleaseMode)

	r := &Receiver{
		path:     socketPath,
		log:      log,
		handlers: make(map[string]Handler),
	}
	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.POST("/message", r.handleMessage)
	return r
}

// Handle registers the handler for an action, replacing any previous one
func (r *Receiver) Handle(action string, h Handler) {
	r.mu.Lock()
	r.handlers[action] = h
	r.mu.Unlock()
}

// Engine exposes the router for tests
func (r *Receiver) Engine() *gin.Engine {
	return r.engine
}

func (r *Receiver) handleMessage(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, Reply{Success: false, Error: "Invalid message"})
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[msg.Action]
	r.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusOK, Reply{Success: false, Error: "Unknown action"})
		return
	}

	c.JSON(http.StatusOK, h(c.Request.Context(), msg))
}

// Start listens on the socket and serves in the background.
// A stale socket file left by a crashed page is removed first.
func (r *Receiver) Start() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", r.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.path, err)
	}
	r.listener = ln
	r.server = &http.Server{
		Handler:           r.engine,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("page receiver stopped", "error", err)
		}
	}()
	r.log.Debug("page receiver listening", "socket", r.path)
	return nil
}

// Close stops serving and removes the socket file
func (r *Receiver) Close() error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := r.server.Shutdown(ctx)
	os.Remove(r.path)
	return err
}
