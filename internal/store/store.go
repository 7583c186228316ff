// Package store owns the ordered task list of one process and keeps it in
// step with the persisted copy under the "tasks" key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dori/flowdo/internal/model"
	"github.com/google/uuid"
)

// Storage keys
const (
	KeyTasks    = "tasks"
	KeySettings = "settings"
)

// ErrNotFound is returned when a task id is not in the list
var ErrNotFound = errors.New("task not found")

// Backend is the key-value persistence the store reads and writes
type Backend interface {
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	SetValues(ctx context.Context, values map[string][]byte) error
}

// Locker serializes read-modify-write cycles across processes
type Locker interface {
	Lock() error
	Unlock() error
}

// Store is the in-memory task list of one process
type Store struct {
	backend Backend
	locker  Locker
	now     func() time.Time
	newID   func() string

	mu    sync.Mutex
	tasks []model.Task
}

// Option configures a Store
type Option func(*Store)

// WithLocker guards every mutation with a cross-process lock
func WithLocker(l Locker) Option {
	return func(s *Store) { s.locker = l }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how task ids are assigned
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a store over backend. Call Reload to rehydrate it.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   newTaskID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newTaskID returns a time-ordered unique id
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Init writes an empty task list and default settings when storage has
// never been initialized. It reports whether it wrote anything.
func (s *Store) Init(ctx context.Context) (bool, error) {
	_, ok, err := s.backend.GetValue(ctx, KeyTasks)
	if err != nil {
		return false, fmt.Errorf("read tasks: %w", err)
	}
	if ok {
		return false, nil
	}

	settings, err := json.Marshal(model.DefaultSettings())
	if err != nil {
		return false, err
	}
	err = s.backend.SetValues(ctx, map[string][]byte{
		KeyTasks:    []byte("[]"),
		KeySettings: settings,
	})
	if err != nil {
		return false, fmt.Errorf("initialize storage: %w", err)
	}
	return true, nil
}

// Load reads the persisted task list. A missing key yields an empty list.
func (s *Store) Load(ctx context.Context) ([]model.Task, error) {
	raw, ok, err := s.backend.GetValue(ctx, KeyTasks)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []model.Task{}, nil
	}

	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Save persists the full list in one write
func (s *Store) Save(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := s.backend.SetValues(ctx, map[string][]byte{KeyTasks: raw}); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

// Reload replaces the in-memory list with the persisted one
func (s *Store) Reload(ctx context.Context) error {
	tasks, err := s.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Tasks returns a copy of the list in stored order
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// Find returns the task with id from the in-memory list
func (s *Store) Find(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// Create validates draft, assigns id, order, createdAt and pending status,
// appends it and persists the list
func (s *Store) Create(ctx context.Context, draft model.Task) (model.Task, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}

	var created model.Task
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		created = draft
		created.ID = s.newID()
		created.Status = model.StatusPending
		created.CompletedAt = nil
		created.CreatedAt = s.now()
		created.Order = len(tasks)
		return append(tasks, created), nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// Update applies fn to the task with id and persists the list
func (s *Store) Update(ctx context.Context, id string, fn func(*model.Task)) (model.Task, error) {
	var updated model.Task
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		fn(&tasks[i])
		tasks[i].Normalize()
		updated = tasks[i]
		return tasks, nil
	})
	return updated, err
}

// SetStatus changes a task's status, stamping completedAt on completion
func (s *Store) SetStatus(ctx context.Context, id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("unknown status %q", status)
	}
	now := s.now()
	return s.Update(ctx, id, func(t *model.Task) {
		t.SetStatus(status, now)
	})
}

// Remove deletes the task with id and persists the list
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

// Reorder moves the dragged task to the target task's index, shifting the
// rest, then persists. It reports false when either id is unknown.
func (s *Store) Reorder(ctx context.Context, draggedID, targetID string) (bool, error) {
	moved := false
	err := s.mutate(ctx, func(tasks []model.Task) ([]model.Task, error) {
		from, to := indexOf(tasks, draggedID), indexOf(tasks, targetID)
		if from < 0 || to < 0 {
			return tasks, nil
		}
		moved = true
		return Move(tasks, from, to), nil
	})
	return moved, err
}

// Move removes the element at from and inserts it at index to of the
// shortened slice, like a splice-out followed by a splice-in
func Move(tasks []model.Task, from, to int) []model.Task {
	if from == to {
		return tasks
	}
	dragged := tasks[from]
	rest := append(tasks[:from:from], tasks[from+1:]...)
	if to > len(rest) {
		to = len(rest)
	}
	out := make([]model.Task, 0, len(tasks))
	out = append(out, rest[:to]...)
	out = append(out, dragged)
	out = append(out, rest[to:]...)
	return out
}

// mutate runs a read-modify-write cycle: reload the persisted list under the
// cross-process lock, apply fn, renumber, persist, then publish in memory
func (s *Store) mutate(ctx context.Context, fn func([]model.Task) ([]model.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		if err := s.locker.Lock(); err != nil {
			return fmt.Errorf("lock store: %w", err)
		}
		defer s.locker.Unlock()
	}

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}

	next, err := fn(cloneTasks(current))
	if err != nil {
		return err
	}
	renumber(next)

	if err := s.Save(ctx, next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

// renumber reassigns order densely by list position
func renumber(tasks []model.Task) {
	for i := range tasks {
		tasks[i].Order = i
	}
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
