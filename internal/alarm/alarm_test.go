package alarm

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dori/flowdo/internal/db"
	"github.com/dori/flowdo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func openDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "alarms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestFireDueOnlyFiresPastAlarms(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewService(openDB(t), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, "task_soon", clock.Now().Add(time.Minute)))
	require.NoError(t, svc.Create(ctx, "task_later", clock.Now().Add(10*time.Minute)))

	var fired []string
	collect := func(a model.Alarm) { fired = append(fired, a.Name) }

	require.NoError(t, svc.FireDue(ctx, collect))
	assert.Empty(t, fired)

	clock.Advance(2 * time.Minute)
	require.NoError(t, svc.FireDue(ctx, collect))
	assert.Equal(t, []string{"task_soon"}, fired)

	// firing removes the alarm
	a, err := svc.Get(ctx, "task_soon")
	require.NoError(t, err)
	assert.Nil(t, a)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "task_later", all[0].Name)
}

func TestClearReportsExistence(t *testing.T) {
	svc := NewService(openDB(t))
	ctx := context.Background()

	existed, err := svc.Clear(ctx, "task_none")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, svc.Create(ctx, "task_x", time.Now().Add(time.Hour)))
	existed, err = svc.Clear(ctx, "task_x")
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(openDB(t))
	assert.Error(t, svc.Create(context.Background(), "", time.Now()))
}

func TestRunFiresAndStops(t *testing.T) {
	svc := NewService(openDB(t), WithPollInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan model.Alarm, 1)
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, func(a model.Alarm) { fired <- a })
	}()

	require.NoError(t, svc.Create(ctx, "task_now", time.Now().Add(50*time.Millisecond)))

	select {
	case a := <-fired:
		assert.Equal(t, "task_now", a.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("alarm did not fire")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
