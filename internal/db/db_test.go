package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKeyValueRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetValue(ctx, "tasks"); err != nil || ok {
		t.Fatalf("GetValue on empty store = ok %v, err %v; want false, nil", ok, err)
	}

	if err := db.SetValues(ctx, map[string][]byte{
		"tasks":    []byte(`[]`),
		"settings": []byte(`{"theme":"light"}`),
	}); err != nil {
		t.Fatalf("SetValues failed: %v", err)
	}

	if err := db.SetValue(ctx, "tasks", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	got, ok, err := db.GetValue(ctx, "tasks")
	if err != nil || !ok {
		t.Fatalf("GetValue failed: ok %v, err %v", ok, err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("tasks = %s, want overwritten value", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.SetValue(ctx, "settings", []byte(`{}`)); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := db.UpsertAlarm(ctx, "task_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("UpsertAlarm failed: %v", err)
	}
	db.Close()

	// Migrations must be idempotent across restarts
	db, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	if _, ok, _ := db.GetValue(ctx, "settings"); !ok {
		t.Error("settings lost after reopen")
	}
	if a, _ := db.GetAlarm(ctx, "task_1"); a == nil {
		t.Error("alarm lost after reopen")
	}
}

func TestUpsertAlarmReplaces(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	first := time.Now().Add(10 * time.Minute).Truncate(time.Millisecond)
	second := first.Add(5 * time.Minute)

	if err := db.UpsertAlarm(ctx, "task_a", first); err != nil {
		t.Fatalf("UpsertAlarm failed: %v", err)
	}
	if err := db.UpsertAlarm(ctx, "task_a", second); err != nil {
		t.Fatalf("UpsertAlarm failed: %v", err)
	}

	alarms, err := db.GetAlarms(ctx)
	if err != nil {
		t.Fatalf("GetAlarms failed: %v", err)
	}
	if len(alarms) != 1 {
		t.Fatalf("got %d alarms, want 1", len(alarms))
	}
	if !alarms[0].ScheduledTime.Equal(second) {
		t.Errorf("scheduled time = %v, want %v", alarms[0].ScheduledTime, second)
	}

	existed, err := db.DeleteAlarm(ctx, "task_a")
	if err != nil || !existed {
		t.Fatalf("DeleteAlarm = %v, %v; want true, nil", existed, err)
	}
	existed, err = db.DeleteAlarm(ctx, "task_a")
	if err != nil || existed {
		t.Fatalf("second DeleteAlarm = %v, %v; want false, nil", existed, err)
	}
}

// TestTakeDueAlarmsNoDeadlock guards against running the deletes while the
// select rows still hold the only connection (SetMaxOpenConns(1)).
func TestTakeDueAlarmsNoDeadlock(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i, name := range []string{"task_1", "task_2", "task_3"} {
		if err := db.UpsertAlarm(ctx, name, now.Add(time.Duration(i-2)*time.Minute)); err != nil {
			t.Fatalf("UpsertAlarm failed: %v", err)
		}
	}

	done := make(chan []string, 1)
	go func() {
		due, err := db.TakeDueAlarms(ctx, now)
		if err != nil {
			t.Errorf("TakeDueAlarms failed: %v", err)
		}
		var names []string
		for _, a := range due {
			names = append(names, a.Name)
		}
		done <- names
	}()

	select {
	case names := <-done:
		if len(names) != 3 || names[0] != "task_1" {
			t.Errorf("due = %v, want [task_1 task_2 task_3]", names)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out - possible deadlock detected")
	}

	next, err := db.NextAlarm(ctx)
	if err != nil {
		t.Fatalf("NextAlarm failed: %v", err)
	}
	if next != nil {
		t.Errorf("NextAlarm = %v, want nil after taking all due alarms", next.Name)
	}
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if first.Path != path {
		t.Errorf("Path = %q, want %q", first.Path, path)
	}
	if err := first.SetValue(ctx, "tasks", []byte(`[]`)); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	first.Close()

	// migrations already applied must not run again
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if _, ok, err := second.GetValue(ctx, "tasks"); err != nil || !ok {
		t.Fatalf("GetValue after reopen = ok %v, err %v", ok, err)
	}
}
