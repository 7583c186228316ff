package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dori/flowdo/internal/model"
)

// UpsertAlarm creates the alarm, replacing any alarm with the same name
func (db *DB) UpsertAlarm(ctx context.Context, name string, when time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO alarms (name, scheduled_time, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET scheduled_time = excluded.scheduled_time, created_at = excluded.created_at
	`, name, when.UnixMilli(), time.Now())
	return err
}

// DeleteAlarm removes an alarm by name and reports whether one existed
func (db *DB) DeleteAlarm(ctx context.Context, name string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM alarms WHERE name = ?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetAlarm returns a single alarm by name, or nil if none exists
func (db *DB) GetAlarm(ctx context.Context, name string) (*model.Alarm, error) {
	var ms int64
	err := db.QueryRowContext(ctx, `SELECT scheduled_time FROM alarms WHERE name = ?`, name).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.Alarm{Name: name, ScheduledTime: time.UnixMilli(ms)}, nil
}

// GetAlarms returns every alarm, earliest first
func (db *DB) GetAlarms(ctx context.Context) ([]model.Alarm, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, scheduled_time FROM alarms ORDER BY scheduled_time, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alarms []model.Alarm
	for rows.Next() {
		var a model.Alarm
		var ms int64
		if err := rows.Scan(&a.Name, &ms); err != nil {
			return nil, err
		}
		a.ScheduledTime = time.UnixMilli(ms)
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

// NextAlarm returns the earliest alarm, or nil when none are scheduled
func (db *DB) NextAlarm(ctx context.Context) (*model.Alarm, error) {
	var a model.Alarm
	var ms int64
	err := db.QueryRowContext(ctx, `SELECT name, scheduled_time FROM alarms ORDER BY scheduled_time, name LIMIT 1`).Scan(&a.Name, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.ScheduledTime = time.UnixMilli(ms)
	return &a, nil
}

// TakeDueAlarms deletes and returns every alarm scheduled at or before now.
// An alarm re-created by another process between the read and the delete
// with a later time is left in place.
func (db *DB) TakeDueAlarms(ctx context.Context, now time.Time) ([]model.Alarm, error) {
	var due []model.Alarm
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT name, scheduled_time FROM alarms WHERE scheduled_time <= ? ORDER BY scheduled_time, name
		`, now.UnixMilli())
		if err != nil {
			return err
		}
		for rows.Next() {
			var a model.Alarm
			var ms int64
			if err := rows.Scan(&a.Name, &ms); err != nil {
				rows.Close()
				return err
			}
			a.ScheduledTime = time.UnixMilli(ms)
			due = append(due, a)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, a := range due {
			if _, err := tx.ExecContext(ctx, `DELETE FROM alarms WHERE name = ? AND scheduled_time = ?`,
				a.Name, a.ScheduledTime.UnixMilli()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}
