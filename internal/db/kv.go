package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetValue returns the raw value stored under key.
// ok is false when the key has never been written.
func (db *DB) GetValue(ctx context.Context, key string) (value []byte, ok bool, err error) {
	var s string
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(s), true, nil
}

// SetValues writes every key in values inside one transaction,
// so readers never observe a partial write
func (db *DB) SetValues(ctx context.Context, values map[string][]byte) error {
	now := time.Now()
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
			`, key, string(value), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SetValue writes a single key
func (db *DB) SetValue(ctx context.Context, key string, value []byte) error {
	return db.SetValues(ctx, map[string][]byte{key: value})
}
