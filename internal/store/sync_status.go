package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// KeyLastSync marks completion of bulk history synchronization.
const KeyLastSync = "last_sync"

// GetSyncStatus returns the value stored under key, or ErrNotFound.
func (db *DB) GetSyncStatus(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_status WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status %q: %w", key, err)
	}
	return value, nil
}
