package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sheharfix/civicsync/internal/dbx"
)

const (
	selectSlotSQL = `SELECT value FROM metadata WHERE key = ?`
	upsertSlotSQL = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	deleteSlotSQL = `DELETE FROM metadata WHERE key = ?`
	clearSlotsSQL = `DELETE FROM metadata`
	listSlotsSQL  = `SELECT key, value FROM metadata`
)

// SQLiteRepository keeps one metadata row per slot key. The mock backend
// snapshot sits under KeyMockIssues, the bearer token under KeyAuthToken,
// the signed-in profile under KeyUser, and the offline login cache under
// KeyOfflineEmail, KeyOfflineSalt and KeyOfflineHash. Values are opaque
// bytes; callers own their encoding.
//
// db may be a *sql.DB or a *sql.Tx, so a session write can replace the
// token and profile rows atomically.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns (nil, nil) when the slot was never written.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	switch err := r.db.QueryRowContext(ctx, selectSlotSQL, key).Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if _, err := r.db.ExecContext(ctx, upsertSlotSQL, key, value); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// Delete is a no-op for an absent key.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteSlotSQL, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// Clear drops every slot, the mock snapshot included.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, clearSlotsSQL); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, listSlotsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	slots := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		slots[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return slots, nil
}
