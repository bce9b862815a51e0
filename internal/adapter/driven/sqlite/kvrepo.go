package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.KeyValueStore = (*KVRepo)(nil)

// KVRepo is a KeyValueStore over one key/value table.
type KVRepo struct {
	db    *DB
	table string
}

// NewDraftRepo returns the store for wizard drafts.
func NewDraftRepo(db *DB) *KVRepo {
	return &KVRepo{db: db, table: "drafts"}
}

// NewSettingsRepo returns the store for tuned runtime settings.
func NewSettingsRepo(db *DB) *KVRepo {
	return &KVRepo{db: db, table: "settings"}
}

// Save stores value under key, replacing any previous value.
func (r *KVRepo) Save(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO ` + r.table + ` (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("save %s %q: %w", r.table, key, err)
	}
	return nil
}

// Load returns the value stored under key. ok is false when absent.
func (r *KVRepo) Load(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value FROM ` + r.table + ` WHERE key = ?`
	var value []byte
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s %q: %w", r.table, key, err)
	}
	return value, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KVRepo) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM ` + r.table + ` WHERE key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s %q: %w", r.table, key, err)
	}
	return nil
}
