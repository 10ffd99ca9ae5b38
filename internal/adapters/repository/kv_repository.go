package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hivekeeper/core/internal/infrastructure/database"
)

// ErrKeyNotFound is returned by Get for keys that were never set.
var ErrKeyNotFound = errors.New("key not found")

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// KVRepository implements ports.KeyValueRepository backed by a single sqlite
// table. It is the journal's "key-value storage facility": one row per key,
// whole-value replacement on every write.
type KVRepository struct {
	db *sqlx.DB
}

// NewKVRepository creates the backing table if needed and returns the repository.
func NewKVRepository(db *database.DB) (*KVRepository, error) {
	if _, err := db.DB.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &KVRepository{db: db.DB}, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (r *KVRepository) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(1) FROM kv_store WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}
