package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/teardown/internal/domain"
)

// InMemorySettingsRepository implements SettingsRepository in memory.
type InMemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[domain.SettingKey]string
}

// NewInMemorySettingsRepository creates an empty in-memory settings store.
func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{
		values: make(map[domain.SettingKey]string),
	}
}

// Get returns the stored value for key.
func (r *InMemorySettingsRepository) Get(ctx context.Context, key domain.SettingKey) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

// Set stores value under key.
func (r *InMemorySettingsRepository) Set(ctx context.Context, key domain.SettingKey, value string) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}

// Delete removes key.
func (r *InMemorySettingsRepository) Delete(ctx context.Context, key domain.SettingKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key)
	return nil
}

// All returns a copy of every stored value.
func (r *InMemorySettingsRepository) All(ctx context.Context) (map[domain.SettingKey]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.SettingKey]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

// Ping always succeeds.
func (r *InMemorySettingsRepository) Ping(ctx context.Context) error {
	return nil
}

// SQLiteSettingsRepository implements SettingsRepository on a SQLite file.
type SQLiteSettingsRepository struct {
	db *sql.DB
}

// NewSQLiteSettingsRepository opens (or creates) the database at path.
func NewSQLiteSettingsRepository(path string) (*SQLiteSettingsRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteSettingsRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteSettingsRepository) Close() error {
	return r.db.Close()
}

// Get returns the stored value for key.
func (r *SQLiteSettingsRepository) Get(ctx context.Context, key domain.SettingKey) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (r *SQLiteSettingsRepository) Set(ctx context.Context, key domain.SettingKey, value string) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(key), value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *SQLiteSettingsRepository) Delete(ctx context.Context, key domain.SettingKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSettingKey, key)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, string(key)); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored value.
func (r *SQLiteSettingsRepository) All(ctx context.Context) (map[domain.SettingKey]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SettingKey]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[domain.SettingKey(k)] = v
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (r *SQLiteSettingsRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
