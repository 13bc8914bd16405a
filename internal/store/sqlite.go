package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// SQLiteBackend implements Backend with a single key-value table in a SQLite database file
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens (or creates) the database at path and ensures the table exists
func OpenSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection serializes writers, which SQLite requires anyway
	db.SetMaxOpenConns(1)

	stmt := `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT    PRIMARY KEY,
		value      BLOB    NOT NULL,
		updated_ts INTEGER NOT NULL
	)`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (sb *SQLiteBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := sb.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

func (sb *SQLiteBackend) Write(ctx context.Context, key string, value []byte) error {
	stmt := `INSERT INTO kv (key, value, updated_ts) VALUES (?, ?, ?)
	         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts`
	if _, err := sb.db.ExecContext(ctx, stmt, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database
func (sb *SQLiteBackend) Close() error {
	return sb.db.Close()
}
