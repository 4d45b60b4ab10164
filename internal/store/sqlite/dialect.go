package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/adorun/internal/constants"
	_ "modernc.org/sqlite"
)

// Dialect implements the journal SQL dialect for SQLite
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

func (d *Dialect) Name() string {
	return "sqlite"
}

// Placeholder returns '?' regardless of position.
func (d *Dialect) Placeholder(int) string {
	return "?"
}

// Returning reports whether inserts hand back ids through RETURNING.
// SQLite uses LastInsertId instead.
func (d *Dialect) Returning() bool {
	return false
}

// BoolToStorage stores booleans as 0/1 integers
func (d *Dialect) BoolToStorage(b bool) any {
	if b {
		return 1
	}
	return 0
}

func (d *Dialect) BoolFromStorage(val any) bool {
	switch v := val.(type) {
	case int64:
		return v != 0
	case int:
		return v != 0
	case bool:
		return v
	}
	return false
}

// TimeToStorage stores times as RFC3339Nano text in UTC
func (d *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC().Format(time.RFC3339Nano)
}

func (d *Dialect) TimeFromStorage(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	return ""
}

// Connect opens the database file. SQLite allows a single writer, so the pool
// is pinned to one connection.
func (d *Dialect) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultSQLiteMaxConnections)
	db.SetMaxIdleConns(constants.DefaultSQLiteMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultSQLiteLifetime)
	db.SetConnMaxIdleTime(constants.DefaultSQLiteIdleTime)
	return db, nil
}

// EnsureStatements returns the CREATE statements for the runs and run items tables.
func (d *Dialect) EnsureStatements(runs, items string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, resource TEXT NOT NULL, operation TEXT NOT NULL, item_count INTEGER NOT NULL, failed_count INTEGER NOT NULL DEFAULT 0, aborted INTEGER NOT NULL DEFAULT 0, error TEXT NULL, started_at TEXT NOT NULL, finished_at TEXT NOT NULL)", runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE, seq INTEGER NOT NULL, item_index INTEGER NOT NULL, failed INTEGER NOT NULL DEFAULT 0, output TEXT NOT NULL, PRIMARY KEY(run_id, seq))", items, runs),
	}
}
