package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/adorun/internal/constants"
)

// Dialect implements the journal SQL dialect for PostgreSQL
type Dialect struct{}

func NewDialect() *Dialect {
	return &Dialect{}
}

func (p *Dialect) Name() string {
	return "postgresql"
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, etc.)
func (p *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (p *Dialect) Returning() bool {
	return true
}

func (p *Dialect) BoolToStorage(b bool) any {
	return b
}

func (p *Dialect) BoolFromStorage(val any) bool {
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

func (p *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC()
}

// TimeFromStorage converts TIMESTAMPTZ values to RFC3339Nano strings
func (p *Dialect) TimeFromStorage(val any) string {
	switch v := val.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v != nil {
			return v.UTC().Format(time.RFC3339Nano)
		}
	case string:
		return v
	}
	return ""
}

// Connect opens a pgx-backed pool and verifies it with a ping
func (p *Dialect) Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(constants.DefaultPostgresMaxConnections)
	db.SetMaxIdleConns(constants.DefaultPostgresMaxIdleConns)
	db.SetConnMaxLifetime(constants.DefaultMaxConnLifetime)
	db.SetConnMaxIdleTime(constants.DefaultMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

func (p *Dialect) EnsureStatements(runs, items string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, resource TEXT NOT NULL, operation TEXT NOT NULL, item_count INTEGER NOT NULL, failed_count INTEGER NOT NULL DEFAULT 0, aborted BOOLEAN NOT NULL DEFAULT FALSE, error TEXT NULL, started_at TIMESTAMPTZ NOT NULL, finished_at TIMESTAMPTZ NOT NULL)", runs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (run_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE, seq INTEGER NOT NULL, item_index INTEGER NOT NULL, failed BOOLEAN NOT NULL DEFAULT FALSE, output TEXT NOT NULL, PRIMARY KEY(run_id, seq))", items, runs),
	}
}
