package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"explicit path", "/tmp/journal.db", "file:/tmp/journal.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"default path", "  ", "file:adorun.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"memory", ":memory:", ":memory:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{Path: tt.path}
			if got := c.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialect_Conversions(t *testing.T) {
	d := NewDialect()
	if d.Placeholder(3) != "?" {
		t.Errorf("Placeholder(3) = %q", d.Placeholder(3))
	}
	if d.Returning() {
		t.Error("sqlite should use LastInsertId")
	}
	if d.BoolToStorage(true) != 1 || d.BoolToStorage(false) != 0 {
		t.Error("bools should be stored as integers")
	}
	if !d.BoolFromStorage(int64(1)) || d.BoolFromStorage(int64(0)) || d.BoolFromStorage("x") {
		t.Error("BoolFromStorage mismatch")
	}

	ts := time.Date(2024, 3, 1, 10, 0, 0, 5, time.FixedZone("X", 3600))
	stored, ok := d.TimeToStorage(ts).(string)
	if !ok || stored != "2024-03-01T09:00:00.000000005Z" {
		t.Errorf("TimeToStorage = %v", d.TimeToStorage(ts))
	}
	if got := d.TimeFromStorage(stored); got != stored {
		t.Errorf("TimeFromStorage = %q", got)
	}
	if got := d.TimeFromStorage(42); got != "" {
		t.Errorf("TimeFromStorage(42) = %q", got)
	}
}

func TestDialect_EnsureStatements(t *testing.T) {
	stmts := NewDialect().EnsureStatements("x_runs", "x_run_items")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS x_runs") || !strings.Contains(stmts[0], "AUTOINCREMENT") {
		t.Errorf("unexpected runs statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], "REFERENCES x_runs(id)") {
		t.Errorf("unexpected items statement: %s", stmts[1])
	}
}

func TestDialect_ConnectMemory(t *testing.T) {
	db, err := NewDialect().Connect(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = db.Close() }()
	if db.Stats().MaxOpenConnections != 1 {
		t.Errorf("expected a single connection, got %d", db.Stats().MaxOpenConnections)
	}
}
